package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/exameye/proctor/db"
	"github.com/exameye/proctor/models"
	"github.com/exameye/proctor/report"
)

// ExportViolationsCSV downloads every violation as CSV.
func (s *Server) ExportViolationsCSV(w http.ResponseWriter, r *http.Request) {
	violations, err := s.Violations.QueryAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="violations.csv"`)
	w.Write([]byte(report.ViolationsCSV(violations)))
}

// ExportSummaryCSV downloads the system-wide summary report as CSV.
func (s *Server) ExportSummaryCSV(w http.ResponseWriter, r *http.Request) {
	sessions, violations, students, ok := s.loadReportData(w)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="summary.csv"`)
	w.Write([]byte(report.SummaryCSV(sessions, violations, students)))
}

// ExportSummaryHTML renders the system-wide summary report.
func (s *Server) ExportSummaryHTML(w http.ResponseWriter, r *http.Request) {
	sessions, violations, students, ok := s.loadReportData(w)
	if !ok {
		return
	}

	html, err := report.SummaryHTML(sessions, violations, students)
	if err != nil {
		log.Printf("HTML report generation error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// ExportStudentCSV downloads one student's violation report as CSV.
func (s *Server) ExportStudentCSV(w http.ResponseWriter, r *http.Request) {
	student, violations, ok := s.loadStudentData(w, mux.Vars(r)["student_id"])
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="student_`+student.StudentID+`.csv"`)
	w.Write([]byte(report.StudentCSV(student.StudentID, student.Name, violations)))
}

// ExportStudentHTML renders one student's report with evidence images.
func (s *Server) ExportStudentHTML(w http.ResponseWriter, r *http.Request) {
	student, violations, ok := s.loadStudentData(w, mux.Vars(r)["student_id"])
	if !ok {
		return
	}

	html, err := report.StudentHTML(student.StudentID, student.Name, violations)
	if err != nil {
		log.Printf("Student HTML report generation error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

func (s *Server) loadReportData(w http.ResponseWriter) (sessions []models.ExamSession, violations []models.Violation, students []models.Student, ok bool) {
	var err error
	if sessions, err = s.Sessions.ListAll(); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, nil, nil, false
	}
	if violations, err = s.Violations.QueryAll(); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, nil, nil, false
	}
	if students, err = s.Students.ListAll(); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, nil, nil, false
	}
	return sessions, violations, students, true
}

func (s *Server) loadStudentData(w http.ResponseWriter, studentID string) (models.Student, []models.Violation, bool) {
	student, err := s.Students.FindByStudentID(studentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Student not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return models.Student{}, nil, false
	}

	violations, err := s.Violations.QueryByStudent(studentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return models.Student{}, nil, false
	}
	return student, violations, true
}
