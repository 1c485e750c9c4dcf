package report

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/exameye/proctor/models"
)

// ViolationsCSV renders all violations as one flat CSV table.
func ViolationsCSV(violations []models.Violation) string {
	if len(violations) == 0 {
		return ""
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)

	w.Write([]string{
		"Violation ID", "Student ID", "Student Name", "Session ID",
		"Violation Type", "Severity", "Message", "Timestamp", "Snapshot URL",
	})
	for _, v := range violations {
		w.Write([]string{
			v.ID, v.StudentID, v.StudentName, v.SessionID,
			v.ViolationType, v.Severity, v.Message,
			v.Timestamp.UTC().Format(time.RFC3339),
			v.SnapshotURL,
		})
	}

	w.Flush()
	return buf.String()
}

// SummaryCSV renders overall statistics, the per-type breakdown and the
// per-student ranking as a sectioned CSV document.
func SummaryCSV(sessions []models.ExamSession, violations []models.Violation, students []models.Student) string {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	buf.WriteString("EXAM PROCTORING SUMMARY REPORT\n")
	fmt.Fprintf(&buf, "Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	buf.WriteString("OVERALL STATISTICS\n")
	fmt.Fprintf(&buf, "Total Students,%d\n", len(students))
	fmt.Fprintf(&buf, "Total Sessions,%d\n", len(sessions))
	fmt.Fprintf(&buf, "Total Violations,%d\n\n", len(violations))

	buf.WriteString("VIOLATION BREAKDOWN\n")
	w.Write([]string{"Violation Type", "Count"})
	for _, share := range sortedTypes(CountByType(violations)) {
		w.Write([]string{share.Type, fmt.Sprintf("%d", share.Count)})
	}
	w.Flush()
	buf.WriteString("\n")

	buf.WriteString("STUDENT-WISE SUMMARY\n")
	w.Write([]string{"Student ID", "Student Name", "Total Violations"})
	for _, row := range RankStudents(violations) {
		w.Write([]string{row.StudentID, row.StudentName, fmt.Sprintf("%d", row.Count)})
	}
	w.Flush()

	return buf.String()
}

// StudentCSV renders one student's violation report: breakdown first,
// then every violation in detail.
func StudentCSV(studentID, studentName string, violations []models.Violation) string {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	buf.WriteString("STUDENT VIOLATION REPORT\n")
	fmt.Fprintf(&buf, "Student ID: %s\n", studentID)
	fmt.Fprintf(&buf, "Student Name: %s\n", studentName)
	fmt.Fprintf(&buf, "Generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Total Violations: %d\n\n", len(violations))

	buf.WriteString("VIOLATION BREAKDOWN\n")
	w.Write([]string{"Violation Type", "Count"})
	for _, share := range sortedTypes(CountByType(violations)) {
		w.Write([]string{share.Type, fmt.Sprintf("%d", share.Count)})
	}
	w.Flush()
	buf.WriteString("\n")

	buf.WriteString("DETAILED VIOLATIONS\n")
	w.Write([]string{"Timestamp", "Violation Type", "Severity", "Message", "Snapshot URL"})
	for _, v := range violations {
		w.Write([]string{
			v.Timestamp.UTC().Format(time.RFC3339),
			v.ViolationType, v.Severity, v.Message, v.SnapshotURL,
		})
	}
	w.Flush()

	return buf.String()
}
