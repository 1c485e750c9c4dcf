package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/exameye/proctor/db"
	"github.com/exameye/proctor/hub"
	"github.com/exameye/proctor/models"
	"github.com/exameye/proctor/proctor"
	"github.com/exameye/proctor/registry"
)

// Calibrator is the slice of the detection service used by the
// calibration and environment-check endpoints.
type Calibrator interface {
	Calibrate(frameBase64 string) (pitch, yaw float64, found bool, err error)
}

// Server bundles everything the HTTP handlers need.
type Server struct {
	Service    *proctor.Service
	Registry   *registry.Registry
	Hub        *hub.Hub
	Students   *db.StudentStore
	Sessions   *db.SessionStore
	Violations *db.ViolationStore
	Keys       *db.APIKeyStore
	Calibrator Calibrator
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// generateStudentID produces a public id like STU-ABC123
func generateStudentID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	const digits = "0123456789"
	id := make([]byte, 0, 10)
	id = append(id, "STU-"...)
	for i := 0; i < 3; i++ {
		id = append(id, letters[rand.Intn(len(letters))])
	}
	for i := 0; i < 3; i++ {
		id = append(id, digits[rand.Intn(len(digits))])
	}
	return string(id)
}

// RegisterStudent creates a student with an auto-generated public id.
func (s *Server) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Name and email are required")
		return
	}

	student := models.Student{
		ID:        uuid.NewString(),
		StudentID: generateStudentID(),
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.Students.Insert(student); err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		log.Printf("Registration error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to register student")
		return
	}

	log.Printf("Student registered: %s", student.StudentID)
	writeJSON(w, http.StatusOK, student)
}

// GetStudent looks up a student by public id.
func (s *Server) GetStudent(w http.ResponseWriter, r *http.Request) {
	studentID := mux.Vars(r)["student_id"]
	student, err := s.Students.FindByStudentID(studentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Student not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, student)
}

// Calibrate captures the student's reference head pose before an exam.
func (s *Server) Calibrate(w http.ResponseWriter, r *http.Request) {
	var req CalibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pitch, yaw, found, err := s.Calibrator.Calibrate(req.FrameBase64)
	if err != nil {
		log.Printf("Calibration error: %v", err)
		writeJSON(w, http.StatusOK, CalibrationResponse{
			Success: false,
			Message: fmt.Sprintf("Calibration failed: %v", err),
		})
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, CalibrationResponse{
			Success: false,
			Message: "No face detected. Please face the camera directly.",
		})
		return
	}

	writeJSON(w, http.StatusOK, CalibrationResponse{
		Success: true,
		Pitch:   pitch,
		Yaw:     yaw,
		Message: "Calibration successful",
	})
}

// CheckEnvironment verifies the camera setup is usable for an exam.
func (s *Server) CheckEnvironment(w http.ResponseWriter, r *http.Request) {
	var req CalibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, _, found, err := s.Calibrator.Calibrate(req.FrameBase64)
	if err != nil || !found {
		if err != nil {
			log.Printf("Environment check error: %v", err)
		}
		writeJSON(w, http.StatusOK, EnvironmentCheck{
			Message: "Face not detected. Please adjust lighting and camera position.",
		})
		return
	}

	writeJSON(w, http.StatusOK, EnvironmentCheck{
		LightingOK:   true,
		FaceDetected: true,
		FaceCentered: true,
		Message:      "Environment check passed. Ready to start exam.",
	})
}

// StartSession begins monitoring a student.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var req SessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	session, err := s.Service.StartSession(req.StudentID, req.StudentName, req.CalibratedPitch, req.CalibratedYaw)
	if err != nil {
		log.Printf("Session start error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// GetSession returns current session state.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["session_id"]
	session, err := s.Registry.GetSession(id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// EndSession completes a session. Ending twice is a conflict, not a no-op.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["session_id"]
	_, err := s.Service.EndSession(id)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrNotFound):
			writeError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, registry.ErrSessionEnded):
			writeError(w, http.StatusConflict, "Session already completed")
		default:
			log.Printf("Session end error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to end session")
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Session ended successfully"})
}

// ActiveSessions lists active sessions, most recently started first.
func (s *Server) ActiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.Registry.ListActive()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	writeJSON(w, http.StatusOK, sessions)
}

// ProcessFrame pushes one detection frame through the pipeline.
func (s *Server) ProcessFrame(w http.ResponseWriter, r *http.Request) {
	var req FrameProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.Service.ProcessFrame(req.SessionID, req.FrameBase64, req.CalibratedPitch, req.CalibratedYaw)
	if err != nil {
		var detErr *proctor.DetectionError
		switch {
		case errors.As(err, &detErr):
			writeError(w, http.StatusBadRequest, detErr.Reason)
		case errors.Is(err, registry.ErrNotFound):
			writeError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, registry.ErrSessionEnded):
			writeError(w, http.StatusConflict, "Session already completed")
		default:
			log.Printf("Frame processing error: %v", err)
			if result != nil {
				// Partial failure: some findings persisted before storage
				// gave out. Return what we have.
				writeJSON(w, http.StatusInternalServerError, result)
				return
			}
			writeError(w, http.StatusInternalServerError, "Frame processing failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SessionViolations lists all violations recorded for a session.
func (s *Server) SessionViolations(w http.ResponseWriter, r *http.Request) {
	violations, err := s.Violations.QueryBySession(mux.Vars(r)["session_id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(violations))
}

// StudentViolations lists all violations recorded for a student.
func (s *Server) StudentViolations(w http.ResponseWriter, r *http.Request) {
	violations, err := s.Violations.QueryByStudent(mux.Vars(r)["student_id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(violations))
}

// maxRecentLimit caps list reads so a dashboard query cannot pull the
// whole table.
const maxRecentLimit = 1000

func limitParam(v string) int {
	limit := 50
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		limit = n
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return limit
}

// RecentViolations lists the latest violations across all sessions.
func (s *Server) RecentViolations(w http.ResponseWriter, r *http.Request) {
	violations, err := s.Violations.QueryRecent(limitParam(r.URL.Query().Get("limit")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(violations))
}

// AdminStats reports overall session and violation totals.
func (s *Server) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Sessions.Counts()
	if err != nil {
		log.Printf("Stats error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	total, err := s.Violations.CountAll()
	if err != nil {
		log.Printf("Stats error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	stats.TotalViolations = total
	writeJSON(w, http.StatusOK, stats)
}

// AllSessions lists every session, most recently started first.
func (s *Server) AllSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.Sessions.ListAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if sessions == nil {
		sessions = []models.ExamSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Root is the service banner.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "ExamEye Shield API",
		"version": "1.0.0",
		"status":  "active",
	})
}

// Health reports liveness plus current monitoring load.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:          "healthy",
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		ActiveSessions:  s.Registry.ActiveCount(),
		ActiveObservers: s.Hub.CountActive(),
	})
}

func emptyIfNil(violations []models.Violation) []models.Violation {
	if violations == nil {
		return []models.Violation{}
	}
	return violations
}
