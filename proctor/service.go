// Package proctor coordinates the frame event pipeline: detection results
// come in, violation records, session counters and real-time alerts go out.
package proctor

import (
	"log"
	"time"

	"github.com/exameye/proctor/hub"
	"github.com/exameye/proctor/models"
	"github.com/exameye/proctor/registry"
	"github.com/exameye/proctor/types"
	"github.com/google/uuid"
)

// DetectionError indicates the detection service rejected the frame. The
// whole call is aborted without touching any state.
type DetectionError struct {
	Reason string
}

func (e *DetectionError) Error() string {
	return "detection failed: " + e.Reason
}

// Detector inspects a frame and reports zero or more findings.
type Detector interface {
	Detect(frameBase64 string, calibPitch, calibYaw float64) (*types.DetectionResult, error)
}

// SnapshotStore uploads evidence images and returns a retrievable URL.
type SnapshotStore interface {
	Upload(imageBase64, studentID, sessionID, violationType string) (string, error)
}

// ViolationSink is the append-only write path for violation records.
type ViolationSink interface {
	Append(v models.Violation) error
}

// SessionRegistry is the session state owner consulted on every frame.
type SessionRegistry interface {
	StartSession(studentID, studentName string, calibPitch, calibYaw float64) (models.ExamSession, error)
	EndSession(id string) (models.ExamSession, error)
	GetSession(id string) (models.ExamSession, error)
	IncrementFrameCount(id string) error
	IncrementViolationCount(id string) error
}

// Notifier pushes events to connected observers.
type Notifier interface {
	PublishGlobal(ev hub.Event)
	PublishSession(sessionID string, ev hub.Event)
}

// SessionUpdate is the payload of session lifecycle events.
type SessionUpdate struct {
	SessionID   string     `json:"session_id"`
	StudentID   string     `json:"student_id,omitempty"`
	StudentName string     `json:"student_name,omitempty"`
	Status      string     `json:"status"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

// FrameResult is what one ProcessFrame call produced. FindingCount can be
// larger than len(Violations) when persistence partially failed, so data
// loss stays observable.
type FrameResult struct {
	FindingCount int                `json:"finding_count"`
	Violations   []models.Violation `json:"violations"`
	HeadPose     *models.HeadPose   `json:"head_pose,omitempty"`
}

type Service struct {
	registry   SessionRegistry
	violations ViolationSink
	detector   Detector
	snapshots  SnapshotStore
	notifier   Notifier

	now   func() time.Time
	newID func() string
}

func NewService(registry SessionRegistry, violations ViolationSink, detector Detector, snapshots SnapshotStore, notifier Notifier) *Service {
	return &Service{
		registry:   registry,
		violations: violations,
		detector:   detector,
		snapshots:  snapshots,
		notifier:   notifier,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// StartSession opens a new monitored session and announces it to the
// global observers.
func (s *Service) StartSession(studentID, studentName string, calibPitch, calibYaw float64) (models.ExamSession, error) {
	session, err := s.registry.StartSession(studentID, studentName, calibPitch, calibYaw)
	if err != nil {
		return models.ExamSession{}, err
	}

	start := session.StartTime
	s.notifier.PublishGlobal(hub.Event{
		Type: hub.EventSessionUpdate,
		Data: SessionUpdate{
			SessionID:   session.ID,
			StudentID:   session.StudentID,
			StudentName: session.StudentName,
			Status:      "started",
			StartTime:   &start,
		},
	})

	log.Printf("Exam session started: %s for %s", session.ID, session.StudentName)
	return session, nil
}

// EndSession completes an active session and announces it.
func (s *Service) EndSession(id string) (models.ExamSession, error) {
	session, err := s.registry.EndSession(id)
	if err != nil {
		return models.ExamSession{}, err
	}

	s.notifier.PublishGlobal(hub.Event{
		Type: hub.EventSessionUpdate,
		Data: SessionUpdate{
			SessionID:   session.ID,
			StudentID:   session.StudentID,
			StudentName: session.StudentName,
			Status:      "completed",
			EndTime:     session.EndTime,
		},
	})

	log.Printf("Exam session ended: %s", session.ID)
	return session, nil
}

// ProcessFrame runs one frame through detection and turns each finding
// into a persisted violation, a counter update and an alert. Findings are
// handled independently: one failed write never suppresses its siblings.
func (s *Service) ProcessFrame(sessionID, frameBase64 string, calibPitch, calibYaw float64) (*FrameResult, error) {
	session, err := s.registry.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionCompleted {
		return nil, registry.ErrSessionEnded
	}

	result, err := s.detector.Detect(frameBase64, calibPitch, calibYaw)
	if err != nil {
		return nil, err
	}
	if err := result.Validate(); err != nil {
		return nil, &DetectionError{Reason: err.Error()}
	}

	// The frame counts whether or not anything was found. A failed counter
	// update aborts: counters must track attempted operations.
	if err := s.registry.IncrementFrameCount(sessionID); err != nil {
		return nil, err
	}

	frame := &FrameResult{
		FindingCount: len(result.Findings),
		HeadPose:     result.HeadPose,
	}

	for _, finding := range result.Findings {
		violation := s.buildViolation(session, finding, result)

		if err := s.violations.Append(violation); err != nil {
			// Record lost; keep going so the remaining findings still get
			// their chance.
			log.Printf("Error persisting violation %s for session %s: %v",
				finding.Type, sessionID, err)
			continue
		}

		if err := s.registry.IncrementViolationCount(sessionID); err != nil {
			log.Printf("Error updating violation count for session %s: %v", sessionID, err)
			frame.Violations = append(frame.Violations, violation)
			return frame, err
		}

		frame.Violations = append(frame.Violations, violation)

		ev := hub.Event{Type: hub.EventViolationAlert, Data: violation}
		s.notifier.PublishGlobal(ev)
		s.notifier.PublishSession(sessionID, ev)

		log.Printf("Violation detected: %s - %s", finding.Type, session.StudentName)
	}

	return frame, nil
}

// buildViolation assembles the persisted record for one finding. Snapshot
// upload failure degrades to a violation without evidence; a detected
// violation is never dropped for lack of a picture.
func (s *Service) buildViolation(session models.ExamSession, finding types.Finding, result *types.DetectionResult) models.Violation {
	violation := models.Violation{
		ID:            s.newID(),
		SessionID:     session.ID,
		StudentID:     session.StudentID,
		StudentName:   session.StudentName,
		ViolationType: finding.Type,
		Severity:      finding.Severity,
		Message:       finding.Message,
		HeadPose:      result.HeadPose,
		Timestamp:     s.now().UTC(),
	}

	if result.SnapshotBase64 != "" {
		url, err := s.snapshots.Upload(result.SnapshotBase64, session.StudentID, session.ID, finding.Type)
		if err != nil {
			log.Printf("Error uploading snapshot for session %s: %v", session.ID, err)
			violation.SnapshotBase64 = result.SnapshotBase64
		} else {
			// A hosted URL wins over the inline image.
			violation.SnapshotURL = url
		}
	}

	return violation
}
