package models

import "time"

const (
	// SessionActive marks a session currently being monitored.
	SessionActive = "active"
	// SessionCompleted marks a session that has ended; completed sessions
	// are immutable history.
	SessionCompleted = "completed"
)

// ExamSession represents one student's monitored exam attempt
type ExamSession struct {
	ID              string     `json:"id"`
	StudentID       string     `json:"student_id"`
	StudentName     string     `json:"student_name"`
	CalibratedPitch float64    `json:"calibrated_pitch"`
	CalibratedYaw   float64    `json:"calibrated_yaw"`
	Status          string     `json:"status"` // 'active' or 'completed'
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	TotalFrames     int64      `json:"total_frames"`
	ViolationCount  int64      `json:"violation_count"`
}
