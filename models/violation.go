package models

import "time"

// HeadPose is a captured head orientation reading in degrees
type HeadPose struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// Violation is a persisted record of one detected anomaly. Records are
// append-only: once written they are never mutated or deleted.
type Violation struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	StudentID      string    `json:"student_id"`
	StudentName    string    `json:"student_name"`
	ViolationType  string    `json:"violation_type"` // open set, defined by the detector
	Severity       string    `json:"severity"`       // opaque label, stored and reported as-is
	Message        string    `json:"message"`
	SnapshotURL    string    `json:"snapshot_url,omitempty"`
	SnapshotBase64 string    `json:"snapshot_base64,omitempty"`
	HeadPose       *HeadPose `json:"head_pose,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// SnapshotRef returns the evidence reference for the violation. A hosted
// URL always wins over an inline image when both are present.
func (v Violation) SnapshotRef() string {
	if v.SnapshotURL != "" {
		return v.SnapshotURL
	}
	return v.SnapshotBase64
}
