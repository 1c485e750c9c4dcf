package types

import (
	"fmt"

	"github.com/exameye/proctor/models"
)

// Finding is one anomaly reported by the detection service for a single frame
type Finding struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// DetectionResult is the full response of the detection service for one frame
type DetectionResult struct {
	Findings       []Finding        `json:"violations"`
	HeadPose       *models.HeadPose `json:"head_pose,omitempty"`
	SnapshotBase64 string           `json:"snapshot_base64,omitempty"`
}

// Validate rejects results the pipeline cannot process. The detector is an
// external collaborator, so its output is checked at the boundary rather
// than trusted.
func (r *DetectionResult) Validate() error {
	for i, f := range r.Findings {
		if f.Type == "" {
			return fmt.Errorf("finding %d has no type", i)
		}
	}
	return nil
}
