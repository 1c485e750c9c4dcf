package api

type StudentCreateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SessionCreateRequest struct {
	StudentID       string  `json:"student_id"`
	StudentName     string  `json:"student_name"`
	CalibratedPitch float64 `json:"calibrated_pitch"`
	CalibratedYaw   float64 `json:"calibrated_yaw"`
}

type FrameProcessRequest struct {
	SessionID       string  `json:"session_id"`
	FrameBase64     string  `json:"frame_base64"`
	CalibratedPitch float64 `json:"calibrated_pitch"`
	CalibratedYaw   float64 `json:"calibrated_yaw"`
}

type CalibrationRequest struct {
	FrameBase64 string `json:"frame_base64"`
}

type CalibrationResponse struct {
	Success bool    `json:"success"`
	Pitch   float64 `json:"pitch,omitempty"`
	Yaw     float64 `json:"yaw,omitempty"`
	Message string  `json:"message"`
}

type EnvironmentCheck struct {
	LightingOK   bool   `json:"lighting_ok"`
	FaceDetected bool   `json:"face_detected"`
	FaceCentered bool   `json:"face_centered"`
	Message      string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	ActiveSessions  int    `json:"active_sessions"`
	ActiveObservers int    `json:"active_observers"`
}
