// Package detector is the HTTP client for the external detection service.
package detector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/exameye/proctor/proctor"
	"github.com/exameye/proctor/types"
)

// Client talks to the detection sidecar over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type detectRequest struct {
	FrameBase64     string  `json:"frame_base64"`
	CalibratedPitch float64 `json:"calibrated_pitch"`
	CalibratedYaw   float64 `json:"calibrated_yaw"`
}

type calibrateRequest struct {
	FrameBase64 string `json:"frame_base64"`
}

type calibrateResponse struct {
	Success bool    `json:"success"`
	Pitch   float64 `json:"pitch"`
	Yaw     float64 `json:"yaw"`
	Message string  `json:"message"`
}

// Detect submits a frame for inspection. A 4xx answer means the service
// rejected the frame and maps to a DetectionError.
func (c *Client) Detect(frameBase64 string, calibPitch, calibYaw float64) (*types.DetectionResult, error) {
	body, err := json.Marshal(detectRequest{
		FrameBase64:     frameBase64,
		CalibratedPitch: calibPitch,
		CalibratedYaw:   calibYaw,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Post(c.baseURL+"/detect", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("Error calling detection service: %v", err)
		return nil, fmt.Errorf("error calling detection service: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		msg, _ := io.ReadAll(resp.Body)
		return nil, &proctor.DetectionError{Reason: string(msg)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detection service returned status %d", resp.StatusCode)
	}

	var result types.DetectionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding detection result: %v", err)
	}
	return &result, nil
}

// Calibrate asks the service for the reference head pose of a frame.
// found is false when no face was visible.
func (c *Client) Calibrate(frameBase64 string) (pitch, yaw float64, found bool, err error) {
	body, err := json.Marshal(calibrateRequest{FrameBase64: frameBase64})
	if err != nil {
		return 0, 0, false, err
	}

	resp, err := c.client.Post(c.baseURL+"/calibrate", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("Error calling calibration: %v", err)
		return 0, 0, false, fmt.Errorf("error calling calibration: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, false, fmt.Errorf("calibration returned status %d", resp.StatusCode)
	}

	var result calibrateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, 0, false, fmt.Errorf("error decoding calibration result: %v", err)
	}
	return result.Pitch, result.Yaw, result.Success, nil
}
