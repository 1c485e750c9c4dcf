// Package snapshots uploads violation evidence images to the external
// object store and returns their public URLs.
package snapshots

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Uploader pushes JPEG snapshots to a storage bucket over its REST API.
type Uploader struct {
	baseURL string
	apiKey  string
	bucket  string
	client  *http.Client
}

func NewUploader(baseURL, apiKey, bucket string) *Uploader {
	return &Uploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		bucket:  bucket,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Upload stores one snapshot and returns its public URL. The object name
// encodes student, session and violation type so evidence can be traced
// back without a lookup.
func (u *Uploader) Upload(imageBase64, studentID, sessionID, violationType string) (string, error) {
	// Frames may arrive as data URIs; strip the prefix before decoding.
	if idx := strings.Index(imageBase64, ","); idx != -1 && strings.HasPrefix(imageBase64, "data:") {
		imageBase64 = imageBase64[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", fmt.Errorf("error decoding snapshot: %v", err)
	}

	objectPath := fmt.Sprintf("%s/%s/%s_%d.jpg",
		studentID, sessionID, violationType, time.Now().UnixMilli())

	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", u.baseURL, u.bucket, objectPath)
	req, err := http.NewRequest(http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+u.apiKey)
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error uploading snapshot: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("snapshot upload returned status %d", resp.StatusCode)
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", u.baseURL, u.bucket, objectPath), nil
}
