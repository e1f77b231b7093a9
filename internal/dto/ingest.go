package dto

import "time"

// IngestRequest carries one captured image into the snapshot pipeline.
type IngestRequest struct {
	CameraName  string
	CameraURL   string
	Image       []byte
	ContentType string
	Tags        []string
}

// IngestResult is returned once the image is stored and its record persisted.
type IngestResult struct {
	ID         string    `json:"id"`
	ImageURL   string    `json:"imageUrl"`
	CameraName string    `json:"cameraName"`
	CapturedAt time.Time `json:"capturedAt"`
}
