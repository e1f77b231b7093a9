package model

import "time"

// CameraKind is the source type of a registered feed.
type CameraKind string

const (
	CameraKindWebcam CameraKind = "webcam"
	CameraKindIP     CameraKind = "ip"
)

// Valid reports whether k is one of the known kinds.
func (k CameraKind) Valid() bool {
	return k == CameraKindWebcam || k == CameraKindIP
}

// CameraMetadata holds optional stream characteristics.
type CameraMetadata struct {
	Resolution string  `json:"resolution,omitempty"`
	FPS        float64 `json:"fps,omitempty"`
}

// Camera represents one registered feed. URL is unique across all cameras.
type Camera struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	URL       string          `json:"url"`
	Kind      CameraKind      `json:"type"`
	Active    bool            `json:"isActive"`
	LastUsed  time.Time       `json:"lastUsed"`
	Metadata  *CameraMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
