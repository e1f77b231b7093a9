package model

import "time"

// PhotoMetadata describes the stored image.
type PhotoMetadata struct {
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Format string `json:"format,omitempty"`
	Size   int64  `json:"size,omitempty"`
}

// Photo represents one captured, stored snapshot.
//
// CameraName and CameraURL are copies of the originating camera's fields at
// capture time, so later camera edits or deletes leave existing photos intact.
type Photo struct {
	ID              string        `json:"id"`
	CameraName      string        `json:"cameraName"`
	CameraURL       string        `json:"cameraUrl"`
	ImageURL        string        `json:"imageUrl"`
	SecureURL       string        `json:"secureUrl"`
	StorageObjectID string        `json:"storageObjectId"`
	Thumbnail       string        `json:"thumbnail,omitempty"`
	CapturedAt      time.Time     `json:"capturedAt"`
	Metadata        PhotoMetadata `json:"metadata"`
	Tags            []string      `json:"tags,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}
