// Package objectstore uploads snapshot bytes to blob storage and deletes them by public id.
package objectstore

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrInvalidPublicID is returned for ids that are empty or escape the store root.
var ErrInvalidPublicID = errors.New("objectstore: invalid public id")

// UploadResult describes a stored blob.
type UploadResult struct {
	URL       string
	SecureURL string
	PublicID  string
	Thumbnail string
	Width     int
	Height    int
}

// Store is the blob storage capability used by the snapshot pipeline.
type Store interface {
	Upload(ctx context.Context, data []byte, folder string) (UploadResult, error)
	// Delete removes the blob. Deleting an absent blob is not an error.
	Delete(ctx context.Context, publicID string) error
}

// Pinger is implemented by stores that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks s if it implements Pinger. Other stores are assumed reachable.
func Ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// SniffExtension returns the file extension for the image type detected in data.
func SniffExtension(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/bmp":
		return "bmp"
	default:
		return "bin"
	}
}

func cleanFolder(folder string) string {
	return strings.Trim(strings.TrimSpace(folder), "/")
}
