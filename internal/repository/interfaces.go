package repository

import (
	"context"
	"errors"

	"camvault/internal/dto"
	"camvault/internal/model"
)

var (
	// ErrNotFound indicates the record addressed by an update does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a uniqueness constraint rejected the write.
	ErrDuplicate = errors.New("repository: duplicate key")
)

// Store groups the metadata collections and the connection lifecycle.
type Store interface {
	Cameras() CameraRepository
	Photos() PhotoRepository
	Ping(ctx context.Context) error
	Close() error
}

// CameraRepository defines the interface for camera data operations.
// Camera.URL is unique; writes violating it fail with ErrDuplicate.
type CameraRepository interface {
	// Create operations
	Insert(ctx context.Context, cam *model.Camera) (string, error)

	// Read operations
	GetByID(ctx context.Context, id string) (*model.Camera, error)
	GetByURL(ctx context.Context, url string) (*model.Camera, error)
	Find(ctx context.Context, filter dto.CameraFilters) ([]model.Camera, error)
	Count(ctx context.Context, filter dto.CameraFilters) (int, error)

	// Update operations
	Update(ctx context.Context, cam *model.Camera) error

	// Delete operations
	Delete(ctx context.Context, id string) (bool, error)
}

// PhotoRepository defines the interface for photo data operations.
// Photo.StorageObjectID is unique; writes violating it fail with ErrDuplicate.
type PhotoRepository interface {
	// Create operations
	Insert(ctx context.Context, photo *model.Photo) (string, error)

	// Read operations
	GetByID(ctx context.Context, id string) (*model.Photo, error)
	Find(ctx context.Context, filter dto.PhotoFilters) ([]model.Photo, error)
	Count(ctx context.Context, filter dto.PhotoFilters) (int, error)

	// Delete operations
	Delete(ctx context.Context, id string) (bool, error)
}
