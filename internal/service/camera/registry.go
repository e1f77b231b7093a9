// Package camera maintains the deduplicated set of camera registrations.
package camera

import (
	"context"
	"errors"
	"strings"
	"time"

	"camvault/internal/apperror"
	"camvault/internal/dto"
	"camvault/internal/logger"
	"camvault/internal/metrics"
	"camvault/internal/model"
	"camvault/internal/repository"
)

// Registry enforces the camera invariants on top of a CameraRepository.
// It holds no mutable state; uniqueness of Camera.URL is guaranteed by the store.
type Registry struct {
	repo    repository.CameraRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithNow overrides the clock used for lastUsed.
func WithNow(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a registry. A nil logger discards output; nil metrics record nothing.
func NewRegistry(repo repository.CameraRepository, log *logger.Logger, m *metrics.Metrics, opts ...Option) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	r := &Registry{
		repo:    repo,
		logger:  log.Component("registry"),
		metrics: m,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns active cameras, most recently used first.
func (r *Registry) List(ctx context.Context) ([]model.Camera, error) {
	cameras, err := r.repo.Find(ctx, dto.CameraFilters{ActiveOnly: true})
	if err != nil {
		return nil, apperror.Persistence("list cameras", err)
	}
	return cameras, nil
}

// Count returns the number of active cameras.
func (r *Registry) Count(ctx context.Context) (int, error) {
	n, err := r.repo.Count(ctx, dto.CameraFilters{ActiveOnly: true})
	if err != nil {
		return 0, apperror.Persistence("count cameras", err)
	}
	return n, nil
}

// Create registers a new camera. The URL must not already be registered.
func (r *Registry) Create(ctx context.Context, in dto.CameraCreate) (cam *model.Camera, err error) {
	const op = "create camera"
	defer func() { r.metrics.CameraOp("create", err) }()

	cam = &model.Camera{
		Name:     strings.TrimSpace(in.Name),
		URL:      strings.TrimSpace(in.URL),
		Kind:     in.Kind,
		Active:   true,
		Metadata: in.Metadata,
	}
	if cam.Kind == "" {
		cam.Kind = model.CameraKindIP
	}
	if err := validate(op, cam); err != nil {
		return nil, err
	}

	// Fast path only; the unique constraint below is authoritative.
	existing, err := r.repo.GetByURL(ctx, cam.URL)
	if err != nil {
		return nil, apperror.Persistence(op, err)
	}
	if existing != nil {
		return nil, apperror.Conflict(op, "camera with url %q already exists", cam.URL)
	}

	cam.LastUsed = r.now().UTC()
	if _, err := r.repo.Insert(ctx, cam); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict(op, "camera with url %q already exists", cam.URL)
		}
		return nil, apperror.Persistence(op, err)
	}

	r.logger.Info("Camera %s registered (%s)", cam.ID, cam.URL)
	return cam, nil
}

// Get returns the camera with the given id.
func (r *Registry) Get(ctx context.Context, id string) (*model.Camera, error) {
	cam, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Persistence("get camera", err)
	}
	if cam == nil {
		return nil, apperror.NotFound("get camera", "camera %q not found", id)
	}
	return cam, nil
}

// Update applies the fields present in patch and refreshes lastUsed.
func (r *Registry) Update(ctx context.Context, id string, patch dto.CameraPatch) (cam *model.Camera, err error) {
	const op = "update camera"
	defer func() { r.metrics.CameraOp("update", err) }()

	cam, err = r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Persistence(op, err)
	}
	if cam == nil {
		return nil, apperror.NotFound(op, "camera %q not found", id)
	}

	if patch.Name != nil {
		cam.Name = strings.TrimSpace(*patch.Name)
	}
	urlChanged := false
	if patch.URL != nil {
		url := strings.TrimSpace(*patch.URL)
		urlChanged = url != cam.URL
		cam.URL = url
	}
	if patch.Kind != nil {
		cam.Kind = *patch.Kind
	}
	if patch.Metadata != nil {
		cam.Metadata = patch.Metadata
	}
	if err := validate(op, cam); err != nil {
		return nil, err
	}

	if urlChanged {
		existing, err := r.repo.GetByURL(ctx, cam.URL)
		if err != nil {
			return nil, apperror.Persistence(op, err)
		}
		if existing != nil && existing.ID != cam.ID {
			return nil, apperror.Conflict(op, "camera with url %q already exists", cam.URL)
		}
	}

	cam.LastUsed = r.now().UTC()
	if err := r.repo.Update(ctx, cam); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.NotFound(op, "camera %q not found", id)
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.Conflict(op, "camera with url %q already exists", cam.URL)
		default:
			return nil, apperror.Persistence(op, err)
		}
	}
	return cam, nil
}

// Delete removes the camera. Photos keep their copied camera fields.
func (r *Registry) Delete(ctx context.Context, id string) (err error) {
	const op = "delete camera"
	defer func() { r.metrics.CameraOp("delete", err) }()

	deleted, err := r.repo.Delete(ctx, id)
	if err != nil {
		return apperror.Persistence(op, err)
	}
	if !deleted {
		return apperror.NotFound(op, "camera %q not found", id)
	}

	r.logger.Info("Camera %s deleted", id)
	return nil
}

func validate(op string, cam *model.Camera) error {
	if cam.Name == "" {
		return apperror.Validation(op, "name is required")
	}
	if cam.URL == "" {
		return apperror.Validation(op, "url is required")
	}
	if !cam.Kind.Valid() {
		return apperror.Validation(op, "type must be %q or %q, got %q", model.CameraKindWebcam, model.CameraKindIP, cam.Kind)
	}
	if cam.Metadata != nil && cam.Metadata.FPS < 0 {
		return apperror.Validation(op, "fps must not be negative")
	}
	return nil
}
