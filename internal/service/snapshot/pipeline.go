// Package snapshot turns captured image bytes into stored photos and removes them again.
package snapshot

import (
	"context"
	"mime"
	"net/http"
	"strings"
	"time"

	"camvault/internal/apperror"
	"camvault/internal/dto"
	"camvault/internal/logger"
	"camvault/internal/metrics"
	"camvault/internal/model"
	"camvault/internal/objectstore"
	"camvault/internal/repository"
)

const (
	DefaultFolder    = "camvault/snapshots"
	DefaultMaxBytes  = 10 << 20
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// Reconciliation reasons reported to metrics.
const (
	ReasonOrphanedBlob   = "orphaned_blob"
	ReasonDanglingRecord = "dangling_record"
)

// Pipeline orders every ingest as upload-then-persist and every delete as
// blob-then-record. Neither is compensated on partial failure.
type Pipeline struct {
	photos   repository.PhotoRepository
	objects  objectstore.Store
	folder   string
	maxBytes int64
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFolder sets the logical object store folder for uploads.
func WithFolder(folder string) Option {
	return func(p *Pipeline) {
		if folder != "" {
			p.folder = folder
		}
	}
}

// WithMaxBytes bounds the accepted image size.
func WithMaxBytes(n int64) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// WithNow overrides the clock used for capturedAt.
func WithNow(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline over the photo repository and object store.
func NewPipeline(photos repository.PhotoRepository, objects objectstore.Store, log *logger.Logger, m *metrics.Metrics, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	p := &Pipeline{
		photos:   photos,
		objects:  objects,
		folder:   DefaultFolder,
		maxBytes: DefaultMaxBytes,
		logger:   log.Component("pipeline"),
		metrics:  m,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxBytes returns the largest accepted image.
func (p *Pipeline) MaxBytes() int64 {
	return p.maxBytes
}

// Ingest uploads the image and then records a Photo referencing it.
func (p *Pipeline) Ingest(ctx context.Context, req dto.IngestRequest) (res *dto.IngestResult, err error) {
	const op = "ingest photo"
	defer func() { p.metrics.PhotoIngest(err) }()

	cameraName := strings.TrimSpace(req.CameraName)
	cameraURL := strings.TrimSpace(req.CameraURL)
	switch {
	case cameraName == "":
		return nil, apperror.Validation(op, "cameraName is required")
	case cameraURL == "":
		return nil, apperror.Validation(op, "cameraUrl is required")
	case len(req.Image) == 0:
		return nil, apperror.Validation(op, "image is required")
	case int64(len(req.Image)) > p.maxBytes:
		return nil, apperror.Validation(op, "image is %d bytes, limit is %d", len(req.Image), p.maxBytes)
	}

	upload, err := p.objects.Upload(ctx, req.Image, p.folder)
	if err != nil {
		p.logger.Error("Upload for camera %s failed: %v", cameraName, err)
		return nil, apperror.Storage(op, err)
	}

	photo := &model.Photo{
		CameraName:      cameraName,
		CameraURL:       cameraURL,
		ImageURL:        upload.URL,
		SecureURL:       upload.SecureURL,
		StorageObjectID: upload.PublicID,
		Thumbnail:       upload.Thumbnail,
		CapturedAt:      p.now().UTC(),
		Metadata: model.PhotoMetadata{
			Width:  upload.Width,
			Height: upload.Height,
			Format: imageFormat(req.ContentType, req.Image),
			Size:   int64(len(req.Image)),
		},
		Tags: cleanTags(req.Tags),
	}

	if _, err := p.photos.Insert(ctx, photo); err != nil {
		// The blob stays behind; it is reported, never compensated inline.
		p.logger.Warning("Reconciliation candidate: orphaned blob %s after metadata write failed: %v", upload.PublicID, err)
		p.metrics.ReconciliationCandidate(ReasonOrphanedBlob)
		return nil, apperror.Persistence(op, err)
	}

	p.logger.Info("Stored photo %s from %s as %s", photo.ID, cameraName, upload.PublicID)

	displayURL := photo.SecureURL
	if displayURL == "" {
		displayURL = photo.ImageURL
	}
	return &dto.IngestResult{
		ID:         photo.ID,
		ImageURL:   displayURL,
		CameraName: photo.CameraName,
		CapturedAt: photo.CapturedAt,
	}, nil
}

// Get returns a single photo.
func (p *Pipeline) Get(ctx context.Context, id string) (*model.Photo, error) {
	photo, err := p.photos.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Persistence("get photo", err)
	}
	if photo == nil {
		return nil, apperror.NotFound("get photo", "photo %q not found", id)
	}
	return photo, nil
}

// List returns one page of photos, most recent capture first.
func (p *Pipeline) List(ctx context.Context, filter dto.PhotoFilters) (*dto.PhotoPage, error) {
	filter = normalizePage(filter)

	photos, err := p.photos.Find(ctx, filter)
	if err != nil {
		return nil, apperror.Persistence("list photos", err)
	}
	total, err := p.photos.Count(ctx, filter)
	if err != nil {
		return nil, apperror.Persistence("count photos", err)
	}
	if photos == nil {
		photos = []model.Photo{}
	}

	return &dto.PhotoPage{
		Data:    photos,
		Total:   total,
		Limit:   filter.Limit,
		Skip:    filter.Skip,
		HasMore: filter.Skip+filter.Limit < total,
	}, nil
}

// Delete removes the blob and then the record. A failed blob delete keeps the record.
func (p *Pipeline) Delete(ctx context.Context, id string) (err error) {
	const op = "delete photo"
	defer func() { p.metrics.PhotoDelete(err) }()

	photo, err := p.photos.GetByID(ctx, id)
	if err != nil {
		return apperror.Persistence(op, err)
	}
	if photo == nil {
		return apperror.NotFound(op, "photo %q not found", id)
	}

	if err := p.objects.Delete(ctx, photo.StorageObjectID); err != nil {
		p.logger.Error("Deleting blob %s for photo %s failed, record kept: %v", photo.StorageObjectID, id, err)
		return apperror.Storage(op, err)
	}

	deleted, err := p.photos.Delete(ctx, id)
	if err != nil {
		p.logger.Warning("Reconciliation candidate: dangling record %s, blob %s already deleted: %v", id, photo.StorageObjectID, err)
		p.metrics.ReconciliationCandidate(ReasonDanglingRecord)
		return apperror.Persistence(op, err)
	}
	if !deleted {
		// Removed concurrently between lookup and delete.
		return apperror.NotFound(op, "photo %q not found", id)
	}

	p.logger.Info("Deleted photo %s (%s)", id, photo.StorageObjectID)
	return nil
}

func normalizePage(filter dto.PhotoFilters) dto.PhotoFilters {
	filter.CameraName = strings.TrimSpace(filter.CameraName)
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	return filter
}

// imageFormat is the subtype of the declared content type, sniffed when absent or generic.
func imageFormat(contentType string, data []byte) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	if _, sub, ok := strings.Cut(mediaType, "/"); ok {
		return sub
	}
	return mediaType
}

func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
