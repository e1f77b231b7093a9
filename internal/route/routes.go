package route

import (
	"net/http"
	"os"

	"camvault/internal/handler"
	"camvault/internal/logger"
	"camvault/internal/metrics"
	"camvault/internal/middleware"
	"camvault/internal/objectstore"
	"camvault/internal/repository"
	"camvault/internal/service/camera"
	"camvault/internal/service/snapshot"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Registry *camera.Registry
	Pipeline *snapshot.Pipeline
	Frames   handler.FrameSource
	Sessions *handler.CaptureSessions
	Store    repository.Store
	Objects  objectstore.Store
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	// MediaDir is served under /media/ when set (filesystem object store).
	MediaDir string
}

// SetupRoutes registers the API, health, metrics, media and log endpoints,
// and wraps the mux with access logging and panic recovery.
func SetupRoutes(d Dependencies) http.Handler {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthHandler(d.Store, d.Objects, log))
	if d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Cameras
	mux.HandleFunc("GET /api/cameras", handler.ListCamerasHandler(d.Registry, log))
	mux.HandleFunc("POST /api/cameras", handler.CreateCameraHandler(d.Registry, log))
	mux.HandleFunc("GET /api/cameras/{id}", handler.GetCameraHandler(d.Registry, log))
	mux.HandleFunc("PUT /api/cameras/{id}", handler.UpdateCameraHandler(d.Registry, log))
	mux.HandleFunc("PATCH /api/cameras/{id}", handler.UpdateCameraHandler(d.Registry, log))
	mux.HandleFunc("DELETE /api/cameras/{id}", handler.DeleteCameraHandler(d.Registry, log))
	mux.HandleFunc("POST /api/cameras/{id}/snapshot", handler.SnapshotHandler(d.Registry, d.Frames, d.Pipeline, log))
	mux.HandleFunc("GET /api/cameras/{id}/capture", handler.CaptureSessionHandler(d.Registry, d.Frames, d.Pipeline, d.Sessions, log, d.Metrics))

	// Photos
	mux.HandleFunc("POST /api/photos", handler.UploadPhotoHandler(d.Pipeline, log))
	mux.HandleFunc("GET /api/photos", handler.ListPhotosHandler(d.Pipeline, log))
	mux.HandleFunc("GET /api/photos/{id}", handler.GetPhotoHandler(d.Pipeline, log))
	mux.HandleFunc("DELETE /api/photos/{id}", handler.DeletePhotoHandler(d.Pipeline, log))

	// Static media for the filesystem object store
	if d.MediaDir != "" {
		mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(blobFS{http.Dir(d.MediaDir)})))
	}

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(log))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(log))

	return middleware.Logging(log, d.Metrics)(middleware.Recover(log)(mux))
}

// blobFS serves stored blobs but hides directories, so public ids cannot be listed.
type blobFS struct {
	fs http.FileSystem
}

func (b blobFS) Open(name string) (http.File, error) {
	f, err := b.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
