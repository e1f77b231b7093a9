package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"camvault/internal/config"
	"camvault/internal/frame"
	"camvault/internal/handler"
	"camvault/internal/logger"
	"camvault/internal/metrics"
	"camvault/internal/objectstore"
	"camvault/internal/repository"
	"camvault/internal/repository/mongodb"
	"camvault/internal/repository/sqlite"
	"camvault/internal/route"
	"camvault/internal/service/camera"
	"camvault/internal/service/snapshot"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config   *config.Config
	logger   *logger.Logger
	store    repository.Store
	objects  objectstore.Store
	metrics  *metrics.Metrics
	registry *camera.Registry
	pipeline *snapshot.Pipeline
	sessions *handler.CaptureSessions
	handler  http.Handler
}

// NewApp opens the configured stores and builds the HTTP surface.
// The caller owns the returned App and must Close it.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	store, err := openMetadataStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	objects, mediaDir, err := openObjectStore(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	registry := camera.NewRegistry(store.Cameras(), log, m)
	pipeline := snapshot.NewPipeline(store.Photos(), objects, log, m,
		snapshot.WithFolder(cfg.ObjectFolder),
		snapshot.WithMaxBytes(cfg.MaxUploadBytes),
	)
	grabber := frame.NewGrabber(cfg.CaptureTimeout, cfg.MaxUploadBytes)

	a := &App{
		config:   cfg,
		logger:   log,
		store:    store,
		objects:  objects,
		metrics:  m,
		registry: registry,
		pipeline: pipeline,
		sessions: handler.NewCaptureSessions(),
	}
	a.handler = route.SetupRoutes(route.Dependencies{
		Registry: registry,
		Pipeline: pipeline,
		Frames:   grabber,
		Sessions: a.sessions,
		Store:    store,
		Objects:  objects,
		Logger:   log,
		Metrics:  m,
		Gatherer: reg,
		MediaDir: mediaDir,
	})

	log.Info("Metadata store: %s, object store: %s", cfg.MetadataStore, cfg.ObjectStore)
	return a, nil
}

func openMetadataStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.MetadataStore {
	case config.MetadataStoreMongo:
		store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to open metadata store: %w", err)
		}
		return store, nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open metadata store: %w", err)
		}
		return db, nil
	}
}

// openObjectStore also returns the directory to serve under /media/, if any.
func openObjectStore(cfg *config.Config) (objectstore.Store, string, error) {
	switch cfg.ObjectStore {
	case config.ObjectStoreCloudinary:
		store, err := objectstore.NewCloudinary(cfg.CloudName, cfg.CloudAPIKey, cfg.CloudAPISecret)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open object store: %w", err)
		}
		return store, "", nil
	default:
		store, err := objectstore.NewFilesystem(cfg.MediaDirectory, cfg.MediaBaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open object store: %w", err)
		}
		return store, store.Root(), nil
	}
}

// Handler returns the routed HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Pipeline returns the snapshot pipeline.
func (a *App) Pipeline() *snapshot.Pipeline {
	return a.pipeline
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.config.ServerAddress(),
		Handler:      a.handler,
		ReadTimeout:  a.config.ReadTimeout,
		WriteTimeout: a.config.WriteTimeout,
	}
	// Capture sessions are hijacked connections; Shutdown does not wait for them.
	srv.RegisterOnShutdown(a.sessions.CloseAll)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("camvault server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close tears down open capture sessions and releases the metadata store.
func (a *App) Close() error {
	a.sessions.CloseAll()
	return a.store.Close()
}
