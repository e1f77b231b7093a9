package handler

import (
	"context"
	"net/http"
	"time"

	"camvault/internal/logger"
	"camvault/internal/objectstore"
	"camvault/internal/repository"
)

const healthTimeout = 3 * time.Second

type healthChecks struct {
	MetadataStore string `json:"metadataStore"`
	ObjectStore   string `json:"objectStore"`
	Timestamp     string `json:"timestamp"`
}

type healthResponse struct {
	Status string       `json:"status"`
	Checks healthChecks `json:"checks"`
}

// HealthHandler reports reachability of the metadata and object stores.
// A failing store yields status "degraded" and 503.
func HealthHandler(store repository.Store, objects objectstore.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{
			Status: "ok",
			Checks: healthChecks{
				MetadataStore: "connected",
				ObjectStore:   "connected",
				Timestamp:     time.Now().UTC().Format(time.RFC3339),
			},
		}

		if err := store.Ping(ctx); err != nil {
			logger.Warning("Health check: metadata store unreachable: %v", err)
			resp.Status = "degraded"
			resp.Checks.MetadataStore = err.Error()
		}
		if err := objectstore.Ping(ctx, objects); err != nil {
			logger.Warning("Health check: object store unreachable: %v", err)
			resp.Status = "degraded"
			resp.Checks.ObjectStore = err.Error()
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, logger, status, resp)
	}
}
