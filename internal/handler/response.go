package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"camvault/internal/apperror"
	"camvault/internal/capture"
	"camvault/internal/frame"
	"camvault/internal/logger"
)

// Error kinds reported on the wire in addition to the apperror taxonomy.
const (
	kindUnavailable = "camera_unavailable"
	kindBusy        = "busy"
	kindClosed      = "closed"
	kindCancelled   = "cancelled"
	kindInternal    = "internal"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, log *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error encoding JSON response: %v", err)
	}
}

func writeData(w http.ResponseWriter, log *logger.Logger, status int, data interface{}) {
	writeJSON(w, log, status, envelope{Success: true, Data: data})
}

// writeError maps err onto a status code and the {"success":false} body.
// Unclassified failures are logged and reported without their details.
func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	kind, status, msg := classify(err)
	if status == http.StatusInternalServerError {
		log.Error("Unhandled error: %v", err)
	}
	writeJSON(w, log, status, errorBody{Error: msg, Kind: kind})
}

// classify returns the wire kind, HTTP status and client-facing message of err.
func classify(err error) (string, int, string) {
	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		return string(appErr.Kind), apperror.HTTPStatus(appErr.Kind), appErr.Error()
	case errors.Is(err, frame.ErrUnavailable):
		return kindUnavailable, http.StatusBadGateway, err.Error()
	case errors.Is(err, capture.ErrBusy):
		return kindBusy, http.StatusConflict, err.Error()
	case errors.Is(err, capture.ErrCancelled):
		return kindCancelled, http.StatusConflict, err.Error()
	case errors.Is(err, capture.ErrClosed):
		return kindClosed, http.StatusGone, err.Error()
	default:
		return kindInternal, http.StatusInternalServerError, "internal server error"
	}
}

// atoiDefault parses s as int or returns def on error/empty.
func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
