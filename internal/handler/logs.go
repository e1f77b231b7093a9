package handler

import (
	"net/http"
	"os"

	"camvault/internal/logger"
)

// ShowLogsHandler serves the {level}.log file as text/plain.
func ShowLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		level := r.PathValue("level")
		filePath, err := logger.FilePath(level)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Log file not found: " + level))
			return
		}
		serveLogFile(w, r, filePath, level+".log")
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, filePath, filename string) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates {level}.log via the logger utility.
func ClearLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		level := r.PathValue("level")
		if _, err := logger.FilePath(level); err != nil {
			http.Error(w, "unknown log level", http.StatusNotFound)
			return
		}
		if err := logger.CleanLogs(level + ".log"); err != nil {
			http.Error(w, "failed to clear log file", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
