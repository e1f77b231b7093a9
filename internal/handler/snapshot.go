package handler

import (
	"context"
	"net/http"

	"camvault/internal/capture"
	"camvault/internal/dto"
	"camvault/internal/frame"
	"camvault/internal/logger"
	"camvault/internal/service/camera"
	"camvault/internal/service/snapshot"
)

// FrameSource takes one still image from a camera URL.
type FrameSource interface {
	Grab(ctx context.Context, url string) (frame.Frame, error)
}

// serverCapturer grabs a frame on the server and ingests it under the given target.
func serverCapturer(frames FrameSource, pipeline *snapshot.Pipeline) capture.Capturer {
	return capture.CapturerFunc(func(ctx context.Context, target capture.Target) (*dto.IngestResult, error) {
		f, err := frames.Grab(ctx, target.URL)
		if err != nil {
			return nil, err
		}
		return pipeline.Ingest(ctx, dto.IngestRequest{
			CameraName:  target.Name,
			CameraURL:   target.URL,
			Image:       f.Data,
			ContentType: f.ContentType,
		})
	})
}

// SnapshotHandler captures one frame from a registered camera and stores it
// under the camera's current name and url.
func SnapshotHandler(registry *camera.Registry, frames FrameSource, pipeline *snapshot.Pipeline, logger *logger.Logger) http.HandlerFunc {
	capturer := serverCapturer(frames, pipeline)

	return func(w http.ResponseWriter, r *http.Request) {
		cam, err := registry.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, logger, err)
			return
		}

		res, err := capturer.Capture(r.Context(), capture.Target{Name: cam.Name, URL: cam.URL})
		if err != nil {
			logger.Warning("Snapshot from camera %s failed: %v", cam.ID, err)
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusCreated, res)
	}
}
