package handler

import (
	"encoding/json"
	"net/http"

	"camvault/internal/apperror"
	"camvault/internal/dto"
	"camvault/internal/logger"
	"camvault/internal/model"
	"camvault/internal/service/camera"
)

// maxCameraBody bounds JSON camera payloads.
const maxCameraBody = 64 << 10

// ListCamerasHandler returns active cameras, most recently used first.
func ListCamerasHandler(registry *camera.Registry, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cameras, err := registry.List(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if cameras == nil {
			cameras = []model.Camera{}
		}
		writeData(w, logger, http.StatusOK, cameras)
	}
}

// CreateCameraHandler registers a camera from a JSON body.
func CreateCameraHandler(registry *camera.Registry, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in dto.CameraCreate
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, logger, apperror.Validation("create camera", "invalid request body: %v", err))
			return
		}

		cam, err := registry.Create(r.Context(), in)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusCreated, cam)
	}
}

// GetCameraHandler returns one camera by id.
func GetCameraHandler(registry *camera.Registry, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cam, err := registry.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, cam)
	}
}

// UpdateCameraHandler applies a partial update. PUT and PATCH share the same semantics.
func UpdateCameraHandler(registry *camera.Registry, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch dto.CameraPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			writeError(w, logger, apperror.Validation("update camera", "invalid request body: %v", err))
			return
		}

		cam, err := registry.Update(r.Context(), r.PathValue("id"), patch)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, cam)
	}
}

// DeleteCameraHandler removes a camera. Its photos are kept.
func DeleteCameraHandler(registry *camera.Registry, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := registry.Delete(r.Context(), id); err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, map[string]string{"id": id})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxCameraBody)
	return json.NewDecoder(r.Body).Decode(v)
}
