package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"camvault/internal/apperror"
	"camvault/internal/dto"
	"camvault/internal/logger"
	"camvault/internal/service/snapshot"
)

// multipartOverhead is the allowance for form fields on top of the image itself.
const multipartOverhead = 1 << 20

type photoListResponse struct {
	Success bool `json:"success"`
	*dto.PhotoPage
}

// UploadPhotoHandler ingests a multipart upload with cameraName, cameraUrl, image and optional tags.
func UploadPhotoHandler(pipeline *snapshot.Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readIngestForm(w, r, pipeline.MaxBytes())
		if err != nil {
			writeError(w, logger, err)
			return
		}

		res, err := pipeline.Ingest(r.Context(), req)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusCreated, res)
	}
}

// ListPhotosHandler returns a page of photos. Query: limit, skip, cameraName.
func ListPhotosHandler(pipeline *snapshot.Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := dto.PhotoFilters{
			CameraName: strings.TrimSpace(q.Get("cameraName")),
			Limit:      atoiDefault(q.Get("limit"), snapshot.DefaultListLimit),
			Skip:       atoiDefault(q.Get("skip"), 0),
		}

		page, err := pipeline.List(r.Context(), filter)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, photoListResponse{Success: true, PhotoPage: page})
	}
}

// GetPhotoHandler returns one photo by id.
func GetPhotoHandler(pipeline *snapshot.Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		photo, err := pipeline.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, photo)
	}
}

// DeletePhotoHandler removes the stored image and then its record.
func DeletePhotoHandler(pipeline *snapshot.Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := pipeline.Delete(r.Context(), id); err != nil {
			writeError(w, logger, err)
			return
		}
		writeData(w, logger, http.StatusOK, map[string]string{"id": id})
	}
}

func readIngestForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (dto.IngestRequest, error) {
	const op = "upload photo"

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dto.IngestRequest{}, apperror.Validation(op, "request exceeds %d bytes", tooLarge.Limit)
		}
		return dto.IngestRequest{}, apperror.Validation(op, "invalid multipart form: %v", err)
	}
	defer r.MultipartForm.RemoveAll()

	req := dto.IngestRequest{
		CameraName: r.FormValue("cameraName"),
		CameraURL:  r.FormValue("cameraUrl"),
		Tags:       splitTags(r.MultipartForm.Value["tags"]),
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		// The pipeline reports the missing image alongside the other required fields.
		return req, nil
	}
	if err != nil {
		return req, apperror.Validation(op, "invalid image part: %v", err)
	}
	defer file.Close()

	// One byte past the limit is enough for the pipeline to reject it.
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return req, fmt.Errorf("failed to read uploaded image: %w", err)
	}
	req.Image = data
	req.ContentType = header.Header.Get("Content-Type")
	return req, nil
}

// splitTags accepts repeated tags fields as well as comma separated values.
func splitTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}
