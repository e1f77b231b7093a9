package client

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"camvault/internal/dto"
	"camvault/internal/model"
	"camvault/internal/objectstore"
)

type photoListResponse struct {
	Success bool `json:"success"`
	dto.PhotoPage
}

// ListPhotos returns one page of photos. Zero Limit and Skip use the server defaults.
func (c *Client) ListPhotos(ctx context.Context, filter dto.PhotoFilters) (*dto.PhotoPage, error) {
	var respData photoListResponse

	req := c.request(ctx).SetResult(&respData)
	if filter.CameraName != "" {
		req.SetQueryParam("cameraName", filter.CameraName)
	}
	if filter.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Skip > 0 {
		req.SetQueryParam("skip", strconv.Itoa(filter.Skip))
	}

	resp, err := req.Get("/api/photos")
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("list photos", resp)
	}
	if respData.Data == nil {
		respData.Data = []model.Photo{}
	}
	return &respData.PhotoPage, nil
}

// GetPhoto returns one photo.
func (c *Client) GetPhoto(ctx context.Context, id string) (*model.Photo, error) {
	var respData envelope[*model.Photo]

	resp, err := c.request(ctx).
		SetResult(&respData).
		Get("/api/photos/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("get photo", resp)
	}
	return respData.Data, nil
}

// IngestPhoto uploads one image as multipart form data.
func (c *Client) IngestPhoto(ctx context.Context, in dto.IngestRequest) (*dto.IngestResult, error) {
	var respData envelope[*dto.IngestResult]

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	fields := map[string]string{
		"cameraName": in.CameraName,
		"cameraUrl":  in.CameraURL,
	}
	if len(in.Tags) > 0 {
		fields["tags"] = strings.Join(in.Tags, ",")
	}

	resp, err := c.request(ctx).
		SetMultipartFormData(fields).
		SetMultipartField("image", "snapshot."+objectstore.SniffExtension(in.Image), contentType, bytes.NewReader(in.Image)).
		SetResult(&respData).
		Post("/api/photos")
	if err != nil {
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("upload photo", resp)
	}
	return respData.Data, nil
}

// DeletePhoto removes the stored image and its record.
func (c *Client) DeletePhoto(ctx context.Context, id string) error {
	resp, err := c.request(ctx).Delete("/api/photos/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	if resp.IsError() {
		return apiError("delete photo", resp)
	}
	return nil
}
