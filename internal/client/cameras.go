package client

import (
	"context"
	"fmt"
	"net/url"

	"camvault/internal/dto"
	"camvault/internal/model"
)

// ListCameras returns active cameras, most recently used first.
func (c *Client) ListCameras(ctx context.Context) ([]model.Camera, error) {
	var respData envelope[[]model.Camera]

	resp, err := c.request(ctx).
		SetResult(&respData).
		Get("/api/cameras")
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("list cameras", resp)
	}
	return respData.Data, nil
}

// GetCamera returns one camera.
func (c *Client) GetCamera(ctx context.Context, id string) (*model.Camera, error) {
	var respData envelope[*model.Camera]

	resp, err := c.request(ctx).
		SetResult(&respData).
		Get("/api/cameras/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("get camera", resp)
	}
	return respData.Data, nil
}

// CreateCamera registers a camera.
func (c *Client) CreateCamera(ctx context.Context, in dto.CameraCreate) (*model.Camera, error) {
	var respData envelope[*model.Camera]

	resp, err := c.request(ctx).
		SetBody(in).
		SetResult(&respData).
		Post("/api/cameras")
	if err != nil {
		return nil, fmt.Errorf("failed to create camera: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("create camera", resp)
	}
	return respData.Data, nil
}

// UpdateCamera applies a partial update.
func (c *Client) UpdateCamera(ctx context.Context, id string, patch dto.CameraPatch) (*model.Camera, error) {
	var respData envelope[*model.Camera]

	resp, err := c.request(ctx).
		SetBody(patch).
		SetResult(&respData).
		Patch("/api/cameras/" + url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("failed to update camera: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("update camera", resp)
	}
	return respData.Data, nil
}

// DeleteCamera removes a camera. Its photos are kept.
func (c *Client) DeleteCamera(ctx context.Context, id string) error {
	resp, err := c.request(ctx).Delete("/api/cameras/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("failed to delete camera: %w", err)
	}
	if resp.IsError() {
		return apiError("delete camera", resp)
	}
	return nil
}

// Snapshot asks the server to grab and store one frame from the camera.
func (c *Client) Snapshot(ctx context.Context, id string) (*dto.IngestResult, error) {
	var respData envelope[*dto.IngestResult]

	resp, err := c.request(ctx).
		SetResult(&respData).
		Post("/api/cameras/" + url.PathEscape(id) + "/snapshot")
	if err != nil {
		return nil, fmt.Errorf("failed to take snapshot: %w", err)
	}
	if resp.IsError() {
		return nil, apiError("take snapshot", resp)
	}
	return respData.Data, nil
}
