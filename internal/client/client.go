// Package client talks to the camvault HTTP API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"camvault/internal/apperror"

	"github.com/go-resty/resty/v2"
)

// Client is a thin resty wrapper around the camvault API.
type Client struct {
	HTTP *resty.Client
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// New creates a client for the server at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	r := resty.New()
	r.SetBaseURL(strings.TrimRight(baseURL, "/"))
	r.SetHeader("Accept", "application/json")
	if timeout > 0 {
		r.SetTimeout(timeout)
	}
	return &Client{HTTP: r}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.HTTP.R().SetContext(ctx)
}

// Health returns the server health report. A degraded server is not an error.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	resp, err := c.request(ctx).
		SetResult(&out).
		SetError(&out).
		Get("/health")
	if err != nil {
		return nil, fmt.Errorf("failed to check health: %w", err)
	}
	if out.Status == "" {
		return nil, fmt.Errorf("failed to check health: %s", resp.Status())
	}
	return &out, nil
}

// apiError converts an error response into a classified error.
// Bodies that are not API errors (a proxy page, say) map to KindUnknown.
func apiError(op string, resp *resty.Response) error {
	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.Error == "" {
		return fmt.Errorf("failed to %s: %w", op, &apperror.Error{
			Kind:    apperror.KindUnknown,
			Message: fmt.Sprintf("server returned %s", resp.Status()),
		})
	}
	return fmt.Errorf("failed to %s: %w", op, &apperror.Error{
		Kind:    apperror.ParseKind(body.Kind),
		Message: body.Error,
	})
}
