package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const thumbnailTransformation = "c_thumb,w_320"

// uploadAPI is the subset of the Cloudinary upload API used here. *uploader.API satisfies it.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// adminAPI is the health check subset of the Cloudinary admin API.
type adminAPI interface {
	Ping(ctx context.Context) (*admin.PingResult, error)
}

// Cloudinary stores blobs as Cloudinary image assets.
type Cloudinary struct {
	api   uploadAPI
	admin adminAPI
}

// NewCloudinary creates a store from account credentials.
func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	return &Cloudinary{api: &cld.Upload, admin: &cld.Admin}, nil
}

// Upload sends data as an image asset into folder.
func (s *Cloudinary) Upload(ctx context.Context, data []byte, folder string) (UploadResult, error) {
	resp, err := s.api.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       cleanFolder(folder),
		ResourceType: "image",
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to upload to cloudinary: %w", err)
	}
	if resp == nil {
		return UploadResult{}, errors.New("failed to upload to cloudinary: empty response")
	}
	if resp.Error.Message != "" {
		return UploadResult{}, fmt.Errorf("failed to upload to cloudinary: %s", resp.Error.Message)
	}
	if resp.PublicID == "" {
		return UploadResult{}, errors.New("failed to upload to cloudinary: no public id returned")
	}

	return UploadResult{
		URL:       resp.URL,
		SecureURL: resp.SecureURL,
		PublicID:  resp.PublicID,
		Thumbnail: thumbnailURL(resp.SecureURL),
		Width:     resp.Width,
		Height:    resp.Height,
	}, nil
}

// Delete destroys the asset. "not found" counts as already deleted.
func (s *Cloudinary) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPublicID, publicID)
	}

	resp, err := s.api.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("failed to destroy %s: %w", publicID, err)
	}
	if resp == nil {
		return fmt.Errorf("failed to destroy %s: empty response", publicID)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("failed to destroy %s: %s", publicID, resp.Error.Message)
	}

	switch resp.Result {
	case "ok", "not found":
		return nil
	default:
		return fmt.Errorf("failed to destroy %s: unexpected result %q", publicID, resp.Result)
	}
}

// Ping calls the admin ping endpoint.
func (s *Cloudinary) Ping(ctx context.Context) error {
	if s.admin == nil {
		return nil
	}
	resp, err := s.admin.Ping(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("failed to ping cloudinary: %s", resp.Error.Message)
	}
	return nil
}

// thumbnailURL inserts the thumbnail transformation into a delivery URL.
func thumbnailURL(secureURL string) string {
	if !strings.Contains(secureURL, "/upload/") {
		return ""
	}
	return strings.Replace(secureURL, "/upload/", "/upload/"+thumbnailTransformation+"/", 1)
}
