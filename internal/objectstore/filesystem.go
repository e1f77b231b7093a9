package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Filesystem stores blobs below a root directory and serves them under a base URL.
type Filesystem struct {
	root    string
	baseURL string
}

// NewFilesystem creates the root directory if needed.
func NewFilesystem(root, baseURL string) (*Filesystem, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Filesystem{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory blobs are written to.
func (s *Filesystem) Root() string {
	return s.root
}

// Upload writes data to <root>/<folder>/<uuid>.<ext>.
func (s *Filesystem) Upload(ctx context.Context, data []byte, folder string) (UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return UploadResult{}, err
	}

	publicID := path.Join(cleanFolder(folder), uuid.NewString()+"."+SniffExtension(data))
	fullpath, err := s.resolve(publicID)
	if err != nil {
		return UploadResult{}, err
	}

	if err := os.MkdirAll(filepath.Dir(fullpath), 0755); err != nil {
		return UploadResult{}, fmt.Errorf("failed to create folder %s: %w", folder, err)
	}
	if err := os.WriteFile(fullpath, data, 0644); err != nil {
		return UploadResult{}, fmt.Errorf("failed to write blob %s: %w", publicID, err)
	}

	url := s.baseURL + "/" + publicID
	result := UploadResult{
		URL:       url,
		SecureURL: url,
		PublicID:  publicID,
	}
	// Only the header is read; undecodable images simply have no dimensions.
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		result.Width = cfg.Width
		result.Height = cfg.Height
	}
	return result, nil
}

// Delete removes the blob. An absent blob is treated as already deleted.
func (s *Filesystem) Delete(ctx context.Context, publicID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullpath, err := s.resolve(publicID)
	if err != nil {
		return err
	}
	if err := os.Remove(fullpath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob %s: %w", publicID, err)
	}
	return nil
}

// Ping checks that the root is still a directory.
func (s *Filesystem) Ping(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("failed to stat media directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("media directory %s is not a directory", s.root)
	}
	return nil
}

// Exists reports whether a blob is stored under publicID.
func (s *Filesystem) Exists(publicID string) bool {
	fullpath, err := s.resolve(publicID)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullpath)
	return err == nil
}

func (s *Filesystem) resolve(publicID string) (string, error) {
	if publicID == "" || path.IsAbs(publicID) || strings.Contains(publicID, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPublicID, publicID)
	}
	for _, part := range strings.Split(publicID, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPublicID, publicID)
		}
	}
	return filepath.Join(s.root, filepath.FromSlash(path.Clean(publicID))), nil
}
