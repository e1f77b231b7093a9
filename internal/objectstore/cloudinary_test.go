package objectstore

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploadAPI struct {
	uploadParams  uploader.UploadParams
	uploaded      []byte
	uploadResult  *uploader.UploadResult
	uploadErr     error
	destroyParams uploader.DestroyParams
	destroyResult *uploader.DestroyResult
	destroyErr    error
}

func (f *fakeUploadAPI) Upload(_ context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	f.uploadParams = params
	if r, ok := file.(io.Reader); ok {
		f.uploaded, _ = io.ReadAll(r)
	}
	return f.uploadResult, f.uploadErr
}

func (f *fakeUploadAPI) Destroy(_ context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	f.destroyParams = params
	return f.destroyResult, f.destroyErr
}

func TestCloudinary_Upload(t *testing.T) {
	fake := &fakeUploadAPI{uploadResult: &uploader.UploadResult{
		PublicID:  "camvault/snapshots/abc123",
		URL:       "http://res.cloudinary.com/demo/image/upload/v1/camvault/snapshots/abc123.jpg",
		SecureURL: "https://res.cloudinary.com/demo/image/upload/v1/camvault/snapshots/abc123.jpg",
		Width:     1280,
		Height:    720,
	}}
	store := &Cloudinary{api: fake}

	res, err := store.Upload(context.Background(), []byte("jpeg-bytes"), "camvault/snapshots")
	require.NoError(t, err)

	assert.Equal(t, "camvault/snapshots", fake.uploadParams.Folder)
	assert.Equal(t, "image", fake.uploadParams.ResourceType)
	assert.Equal(t, []byte("jpeg-bytes"), fake.uploaded)

	assert.Equal(t, "camvault/snapshots/abc123", res.PublicID)
	assert.Equal(t, 1280, res.Width)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/c_thumb,w_320/v1/camvault/snapshots/abc123.jpg", res.Thumbnail)
}

func TestCloudinary_UploadFailures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeUploadAPI
	}{
		{"transport error", &fakeUploadAPI{uploadErr: errors.New("dial tcp: timeout")}},
		{"api error", &fakeUploadAPI{uploadResult: &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid image file"}}}},
		{"nil response", &fakeUploadAPI{}},
		{"missing public id", &fakeUploadAPI{uploadResult: &uploader.UploadResult{SecureURL: "https://x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &Cloudinary{api: tt.fake}
			_, err := store.Upload(context.Background(), []byte("x"), "f")
			assert.Error(t, err)
		})
	}
}

func TestCloudinary_Delete(t *testing.T) {
	for _, result := range []string{"ok", "not found"} {
		fake := &fakeUploadAPI{destroyResult: &uploader.DestroyResult{Result: result}}
		store := &Cloudinary{api: fake}

		require.NoError(t, store.Delete(context.Background(), "camvault/snapshots/abc"), "result %q", result)
		assert.Equal(t, "camvault/snapshots/abc", fake.destroyParams.PublicID)
	}

	fake := &fakeUploadAPI{destroyResult: &uploader.DestroyResult{Result: "error"}}
	assert.Error(t, (&Cloudinary{api: fake}).Delete(context.Background(), "x"))

	fake = &fakeUploadAPI{destroyErr: errors.New("503")}
	assert.Error(t, (&Cloudinary{api: fake}).Delete(context.Background(), "x"))

	assert.ErrorIs(t, (&Cloudinary{api: &fakeUploadAPI{}}).Delete(context.Background(), ""), ErrInvalidPublicID)
}

func TestThumbnailURL(t *testing.T) {
	assert.Equal(t, "", thumbnailURL("https://example.com/raw.jpg"))
	assert.Equal(t, "https://h/upload/c_thumb,w_320/a.jpg", thumbnailURL("https://h/upload/a.jpg"))
}

type fakeAdminAPI struct {
	result *admin.PingResult
	err    error
}

func (f *fakeAdminAPI) Ping(ctx context.Context) (*admin.PingResult, error) {
	return f.result, f.err
}

func TestCloudinary_Ping(t *testing.T) {
	ok := &Cloudinary{api: &fakeUploadAPI{}, admin: &fakeAdminAPI{result: &admin.PingResult{Status: "ok"}}}
	assert.NoError(t, ok.Ping(context.Background()))

	down := &Cloudinary{api: &fakeUploadAPI{}, admin: &fakeAdminAPI{err: errors.New("dial tcp: timeout")}}
	assert.Error(t, down.Ping(context.Background()))

	rejected := &Cloudinary{api: &fakeUploadAPI{}, admin: &fakeAdminAPI{result: &admin.PingResult{Error: api.ErrorResp{Message: "Invalid api_key"}}}}
	assert.Error(t, rejected.Ping(context.Background()))

	assert.NoError(t, Ping(context.Background(), ok))
}
