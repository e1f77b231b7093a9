package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"camvault/internal/dto"
	"camvault/internal/model"
	"camvault/internal/repository"
)

func TestObjectID(t *testing.T) {
	oid := bson.NewObjectID()

	parsed, ok := objectID(oid.Hex())
	require.True(t, ok)
	assert.Equal(t, oid, parsed)

	for _, bad := range []string{"", "42", "not-hex", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		_, ok := objectID(bad)
		assert.False(t, ok, "id %q should be rejected", bad)
	}
}

func TestCameraDoc_RoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	cam := &model.Camera{
		ID:        bson.NewObjectID().Hex(),
		Name:      "Porch",
		URL:       "http://porch/video",
		Kind:      model.CameraKindWebcam,
		Active:    true,
		LastUsed:  now,
		Metadata:  &model.CameraMetadata{Resolution: "1920x1080", FPS: 25},
		CreatedAt: now,
		UpdatedAt: now,
	}

	back := toCameraDoc(cam).toModel()
	assert.Equal(t, *cam, back)

	cam.Metadata = nil
	assert.Nil(t, toCameraDoc(cam).Metadata)
}

func TestPhotoDoc_RoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	photo := &model.Photo{
		ID:              bson.NewObjectID().Hex(),
		CameraName:      "Porch",
		CameraURL:       "http://porch/video",
		ImageURL:        "http://res/x.jpg",
		SecureURL:       "https://res/x.jpg",
		StorageObjectID: "snapshots/x",
		CapturedAt:      now,
		Metadata:        model.PhotoMetadata{Width: 640, Height: 480, Format: "jpeg", Size: 2048},
		Tags:            []string{"imported"},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	assert.Equal(t, *photo, toPhotoDoc(photo).toModel())
}

func TestFilterDocs(t *testing.T) {
	assert.Equal(t, bson.M{}, cameraFilterDoc(dto.CameraFilters{}))
	assert.Equal(t, bson.M{"isActive": true}, cameraFilterDoc(dto.CameraFilters{ActiveOnly: true}))
	assert.Equal(t, bson.M{"cameraName": "cam1"}, photoFilterDoc(dto.PhotoFilters{CameraName: "cam1", Limit: 5}))
}

// Integration tests run against a live server when MONGODB_TEST_URI is set.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbName := "camvault_test_" + bson.NewObjectID().Hex()
	store, err := Connect(ctx, uri, dbName)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.client.Database(dbName).Drop(context.Background())
		_ = store.Close()
	})
	return store
}

func TestStore_CameraLifecycle(t *testing.T) {
	store := setupTestStore(t)
	repo := store.Cameras()
	ctx := context.Background()

	cam := &model.Camera{Name: "Garage", URL: "http://garage/video", Kind: model.CameraKindIP, Active: true}
	id, err := repo.Insert(ctx, cam)
	require.NoError(t, err)

	_, err = repo.Insert(ctx, &model.Camera{Name: "Other", URL: "http://garage/video", Kind: model.CameraKindIP, Active: true})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Garage", got.Name)

	cam.Name = "Garage East"
	require.NoError(t, repo.Update(ctx, cam))

	got, err = repo.GetByURL(ctx, "http://garage/video")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Garage East", got.Name)

	deleted, err := repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_PhotoPagination(t *testing.T) {
	store := setupTestStore(t)
	repo := store.Photos()
	ctx := context.Background()

	base := time.Date(2025, 1, 4, 14, 30, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		id, err := repo.Insert(ctx, &model.Photo{
			CameraName:      "cam1",
			StorageObjectID: bson.NewObjectID().Hex(),
			CapturedAt:      base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	page, err := repo.Find(ctx, dto.PhotoFilters{Limit: 2, Skip: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)

	total, err := repo.Count(ctx, dto.PhotoFilters{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}
