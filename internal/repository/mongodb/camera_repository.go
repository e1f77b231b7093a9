package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"camvault/internal/dto"
	"camvault/internal/model"
	"camvault/internal/repository"
)

type cameraMetadataDoc struct {
	Resolution string  `bson:"resolution,omitempty"`
	FPS        float64 `bson:"fps,omitempty"`
}

type cameraDoc struct {
	ID        bson.ObjectID      `bson:"_id"`
	Name      string             `bson:"name"`
	URL       string             `bson:"url"`
	Kind      string             `bson:"type"`
	Active    bool               `bson:"isActive"`
	LastUsed  time.Time          `bson:"lastUsed"`
	Metadata  *cameraMetadataDoc `bson:"metadata,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func toCameraDoc(cam *model.Camera) cameraDoc {
	doc := cameraDoc{
		Name:      cam.Name,
		URL:       cam.URL,
		Kind:      string(cam.Kind),
		Active:    cam.Active,
		LastUsed:  cam.LastUsed.UTC(),
		CreatedAt: cam.CreatedAt.UTC(),
		UpdatedAt: cam.UpdatedAt.UTC(),
	}
	if oid, ok := objectID(cam.ID); ok {
		doc.ID = oid
	}
	if cam.Metadata != nil {
		doc.Metadata = &cameraMetadataDoc{Resolution: cam.Metadata.Resolution, FPS: cam.Metadata.FPS}
	}
	return doc
}

func (d cameraDoc) toModel() model.Camera {
	cam := model.Camera{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		URL:       d.URL,
		Kind:      model.CameraKind(d.Kind),
		Active:    d.Active,
		LastUsed:  d.LastUsed,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Metadata != nil {
		cam.Metadata = &model.CameraMetadata{Resolution: d.Metadata.Resolution, FPS: d.Metadata.FPS}
	}
	return cam
}

func cameraFilterDoc(filter dto.CameraFilters) bson.M {
	query := bson.M{}
	if filter.ActiveOnly {
		query["isActive"] = true
	}
	return query
}

// CameraRepository implements repository.CameraRepository on a collection.
type CameraRepository struct {
	coll *mongo.Collection
}

// NewCameraRepository creates a camera repository over coll.
func NewCameraRepository(coll *mongo.Collection) *CameraRepository {
	return &CameraRepository{coll: coll}
}

// Insert adds a new camera document and fills in its ID and timestamps.
func (r *CameraRepository) Insert(ctx context.Context, cam *model.Camera) (string, error) {
	now := time.Now().UTC()
	if cam.LastUsed.IsZero() {
		cam.LastUsed = now
	}
	cam.CreatedAt = now
	cam.UpdatedAt = now

	doc := toCameraDoc(cam)
	doc.ID = bson.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return "", mapWriteError("insert camera", err)
	}

	cam.ID = doc.ID.Hex()
	return cam.ID, nil
}

// GetByID retrieves a camera by its ID.
func (r *CameraRepository) GetByID(ctx context.Context, id string) (*model.Camera, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// GetByURL retrieves a camera by its URL.
func (r *CameraRepository) GetByURL(ctx context.Context, url string) (*model.Camera, error) {
	return r.findOne(ctx, bson.M{"url": url})
}

func (r *CameraRepository) findOne(ctx context.Context, filter bson.M) (*model.Camera, error) {
	var doc cameraDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}
	cam := doc.toModel()
	return &cam, nil
}

// Find retrieves cameras ordered by last use, most recent first.
func (r *CameraRepository) Find(ctx context.Context, filter dto.CameraFilters) ([]model.Camera, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastUsed", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.coll.Find(ctx, cameraFilterDoc(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query cameras: %w", err)
	}

	var docs []cameraDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode cameras: %w", err)
	}

	cameras := make([]model.Camera, 0, len(docs))
	for _, doc := range docs {
		cameras = append(cameras, doc.toModel())
	}
	return cameras, nil
}

// Count returns the number of cameras matching the filter.
func (r *CameraRepository) Count(ctx context.Context, filter dto.CameraFilters) (int, error) {
	n, err := r.coll.CountDocuments(ctx, cameraFilterDoc(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count cameras: %w", err)
	}
	return int(n), nil
}

// Update overwrites the mutable fields of an existing camera.
func (r *CameraRepository) Update(ctx context.Context, cam *model.Camera) error {
	oid, ok := objectID(cam.ID)
	if !ok {
		return fmt.Errorf("failed to update camera %q: %w", cam.ID, repository.ErrNotFound)
	}

	now := time.Now().UTC()
	set := bson.M{
		"name":      cam.Name,
		"url":       cam.URL,
		"type":      string(cam.Kind),
		"isActive":  cam.Active,
		"lastUsed":  cam.LastUsed.UTC(),
		"updatedAt": now,
	}
	update := bson.M{"$set": set}
	if cam.Metadata != nil {
		set["metadata"] = cameraMetadataDoc{Resolution: cam.Metadata.Resolution, FPS: cam.Metadata.FPS}
	} else {
		update["$unset"] = bson.M{"metadata": ""}
	}

	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return mapWriteError("update camera", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("failed to update camera %q: %w", cam.ID, repository.ErrNotFound)
	}

	cam.UpdatedAt = now
	return nil
}

// Delete removes a camera by its ID and reports whether a document was removed.
func (r *CameraRepository) Delete(ctx context.Context, id string) (bool, error) {
	oid, ok := objectID(id)
	if !ok {
		return false, nil
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("failed to delete camera: %w", err)
	}
	return result.DeletedCount > 0, nil
}
