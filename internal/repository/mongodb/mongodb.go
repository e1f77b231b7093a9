// Package mongodb implements the metadata store on a MongoDB document database.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"camvault/internal/repository"
)

const (
	cameraCollection = "cameras"
	photoCollection  = "photos"
)

// Store holds the client and the two collections.
type Store struct {
	client  *mongo.Client
	cameras *CameraRepository
	photos  *PhotoRepository
}

// Connect opens a client, verifies the server is reachable and declares the indexes,
// including the unique constraints on cameras.url and photos.storageObjectId.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:  client,
		cameras: NewCameraRepository(db.Collection(cameraCollection)),
		photos:  NewPhotoRepository(db.Collection(photoCollection)),
	}

	if err := s.ensureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context, db *mongo.Database) error {
	cameraIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "lastUsed", Value: -1}}},
		{Keys: bson.D{{Key: "url", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := db.Collection(cameraCollection).Indexes().CreateMany(ctx, cameraIndexes); err != nil {
		return fmt.Errorf("cameras: %w", err)
	}

	photoIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "cameraName", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "capturedAt", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "storageObjectId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := db.Collection(photoCollection).Indexes().CreateMany(ctx, photoIndexes); err != nil {
		return fmt.Errorf("photos: %w", err)
	}
	return nil
}

// Cameras returns the camera repository.
func (s *Store) Cameras() repository.CameraRepository {
	return s.cameras
}

// Photos returns the photo repository.
func (s *Store) Photos() repository.PhotoRepository {
	return s.photos
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// objectID parses an opaque identifier. Malformed ids never match a document.
func objectID(id string) (bson.ObjectID, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, false
	}
	return oid, true
}

func mapWriteError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to %s: %w", op, repository.ErrDuplicate)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
