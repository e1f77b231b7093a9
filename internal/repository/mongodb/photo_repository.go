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
)

type photoMetadataDoc struct {
	Width  int    `bson:"width,omitempty"`
	Height int    `bson:"height,omitempty"`
	Format string `bson:"format,omitempty"`
	Size   int64  `bson:"size,omitempty"`
}

type photoDoc struct {
	ID              bson.ObjectID    `bson:"_id"`
	CameraName      string           `bson:"cameraName"`
	CameraURL       string           `bson:"cameraUrl"`
	ImageURL        string           `bson:"imageUrl"`
	SecureURL       string           `bson:"secureUrl"`
	StorageObjectID string           `bson:"storageObjectId"`
	Thumbnail       string           `bson:"thumbnail,omitempty"`
	CapturedAt      time.Time        `bson:"capturedAt"`
	Metadata        photoMetadataDoc `bson:"metadata"`
	Tags            []string         `bson:"tags,omitempty"`
	CreatedAt       time.Time        `bson:"createdAt"`
	UpdatedAt       time.Time        `bson:"updatedAt"`
}

func toPhotoDoc(p *model.Photo) photoDoc {
	doc := photoDoc{
		CameraName:      p.CameraName,
		CameraURL:       p.CameraURL,
		ImageURL:        p.ImageURL,
		SecureURL:       p.SecureURL,
		StorageObjectID: p.StorageObjectID,
		Thumbnail:       p.Thumbnail,
		CapturedAt:      p.CapturedAt.UTC(),
		Metadata: photoMetadataDoc{
			Width:  p.Metadata.Width,
			Height: p.Metadata.Height,
			Format: p.Metadata.Format,
			Size:   p.Metadata.Size,
		},
		Tags:      p.Tags,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
	if oid, ok := objectID(p.ID); ok {
		doc.ID = oid
	}
	return doc
}

func (d photoDoc) toModel() model.Photo {
	return model.Photo{
		ID:              d.ID.Hex(),
		CameraName:      d.CameraName,
		CameraURL:       d.CameraURL,
		ImageURL:        d.ImageURL,
		SecureURL:       d.SecureURL,
		StorageObjectID: d.StorageObjectID,
		Thumbnail:       d.Thumbnail,
		CapturedAt:      d.CapturedAt,
		Metadata: model.PhotoMetadata{
			Width:  d.Metadata.Width,
			Height: d.Metadata.Height,
			Format: d.Metadata.Format,
			Size:   d.Metadata.Size,
		},
		Tags:      d.Tags,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func photoFilterDoc(filter dto.PhotoFilters) bson.M {
	query := bson.M{}
	if filter.CameraName != "" {
		query["cameraName"] = filter.CameraName
	}
	return query
}

func photoFindOptions(filter dto.PhotoFilters) *options.FindOptionsBuilder {
	opts := options.Find().SetSort(bson.D{{Key: "capturedAt", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Skip > 0 {
		opts.SetSkip(int64(filter.Skip))
	}
	return opts
}

// PhotoRepository implements repository.PhotoRepository on a collection.
type PhotoRepository struct {
	coll *mongo.Collection
}

// NewPhotoRepository creates a photo repository over coll.
func NewPhotoRepository(coll *mongo.Collection) *PhotoRepository {
	return &PhotoRepository{coll: coll}
}

// Insert adds a new photo document and fills in its ID and timestamps.
func (r *PhotoRepository) Insert(ctx context.Context, photo *model.Photo) (string, error) {
	now := time.Now().UTC()
	if photo.CapturedAt.IsZero() {
		photo.CapturedAt = now
	}
	photo.CreatedAt = now
	photo.UpdatedAt = now

	doc := toPhotoDoc(photo)
	doc.ID = bson.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return "", mapWriteError("insert photo", err)
	}

	photo.ID = doc.ID.Hex()
	return photo.ID, nil
}

// GetByID retrieves a photo by its ID.
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*model.Photo, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, nil
	}

	var doc photoDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	photo := doc.toModel()
	return &photo, nil
}

// Find retrieves photos based on filter criteria, most recent capture first.
func (r *PhotoRepository) Find(ctx context.Context, filter dto.PhotoFilters) ([]model.Photo, error) {
	cursor, err := r.coll.Find(ctx, photoFilterDoc(filter), photoFindOptions(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}

	var docs []photoDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode photos: %w", err)
	}

	photos := make([]model.Photo, 0, len(docs))
	for _, doc := range docs {
		photos = append(photos, doc.toModel())
	}
	return photos, nil
}

// Count returns the total count of photos matching the filter. Limit and Skip are ignored.
func (r *PhotoRepository) Count(ctx context.Context, filter dto.PhotoFilters) (int, error) {
	n, err := r.coll.CountDocuments(ctx, photoFilterDoc(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count photos: %w", err)
	}
	return int(n), nil
}

// Delete removes a photo by its ID and reports whether a document was removed.
func (r *PhotoRepository) Delete(ctx context.Context, id string) (bool, error) {
	oid, ok := objectID(id)
	if !ok {
		return false, nil
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("failed to delete photo: %w", err)
	}
	return result.DeletedCount > 0, nil
}
