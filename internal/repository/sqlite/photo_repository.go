package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"camvault/internal/dto"
	"camvault/internal/model"
	"camvault/internal/repository"
)

const photoColumns = `id, camera_name, camera_url, image_url, secure_url, storage_object_id, thumbnail,
	captured_at, width, height, format, size, tags, created_at, updated_at`

// PhotoRepository implements repository.PhotoRepository for SQLite.
type PhotoRepository struct {
	db *DB
}

// NewPhotoRepository creates a new SQLite photo repository.
func NewPhotoRepository(db *DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Insert adds a new photo record and fills in its ID and timestamps.
func (r *PhotoRepository) Insert(ctx context.Context, photo *model.Photo) (string, error) {
	var tags interface{}
	if len(photo.Tags) > 0 {
		encoded, err := json.Marshal(photo.Tags)
		if err != nil {
			return "", fmt.Errorf("failed to encode photo tags: %w", err)
		}
		tags = string(encoded)
	}

	r.db.Lock()
	defer r.db.Unlock()

	now := time.Now().UTC()
	if photo.CapturedAt.IsZero() {
		photo.CapturedAt = now
	}

	result, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO photos (camera_name, camera_url, image_url, secure_url, storage_object_id, thumbnail,
			captured_at, width, height, format, size, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, photo.CameraName, photo.CameraURL, photo.ImageURL, photo.SecureURL, photo.StorageObjectID,
		nullString(photo.Thumbnail), photo.CapturedAt.UTC(), nullInt(int64(photo.Metadata.Width)),
		nullInt(int64(photo.Metadata.Height)), nullString(photo.Metadata.Format), nullInt(photo.Metadata.Size),
		tags, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("failed to insert photo: %w", repository.ErrDuplicate)
		}
		return "", fmt.Errorf("failed to insert photo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("failed to read photo id: %w", err)
	}

	photo.ID = formatID(id)
	photo.CreatedAt = now
	photo.UpdatedAt = now
	return photo.ID, nil
}

// GetByID retrieves a photo by its ID.
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*model.Photo, error) {
	rowID, ok := parseID(id)
	if !ok {
		return nil, nil
	}

	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ?`, rowID)
	photo, err := scanPhoto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return photo, nil
}

// Find retrieves photos based on filter criteria, most recent capture first.
func (r *PhotoRepository) Find(ctx context.Context, filter dto.PhotoFilters) ([]model.Photo, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT ` + photoColumns + ` FROM photos WHERE 1=1`
	args := []interface{}{}

	if filter.CameraName != "" {
		query += " AND camera_name = ?"
		args = append(args, filter.CameraName)
	}

	query += " ORDER BY captured_at DESC, id DESC"

	// SQLite only accepts OFFSET after LIMIT; -1 means unbounded.
	if filter.Limit > 0 || filter.Skip > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, filter.Skip)
	}

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()

	photos := []model.Photo{}
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, *photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate photos: %w", err)
	}

	return photos, nil
}

// Count returns the total count of photos matching the filter. Limit and Skip are ignored.
func (r *PhotoRepository) Count(ctx context.Context, filter dto.PhotoFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT COUNT(*) FROM photos WHERE 1=1`
	args := []interface{}{}

	if filter.CameraName != "" {
		query += " AND camera_name = ?"
		args = append(args, filter.CameraName)
	}

	var count int
	if err := r.db.Conn().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count photos: %w", err)
	}
	return count, nil
}

// Delete removes a photo by its ID and reports whether a row was removed.
func (r *PhotoRepository) Delete(ctx context.Context, id string) (bool, error) {
	rowID, ok := parseID(id)
	if !ok {
		return false, nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, rowID)
	if err != nil {
		return false, fmt.Errorf("failed to delete photo: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete photo: %w", err)
	}
	return affected > 0, nil
}

func scanPhoto(row rowScanner) (*model.Photo, error) {
	var (
		photo               model.Photo
		id                  int64
		thumbnail, format   sql.NullString
		width, height, size sql.NullInt64
		tags                sql.NullString
	)

	err := row.Scan(&id, &photo.CameraName, &photo.CameraURL, &photo.ImageURL, &photo.SecureURL,
		&photo.StorageObjectID, &thumbnail, &photo.CapturedAt, &width, &height, &format, &size,
		&tags, &photo.CreatedAt, &photo.UpdatedAt)
	if err != nil {
		return nil, err
	}

	photo.ID = formatID(id)
	photo.Thumbnail = thumbnail.String
	photo.Metadata = model.PhotoMetadata{
		Width:  int(width.Int64),
		Height: int(height.Int64),
		Format: format.String,
		Size:   size.Int64,
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &photo.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode photo tags: %w", err)
		}
	}
	return &photo, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int64) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
