package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"camvault/internal/dto"
	"camvault/internal/model"
	"camvault/internal/repository"
)

const cameraColumns = `id, name, url, kind, active, last_used, resolution, fps, created_at, updated_at`

// CameraRepository implements repository.CameraRepository for SQLite.
type CameraRepository struct {
	db *DB
}

// NewCameraRepository creates a new SQLite camera repository.
func NewCameraRepository(db *DB) *CameraRepository {
	return &CameraRepository{db: db}
}

// Insert adds a new camera record and fills in its ID and timestamps.
func (r *CameraRepository) Insert(ctx context.Context, cam *model.Camera) (string, error) {
	r.db.Lock()
	defer r.db.Unlock()

	now := time.Now().UTC()
	if cam.LastUsed.IsZero() {
		cam.LastUsed = now
	}
	resolution, fps := cameraMetadataArgs(cam.Metadata)

	result, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO cameras (name, url, kind, active, last_used, resolution, fps, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, cam.Name, cam.URL, string(cam.Kind), cam.Active, cam.LastUsed.UTC(), resolution, fps, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("failed to insert camera: %w", repository.ErrDuplicate)
		}
		return "", fmt.Errorf("failed to insert camera: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("failed to read camera id: %w", err)
	}

	cam.ID = formatID(id)
	cam.CreatedAt = now
	cam.UpdatedAt = now
	return cam.ID, nil
}

// GetByID retrieves a camera by its ID.
func (r *CameraRepository) GetByID(ctx context.Context, id string) (*model.Camera, error) {
	rowID, ok := parseID(id)
	if !ok {
		return nil, nil
	}

	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRowContext(ctx, `SELECT `+cameraColumns+` FROM cameras WHERE id = ?`, rowID)
	cam, err := scanCamera(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}
	return cam, nil
}

// GetByURL retrieves a camera by its URL.
func (r *CameraRepository) GetByURL(ctx context.Context, url string) (*model.Camera, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRowContext(ctx, `SELECT `+cameraColumns+` FROM cameras WHERE url = ?`, url)
	cam, err := scanCamera(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}
	return cam, nil
}

// Find retrieves cameras ordered by last use, most recent first.
func (r *CameraRepository) Find(ctx context.Context, filter dto.CameraFilters) ([]model.Camera, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT ` + cameraColumns + ` FROM cameras WHERE 1=1`
	args := []interface{}{}

	if filter.ActiveOnly {
		query += " AND active = ?"
		args = append(args, true)
	}

	query += " ORDER BY last_used DESC, id DESC"

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cameras: %w", err)
	}
	defer rows.Close()

	cameras := []model.Camera{}
	for rows.Next() {
		cam, err := scanCamera(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan camera: %w", err)
		}
		cameras = append(cameras, *cam)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cameras: %w", err)
	}

	return cameras, nil
}

// Count returns the number of cameras matching the filter.
func (r *CameraRepository) Count(ctx context.Context, filter dto.CameraFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT COUNT(*) FROM cameras WHERE 1=1`
	args := []interface{}{}

	if filter.ActiveOnly {
		query += " AND active = ?"
		args = append(args, true)
	}

	var count int
	if err := r.db.Conn().QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cameras: %w", err)
	}
	return count, nil
}

// Update overwrites the mutable fields of an existing camera.
func (r *CameraRepository) Update(ctx context.Context, cam *model.Camera) error {
	rowID, ok := parseID(cam.ID)
	if !ok {
		return fmt.Errorf("failed to update camera %q: %w", cam.ID, repository.ErrNotFound)
	}

	r.db.Lock()
	defer r.db.Unlock()

	now := time.Now().UTC()
	resolution, fps := cameraMetadataArgs(cam.Metadata)

	result, err := r.db.Conn().ExecContext(ctx, `
		UPDATE cameras
		SET name = ?, url = ?, kind = ?, active = ?, last_used = ?, resolution = ?, fps = ?, updated_at = ?
		WHERE id = ?
	`, cam.Name, cam.URL, string(cam.Kind), cam.Active, cam.LastUsed.UTC(), resolution, fps, now, rowID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to update camera: %w", repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to update camera: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update camera: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to update camera %q: %w", cam.ID, repository.ErrNotFound)
	}

	cam.UpdatedAt = now
	return nil
}

// Delete removes a camera by its ID and reports whether a row was removed.
func (r *CameraRepository) Delete(ctx context.Context, id string) (bool, error) {
	rowID, ok := parseID(id)
	if !ok {
		return false, nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().ExecContext(ctx, `DELETE FROM cameras WHERE id = ?`, rowID)
	if err != nil {
		return false, fmt.Errorf("failed to delete camera: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete camera: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCamera(row rowScanner) (*model.Camera, error) {
	var (
		cam        model.Camera
		id         int64
		kind       string
		resolution sql.NullString
		fps        sql.NullFloat64
	)

	err := row.Scan(&id, &cam.Name, &cam.URL, &kind, &cam.Active, &cam.LastUsed,
		&resolution, &fps, &cam.CreatedAt, &cam.UpdatedAt)
	if err != nil {
		return nil, err
	}

	cam.ID = formatID(id)
	cam.Kind = model.CameraKind(kind)
	if resolution.Valid || fps.Valid {
		cam.Metadata = &model.CameraMetadata{Resolution: resolution.String, FPS: fps.Float64}
	}
	return &cam, nil
}

func cameraMetadataArgs(meta *model.CameraMetadata) (interface{}, interface{}) {
	if meta == nil {
		return nil, nil
	}
	var resolution, fps interface{}
	if meta.Resolution != "" {
		resolution = meta.Resolution
	}
	if meta.FPS != 0 {
		fps = meta.FPS
	}
	return resolution, fps
}
