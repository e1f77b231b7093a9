package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/mattn/go-sqlite3"

	"camvault/internal/repository"
)

// DB wraps the SQLite database connection with thread-safe access.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex

	cameras *CameraRepository
	photos  *PhotoRepository
}

// New creates and initializes a new SQLite database connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	db.cameras = NewCameraRepository(db)
	db.photos = NewPhotoRepository(db)

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cameras (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL DEFAULT 'ip',
		active INTEGER NOT NULL DEFAULT 1,
		last_used DATETIME NOT NULL,
		resolution TEXT,
		fps REAL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		camera_name TEXT NOT NULL,
		camera_url TEXT NOT NULL,
		image_url TEXT NOT NULL,
		secure_url TEXT NOT NULL,
		storage_object_id TEXT NOT NULL UNIQUE,
		thumbnail TEXT,
		captured_at DATETIME NOT NULL,
		width INTEGER,
		height INTEGER,
		format TEXT,
		size INTEGER,
		tags TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cameras_name ON cameras(name);
	CREATE INDEX IF NOT EXISTS idx_cameras_active_last_used ON cameras(active, last_used DESC);
	CREATE INDEX IF NOT EXISTS idx_photos_camera_name_created_at ON photos(camera_name, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_photos_captured_at ON photos(captured_at DESC);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Cameras returns the camera repository bound to this database.
func (db *DB) Cameras() repository.CameraRepository {
	return db.cameras
}

// Photos returns the photo repository bound to this database.
func (db *DB) Photos() repository.PhotoRepository {
	return db.photos
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// parseID converts an opaque identifier into a row id. Malformed ids never match a row.
func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
