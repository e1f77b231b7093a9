package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	MetadataStoreSQLite = "sqlite"
	MetadataStoreMongo  = "mongo"

	ObjectStoreFilesystem = "filesystem"
	ObjectStoreCloudinary = "cloudinary"
)

type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	MetadataStore  string
	DatabasePath   string
	MongoURI       string
	MongoDatabase  string
	ObjectStore    string
	MediaDirectory string
	MediaBaseURL   string
	ObjectFolder   string
	CloudName      string
	CloudAPIKey    string
	CloudAPISecret string
	MaxUploadBytes int64
	CaptureTimeout time.Duration
	LogDirectory   string
	LogLevel       string
}

// Load reads an optional .env file and then the process environment.
// ENV_FILE overrides the .env path; a missing default file is ignored.
func Load() (*Config, error) {
	if path := os.Getenv("ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnvAsInt("PORT", 8080),
		ReadTimeout:    getEnvAsDuration("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:   getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),
		MetadataStore:  getEnv("METADATA_STORE", MetadataStoreSQLite),
		DatabasePath:   getEnv("DATABASE_PATH", filepath.Join("data", "camvault.db")),
		MongoURI:       getEnv("MONGODB_URI", ""),
		MongoDatabase:  getEnv("MONGODB_DATABASE", "camvault"),
		ObjectStore:    getEnv("OBJECT_STORE", ObjectStoreFilesystem),
		MediaDirectory: getEnv("MEDIA_DIR", filepath.Join(".", "media")),
		MediaBaseURL:   getEnv("MEDIA_BASE_URL", "http://localhost:8080/media"),
		ObjectFolder:   getEnv("OBJECT_FOLDER", "camvault/snapshots"),
		CloudName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 10<<20),
		CaptureTimeout: getEnvAsDuration("CAPTURE_TIMEOUT", 15*time.Second),
		LogDirectory:   getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late at wiring time.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}

	switch c.MetadataStore {
	case MetadataStoreSQLite:
		if c.DatabasePath == "" {
			return errors.New("DATABASE_PATH is required for the sqlite metadata store")
		}
	case MetadataStoreMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI is required for the mongo metadata store")
		}
	default:
		return fmt.Errorf("unknown METADATA_STORE %q", c.MetadataStore)
	}

	switch c.ObjectStore {
	case ObjectStoreFilesystem:
		if c.MediaDirectory == "" {
			return errors.New("MEDIA_DIR is required for the filesystem object store")
		}
	case ObjectStoreCloudinary:
		if c.CloudName == "" || c.CloudAPIKey == "" || c.CloudAPISecret == "" {
			return errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required for the cloudinary object store")
		}
	default:
		return fmt.Errorf("unknown OBJECT_STORE %q", c.ObjectStore)
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// ServerAddress returns the listen address in host:port form.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("15s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
