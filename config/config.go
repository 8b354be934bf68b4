package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

const (
	defaultServerAddr       = ":8080"
	defaultDatabasePath     = "imagevault.db"
	defaultLocalStoragePath = "./object_storage"
	defaultPublicBaseURL    = "http://localhost:8080/files"

	// height of the variation the background worker generates for every
	// new upload; on-demand requests may use any other height
	defaultThumbnailHeight = 160
)

type Config struct {
	ServerAddr   string
	DatabasePath string

	// object storage configuration
	StorageBackend   string // "local" or "s3"
	LocalStoragePath string
	PublicBaseURL    string // URL prefix for locally stored objects

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	// thumbnail generation settings
	ThumbnailHeight int
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	backend := getEnvOrDefault("STORAGE_BACKEND", StorageBackendLocal)
	if backend != StorageBackendLocal && backend != StorageBackendS3 {
		return Config{}, fmt.Errorf("invalid STORAGE_BACKEND '%s': must be '%s' or '%s'",
			backend, StorageBackendLocal, StorageBackendS3)
	}

	localPath := getEnvOrDefault("LOCAL_STORAGE_PATH", defaultLocalStoragePath)
	absLocalPath, err := filepath.Abs(localPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for local storage '%s': %w", localPath, err)
	}

	cfg := Config{
		ServerAddr:       getEnvOrDefault("SERVER_ADDR", defaultServerAddr),
		DatabasePath:     getEnvOrDefault("DATABASE_PATH", defaultDatabasePath),
		StorageBackend:   backend,
		LocalStoragePath: absLocalPath,
		PublicBaseURL:    getEnvOrDefault("PUBLIC_BASE_URL", defaultPublicBaseURL),
		S3Endpoint:       getEnvOrDefault("S3_ENDPOINT", "localhost:9000"),
		S3AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:      os.Getenv("S3_SECRET_KEY"),
		S3Bucket:         getEnvOrDefault("S3_BUCKET", "images"),
		S3Region:         getEnvOrDefault("S3_REGION", "us-east-1"),
		S3UseSSL:         os.Getenv("S3_USE_SSL") == "true",
		ThumbnailHeight:  getEnvIntOrDefault("THUMBNAIL_HEIGHT", defaultThumbnailHeight),
	}

	if cfg.StorageBackend == StorageBackendS3 && (cfg.S3AccessKey == "" || cfg.S3SecretKey == "") {
		return Config{}, fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required when STORAGE_BACKEND is '%s'", StorageBackendS3)
	}

	return cfg, nil
}
