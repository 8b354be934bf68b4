package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements the Store interface using the local filesystem.
// Objects live directly under basePath; URLs are formed from a configured
// public base URL so the asset server route can serve them back.
type LocalStorage struct {
	basePath string // absolute path to the object directory
	baseURL  string // public URL prefix, no trailing slash
}

// NewLocalStorage creates a new local filesystem store rooted at basePath.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}
	if err := os.MkdirAll(absBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory '%s': %w", absBasePath, err)
	}

	log.Printf("storage: initialized LocalStorage at %s", absBasePath)
	return &LocalStorage{
		basePath: absBasePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// fullPath resolves key inside the base directory and rejects anything that
// escapes it.
func (ls *LocalStorage) fullPath(key string) (string, error) {
	cleanKey := filepath.Clean("/" + key)
	fullPath := filepath.Join(ls.basePath, cleanKey)
	if !strings.HasPrefix(fullPath, ls.basePath) {
		return "", fmt.Errorf("invalid object key '%s': access denied", key)
	}
	return fullPath, nil
}

func (ls *LocalStorage) Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) error {
	fullPath, err := ls.fullPath(key)
	if err != nil {
		return err
	}

	outFile, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file '%s': %w", fullPath, err)
	}

	if _, err := io.Copy(outFile, data); err != nil {
		outFile.Close()
		os.Remove(fullPath)
		return fmt.Errorf("failed to write data to '%s': %w", fullPath, err)
	}
	if err := outFile.Close(); err != nil {
		return fmt.Errorf("failed to finalize file '%s': %w", fullPath, err)
	}
	return nil
}

func (ls *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := ls.fullPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object '%s': %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to open object '%s': %w", key, err)
	}
	return file, nil
}

func (ls *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := ls.fullPath(key)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) { // ignore "not exist" errors
		return fmt.Errorf("failed to delete object '%s': %w", key, err)
	}
	if err == nil {
		log.Printf("storage: deleted object %s", fullPath)
	}
	return nil
}

func (ls *LocalStorage) URL(key string) string {
	return ls.baseURL + "/" + key
}

// BasePath exposes the object directory for the asset-serving route.
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}
