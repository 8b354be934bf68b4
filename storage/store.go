package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Download when no object exists at the key.
var ErrObjectNotFound = errors.New("object not found")

// Store defines the interface for the binary object store holding original
// uploads and their resized variations. Keys are flat object names derived
// from image ids.
type Store interface {
	// Upload stores the content under key, overwriting any existing object
	Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) error
	// Download retrieves a reader for the object at key
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for key without performing any I/O
	URL(key string) string
}
