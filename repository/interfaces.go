package repository

import (
	"errors"

	"github.com/google/uuid"

	"github.com/calebwhitt/imagevault/models"
)

// ErrNotFound is returned when no row matches the lookup.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
// The constraint is the authoritative duplicate signal: callers racing past
// a pre-insert existence check rely on it to serialize conflicting writes.
var ErrDuplicate = errors.New("duplicate record")

// ImageRepositoryInterface defines the methods for image data operations
type ImageRepositoryInterface interface {
	// CreateWithJob inserts the image and its pending thumbnail job in one
	// transaction so a worker that sees the job always finds the image
	CreateWithJob(image *models.Image, job *models.ThumbnailJob) error
	GetByID(id uuid.UUID) (*models.Image, error)
	HashExists(hash string) (bool, error)
	// DeleteWithVariations removes the image row and all of its variation
	// rows in one transaction; thumbnail jobs are retained as an audit trail
	DeleteWithVariations(id uuid.UUID) error
}

// VariationRepositoryInterface defines the methods for variation data operations
type VariationRepositoryInterface interface {
	Create(variation *models.ImageVariation) error
	GetByImageAndHeight(imageID uuid.UUID, height int) (*models.ImageVariation, error)
	ListByImageID(imageID uuid.UUID) ([]models.ImageVariation, error)
}

// JobRepositoryInterface defines the methods for thumbnail job operations
type JobRepositoryInterface interface {
	GetByID(id uuid.UUID) (*models.ThumbnailJob, error)
	// ListPending returns persisted pending jobs in creation order, for the
	// startup sweep that repopulates the in-memory queue
	ListPending() ([]models.ThumbnailJob, error)
	MarkInProgress(id uuid.UUID) error
	MarkCompleted(id uuid.UUID) error
	MarkFailed(id uuid.UUID, message string) error
}
