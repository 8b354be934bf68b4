package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calebwhitt/imagevault/models"
)

// VariationRepository handles database operations for ImageVariation entities
type VariationRepository struct {
	DB *gorm.DB
}

// NewVariationRepository creates a new instance of VariationRepository
func NewVariationRepository(db *gorm.DB) *VariationRepository {
	return &VariationRepository{DB: db}
}

// Create inserts a variation row. A second insert for the same
// (image_id, height) pair fails with ErrDuplicate; the caller treats the
// existing row as authoritative.
func (r *VariationRepository) Create(variation *models.ImageVariation) error {
	if err := r.DB.Create(variation).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("variation for image %s at height %d: %w",
				variation.ImageID, variation.Height, ErrDuplicate)
		}
		return fmt.Errorf("failed to create variation for image %s: %w", variation.ImageID, err)
	}
	return nil
}

// GetByImageAndHeight retrieves the variation for an (image, height) pair
func (r *VariationRepository) GetByImageAndHeight(imageID uuid.UUID, height int) (*models.ImageVariation, error) {
	var variation models.ImageVariation
	err := r.DB.Where("image_id = ? AND height = ?", imageID, height).First(&variation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get variation for image %s at height %d: %w", imageID, height, err)
	}
	return &variation, nil
}

// ListByImageID retrieves all variations owned by an image, smallest first
func (r *VariationRepository) ListByImageID(imageID uuid.UUID) ([]models.ImageVariation, error) {
	var variations []models.ImageVariation
	err := r.DB.Where("image_id = ?", imageID).Order("height ASC").Find(&variations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list variations for image %s: %w", imageID, err)
	}
	return variations, nil
}
