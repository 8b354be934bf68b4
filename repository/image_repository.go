package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calebwhitt/imagevault/models"
)

// isUniqueViolation reports whether err is a sqlite uniqueness-constraint
// failure. sqlite surfaces these only through the error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ImageRepository handles database operations for Image entities
type ImageRepository struct {
	DB *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

// CreateWithJob inserts the image and its pending job atomically. Both rows
// are visible to subsequent readers before the caller hands the job to the
// in-memory queue.
func (r *ImageRepository) CreateWithJob(image *models.Image, job *models.ThumbnailJob) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(image).Error; err != nil {
			return err
		}
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("image with hash %s: %w", image.Hash, ErrDuplicate)
		}
		return fmt.Errorf("failed to create image %s with job: %w", image.ID, err)
	}
	return nil
}

// GetByID retrieves an image by its id
func (r *ImageRepository) GetByID(id uuid.UUID) (*models.Image, error) {
	var image models.Image
	err := r.DB.Where("id = ?", id).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get image %s: %w", id, err)
	}
	return &image, nil
}

// HashExists reports whether any image row carries the given content hash
func (r *ImageRepository) HashExists(hash string) (bool, error) {
	var count int64
	err := r.DB.Model(&models.Image{}).Where("hash = ?", hash).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check for hash %s: %w", hash, err)
	}
	return count > 0, nil
}

// DeleteWithVariations removes the image row and every variation row owned
// by it. Thumbnail jobs referencing the image are left in place.
func (r *ImageRepository) DeleteWithVariations(id uuid.UUID) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_id = ?", id).Delete(&models.ImageVariation{}).Error; err != nil {
			return fmt.Errorf("failed to delete variations for image %s: %w", id, err)
		}
		result := tx.Where("id = ?", id).Delete(&models.Image{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete image %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return err
}
