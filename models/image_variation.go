package models

import "github.com/google/uuid"

// ImageVariation is a resized derivative of an original image at a specific
// target height. The (image_id, height) pair is unique: at most one
// variation per height per image, whichever code path creates it first.
type ImageVariation struct {
	ID       uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	ImageID  uuid.UUID `gorm:"type:text;not null;uniqueIndex:idx_image_variations_image_height" json:"image_id"`
	Height   int       `gorm:"not null;uniqueIndex:idx_image_variations_image_height" json:"height"`
	FilePath string    `gorm:"size:255;not null" json:"file_path"`
}

// TableName explicitly sets the table name for GORM.
func (ImageVariation) TableName() string {
	return "image_variations"
}
