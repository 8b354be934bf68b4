package models

import (
	"time"

	"github.com/google/uuid"
)

// Image represents an uploaded original in the 'images' table. The content
// hash is unique across all rows; the database enforces it so that two
// concurrent uploads of the same bytes cannot both insert.
type Image struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	FilePath  string    `gorm:"size:255;not null" json:"file_path"`
	Hash      string    `gorm:"size:32;not null;uniqueIndex" json:"hash"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	// best-effort capture at ingest; extraction failures leave these nil
	Width       *int    `gorm:"" json:"width,omitempty"`
	Height      *int    `gorm:"" json:"height,omitempty"`
	CameraMake  *string `gorm:"" json:"camera_make,omitempty"`
	CameraModel *string `gorm:"" json:"camera_model,omitempty"`
	TakenAt     *int64  `gorm:"index" json:"taken_at,omitempty"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Image) TableName() string {
	return "images"
}
