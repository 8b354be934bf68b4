package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus enumerates the lifecycle of a thumbnail job. Transitions are
// one-directional: pending -> in_progress -> completed or failed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ThumbnailJob tracks one queued thumbnail-generation request. Rows are
// never deleted by the processing pipeline; they remain as an audit trail
// even after the referenced image is gone.
type ThumbnailJob struct {
	ID           uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	ImageID      uuid.UUID `gorm:"type:text;not null;index" json:"image_id"`
	Status       JobStatus `gorm:"size:16;not null;default:pending" json:"status"`
	ErrorMessage *string   `gorm:"" json:"error_message,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

// TableName explicitly sets the table name for GORM.
func (ThumbnailJob) TableName() string {
	return "thumbnail_jobs"
}
