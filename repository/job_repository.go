package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calebwhitt/imagevault/models"
)

// JobRepository handles database operations for ThumbnailJob entities
type JobRepository struct {
	DB *gorm.DB
}

// NewJobRepository creates a new instance of JobRepository
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{DB: db}
}

// GetByID retrieves a thumbnail job by its id
func (r *JobRepository) GetByID(id uuid.UUID) (*models.ThumbnailJob, error) {
	var job models.ThumbnailJob
	err := r.DB.Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return &job, nil
}

// ListPending returns all persisted pending jobs, oldest first
func (r *JobRepository) ListPending() ([]models.ThumbnailJob, error) {
	var jobs []models.ThumbnailJob
	err := r.DB.Where("status = ?", models.JobStatusPending).Order("created_at ASC").Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	return jobs, nil
}

// MarkInProgress records that work on the job has begun. The write is
// durable before any resize work starts.
func (r *JobRepository) MarkInProgress(id uuid.UUID) error {
	return r.updateStatus(id, models.JobStatusInProgress, nil)
}

// MarkCompleted records a successful outcome and clears the error message
func (r *JobRepository) MarkCompleted(id uuid.UUID) error {
	return r.updateStatus(id, models.JobStatusCompleted, nil)
}

// MarkFailed records a terminal failure with its descriptive message
func (r *JobRepository) MarkFailed(id uuid.UUID, message string) error {
	return r.updateStatus(id, models.JobStatusFailed, &message)
}

func (r *JobRepository) updateStatus(id uuid.UUID, status models.JobStatus, message *string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": message,
	}
	result := r.DB.Model(&models.ThumbnailJob{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to mark job %s %s: %w", id, status, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
