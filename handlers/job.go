package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calebwhitt/imagevault/services"
)

// JobHandler exposes the status of queued thumbnail jobs.
type JobHandler struct {
	Service *services.ImageService
}

// GetJob returns the job's current status and error message, if any.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "job_id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "job id must be a valid UUID")
		return
	}

	job, err := h.Service.GetJob(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	errorMessage := ""
	if job.ErrorMessage != nil {
		errorMessage = *job.ErrorMessage
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":            job.ID,
		"image_id":      job.ImageID,
		"status":        job.Status,
		"error_message": errorMessage,
		"created_at":    job.CreatedAt,
	})
}
