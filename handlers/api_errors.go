package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/calebwhitt/imagevault/media"
	"github.com/calebwhitt/imagevault/services"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("error encoding JSON response: %v", err)
		}
	}
}

// writeServiceError maps service errors to HTTP statuses. Unrecognized
// errors are logged and returned as an opaque 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		WriteAPIError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, media.ErrInvalidResize):
		WriteAPIError(w, http.StatusBadRequest, "invalid_resize", err.Error())
	case errors.Is(err, services.ErrDuplicateImage):
		WriteAPIError(w, http.StatusConflict, "duplicate_image", err.Error())
	case errors.Is(err, services.ErrImageNotFound), errors.Is(err, services.ErrJobNotFound):
		WriteAPIError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		log.Printf("handlers: internal error: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error")
	}
}
