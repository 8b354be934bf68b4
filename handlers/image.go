package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calebwhitt/imagevault/services"
)

// maxUploadBytes bounds a single multipart upload.
const maxUploadBytes = 20 << 20

// ImageHandler exposes ingest, reads, on-demand variations, and deletes.
type ImageHandler struct {
	Service *services.ImageService
}

func (h *ImageHandler) parseImageID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "image_id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "image id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// Upload accepts a multipart form with an "image" field and returns the new
// image id.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("image")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_upload", "multipart field 'image' is required: "+err.Error())
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_upload", "failed to read upload: "+err.Error())
		return
	}

	id, err := h.Service.Upload(r.Context(), header.Filename, content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

// GetImage returns the image's id, URL, and ingest metadata.
func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseImageID(w, r)
	if !ok {
		return
	}
	info, err := h.Service.GetImage(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetImageWithVariations returns the image plus all of its variations.
func (h *ImageHandler) GetImageWithVariations(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseImageID(w, r)
	if !ok {
		return
	}
	info, err := h.Service.GetImageWithVariations(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetVariation resolves ?height=N through the on-demand path, computing and
// storing the variation if it does not exist yet.
func (h *ImageHandler) GetVariation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseImageID(w, r)
	if !ok {
		return
	}

	heightStr := r.URL.Query().Get("height")
	height, err := strconv.Atoi(heightStr)
	if err != nil || height <= 0 {
		WriteAPIError(w, http.StatusBadRequest, "invalid_height", "query parameter 'height' must be a positive integer")
		return
	}

	url, err := h.Service.GetVariationURL(r.Context(), id, height)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"height": height, "url": url})
}

// DeleteImage removes the image, its variations, and their stored objects.
func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseImageID(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteImage(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
