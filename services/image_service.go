package services

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calebwhitt/imagevault/media"
	"github.com/calebwhitt/imagevault/models"
	"github.com/calebwhitt/imagevault/repository"
	"github.com/calebwhitt/imagevault/storage"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// JobEnqueuer hands a persisted pending job to the background worker. The
// queue is a non-durable wake-up mechanism; the durable job row is written
// before Enqueue is called.
type JobEnqueuer interface {
	Enqueue(job *models.ThumbnailJob) error
}

// VariationInfo describes one resized derivative of an image.
type VariationInfo struct {
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// ImageInfo is the read model for an image, with variations populated only
// by GetImageWithVariations.
type ImageInfo struct {
	ID         uuid.UUID       `json:"id"`
	URL        string          `json:"url"`
	CreatedAt  time.Time       `json:"created_at"`
	Width      *int            `json:"width,omitempty"`
	Height     *int            `json:"height,omitempty"`
	Variations []VariationInfo `json:"variations,omitempty"`
}

// ImageService owns ingest, on-demand variation resolution, reads, and
// deletes. The background worker drives its CreateThumbnail path for the
// queued canonical-height variation.
type ImageService struct {
	images     repository.ImageRepositoryInterface
	variations repository.VariationRepositoryInterface
	jobs       repository.JobRepositoryInterface
	store      storage.Store
	queue      JobEnqueuer
}

// NewImageService creates a new instance of ImageService
func NewImageService(
	images repository.ImageRepositoryInterface,
	variations repository.VariationRepositoryInterface,
	jobs repository.JobRepositoryInterface,
	store storage.Store,
	queue JobEnqueuer,
) *ImageService {
	return &ImageService{
		images:     images,
		variations: variations,
		jobs:       jobs,
		store:      store,
		queue:      queue,
	}
}

// Upload validates and deduplicates the content, stores the original,
// persists the image together with a pending thumbnail job, and hands the
// job to the queue. The object upload happens before the rows become
// visible; a crash in between leaves an orphaned object, which is accepted.
func (s *ImageService) Upload(ctx context.Context, fileName string, content []byte) (uuid.UUID, error) {
	if len(content) == 0 {
		return uuid.Nil, fmt.Errorf("%w: file is empty or not provided", ErrValidation)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedExtensions[ext] {
		return uuid.Nil, fmt.Errorf("%w: invalid file type %q, only *.jpg, *.jpeg and *.png are allowed", ErrValidation, ext)
	}

	sum := md5.Sum(content)
	hash := hex.EncodeToString(sum[:])

	exists, err := s.images.HashExists(hash)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to check for duplicate content: %w", err)
	}
	if exists {
		return uuid.Nil, ErrDuplicateImage
	}

	id := uuid.New()
	key := id.String() + ext
	if err := s.store.Upload(ctx, key, bytes.NewReader(content), int64(len(content)), contentTypes[ext]); err != nil {
		return uuid.Nil, fmt.Errorf("failed to upload original %s: %w", key, err)
	}
	log.Printf("services: uploaded original %s", key)

	image := &models.Image{
		ID:        id,
		FilePath:  key,
		Hash:      hash,
		CreatedAt: time.Now().UTC(),
	}
	if meta, metaErr := media.ExtractMetadata(content); metaErr == nil {
		image.Width = &meta.Width
		image.Height = &meta.Height
		image.CameraMake = meta.CameraMake
		image.CameraModel = meta.CameraModel
		image.TakenAt = meta.TakenAt
	} else {
		log.Printf("services: metadata extraction failed for %s: %v", key, metaErr)
	}

	job := &models.ThumbnailJob{
		ID:        uuid.New(),
		ImageID:   id,
		Status:    models.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.images.CreateWithJob(image, job); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// a concurrent upload of the same bytes won the insert race;
			// this attempt's object has no row pointing at it, remove it
			if delErr := s.store.Delete(ctx, key); delErr != nil {
				log.Printf("services: failed to remove object %s after losing insert race: %v", key, delErr)
			}
			return uuid.Nil, ErrDuplicateImage
		}
		return uuid.Nil, fmt.Errorf("failed to persist image %s: %w", id, err)
	}

	if err := s.queue.Enqueue(job); err != nil {
		// the job row is already durable; the startup sweep will pick it up
		log.Printf("services: failed to enqueue job %s: %v", job.ID, err)
	}
	log.Printf("services: enqueued thumbnail job %s for image %s", job.ID, id)

	return id, nil
}

// GetImage returns the image's id, public URL, and ingest metadata.
func (s *ImageService) GetImage(ctx context.Context, id uuid.UUID) (*ImageInfo, error) {
	image, err := s.images.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return s.imageInfo(image, nil), nil
}

// GetImageWithVariations returns the image plus every known variation,
// resolved through an explicit id-based query.
func (s *ImageService) GetImageWithVariations(ctx context.Context, id uuid.UUID) (*ImageInfo, error) {
	image, err := s.images.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	variations, err := s.variations.ListByImageID(id)
	if err != nil {
		return nil, err
	}
	return s.imageInfo(image, variations), nil
}

// GetVariationURL serves the on-demand path: an existing (image, height)
// variation is returned without touching the resize engine; a missing one
// is computed synchronously, stored, and recorded.
func (s *ImageService) GetVariationURL(ctx context.Context, imageID uuid.UUID, height int) (string, error) {
	if height <= 0 {
		return "", fmt.Errorf("%w: height must be a positive integer", ErrValidation)
	}

	image, err := s.images.GetByID(imageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrImageNotFound
		}
		return "", err
	}

	existing, err := s.variations.GetByImageAndHeight(imageID, height)
	if err == nil {
		return s.store.URL(existing.FilePath), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}

	return s.createVariation(ctx, image, height)
}

// CreateThumbnail is the queued path: the worker calls it with the
// canonical height. An already-existing variation at that height is a
// success, not a duplicate.
func (s *ImageService) CreateThumbnail(ctx context.Context, imageID uuid.UUID, height int) error {
	image, err := s.images.GetByID(imageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrImageNotFound
		}
		return err
	}

	if _, err := s.variations.GetByImageAndHeight(imageID, height); err == nil {
		log.Printf("services: variation already exists for image %s at height %d", imageID, height)
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	_, err = s.createVariation(ctx, image, height)
	return err
}

// createVariation downloads the original, resizes it, uploads the result,
// and records the variation row. On an insert conflict the competing row
// wins and its URL is returned.
func (s *ImageService) createVariation(ctx context.Context, image *models.Image, height int) (string, error) {
	reader, err := s.store.Download(ctx, image.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to download original %s: %w", image.FilePath, err)
	}
	defer reader.Close()

	original, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read original %s: %w", image.FilePath, err)
	}

	resized, err := media.Resize(original, height)
	if err != nil {
		// ErrInvalidResize passes through unchanged for the caller to classify
		return "", err
	}

	key := fmt.Sprintf("%s_%d%s", image.ID, height, media.ThumbnailFileExtension)
	if err := s.store.Upload(ctx, key, bytes.NewReader(resized), int64(len(resized)), "image/jpeg"); err != nil {
		return "", fmt.Errorf("failed to upload variation %s: %w", key, err)
	}

	variation := &models.ImageVariation{
		ID:       uuid.New(),
		ImageID:  image.ID,
		Height:   height,
		FilePath: key,
	}
	if err := s.variations.Create(variation); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			winner, lookupErr := s.variations.GetByImageAndHeight(image.ID, height)
			if lookupErr == nil {
				log.Printf("services: lost variation insert race for image %s at height %d", image.ID, height)
				return s.store.URL(winner.FilePath), nil
			}
		}
		return "", fmt.Errorf("failed to persist variation for image %s at height %d: %w", image.ID, height, err)
	}

	log.Printf("services: created variation %s for image %s at height %d", key, image.ID, height)
	return s.store.URL(key), nil
}

// DeleteImage removes the original object, every variation object, the
// variation rows, and the image row. Thumbnail jobs stay behind as an
// audit trail.
func (s *ImageService) DeleteImage(ctx context.Context, id uuid.UUID) error {
	image, err := s.images.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrImageNotFound
		}
		return err
	}

	variations, err := s.variations.ListByImageID(id)
	if err != nil {
		return err
	}

	log.Printf("services: deleting image %s with %d variations", id, len(variations))

	for _, variation := range variations {
		if err := s.store.Delete(ctx, variation.FilePath); err != nil {
			return fmt.Errorf("failed to delete variation object %s: %w", variation.FilePath, err)
		}
	}
	if err := s.store.Delete(ctx, image.FilePath); err != nil {
		return fmt.Errorf("failed to delete original object %s: %w", image.FilePath, err)
	}

	if err := s.images.DeleteWithVariations(id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrImageNotFound
		}
		return err
	}
	return nil
}

// GetJob returns the durable status record for a thumbnail job.
func (s *ImageService) GetJob(ctx context.Context, id uuid.UUID) (*models.ThumbnailJob, error) {
	job, err := s.jobs.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *ImageService) imageInfo(image *models.Image, variations []models.ImageVariation) *ImageInfo {
	info := &ImageInfo{
		ID:        image.ID,
		URL:       s.store.URL(image.FilePath),
		CreatedAt: image.CreatedAt,
		Width:     image.Width,
		Height:    image.Height,
	}
	for _, variation := range variations {
		info.Variations = append(info.Variations, VariationInfo{
			Height: variation.Height,
			URL:    s.store.URL(variation.FilePath),
		})
	}
	return info
}
