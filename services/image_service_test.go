package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calebwhitt/imagevault/database"
	"github.com/calebwhitt/imagevault/media"
	"github.com/calebwhitt/imagevault/models"
	"github.com/calebwhitt/imagevault/repository"
	"github.com/calebwhitt/imagevault/storage"
	"github.com/calebwhitt/imagevault/workers"
)

// countingStore wraps a Store and counts uploads so tests can assert that
// the idempotent path performs no extra writes.
type countingStore struct {
	storage.Store
	uploads atomic.Int64
}

func (c *countingStore) Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) error {
	c.uploads.Add(1)
	return c.Store.Upload(ctx, key, data, size, contentType)
}

type testEnv struct {
	service    *ImageService
	queue      *workers.JobQueue
	store      *countingStore
	db         *gorm.DB
	jobs       *repository.JobRepository
	variations *repository.VariationRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db, err := database.InitGormDB(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to init test database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	local, err := storage.NewLocalStorage(filepath.Join(dir, "objects"), "http://localhost:8080/files")
	if err != nil {
		t.Fatalf("failed to init test storage: %v", err)
	}
	store := &countingStore{Store: local}

	queue := workers.NewJobQueue()
	variations := repository.NewVariationRepository(db)
	jobs := repository.NewJobRepository(db)
	service := NewImageService(
		repository.NewImageRepository(db),
		variations,
		jobs,
		store,
		queue,
	)
	return &testEnv{service: service, queue: queue, store: store, db: db, jobs: jobs, variations: variations}
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func (e *testEnv) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := e.db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}

func TestUploadRejectsEmptyContent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Upload(context.Background(), "photo.png", nil)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"document.pdf", "animation.gif", "noextension"} {
		_, err := env.service.Upload(context.Background(), name, pngBytes(t, 10, 10))
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", name, err)
		}
	}
}

func TestUploadAcceptsCaseInsensitiveExtension(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.service.Upload(context.Background(), "PHOTO.PNG", pngBytes(t, 10, 10)); err != nil {
		t.Errorf("expected upper-case extension to be accepted, got %v", err)
	}
}

func TestUploadDeduplicatesByContent(t *testing.T) {
	env := newTestEnv(t)
	content := pngBytes(t, 20, 20)

	if _, err := env.service.Upload(context.Background(), "a.png", content); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}
	// same bytes under another name still collide on the content hash
	_, err := env.service.Upload(context.Background(), "b.png", content)
	if !errors.Is(err, ErrDuplicateImage) {
		t.Errorf("expected ErrDuplicateImage, got %v", err)
	}

	if got := env.countRows(t, &models.Image{}); got != 1 {
		t.Errorf("expected 1 image row, got %d", got)
	}
}

func TestUploadCreatesPendingJobAndEnqueues(t *testing.T) {
	env := newTestEnv(t)

	id, err := env.service.Upload(context.Background(), "photo.png", pngBytes(t, 30, 30))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if env.queue.Len() != 1 {
		t.Errorf("expected 1 queued job, got %d", env.queue.Len())
	}
	job, ok := env.queue.TryDequeue()
	if !ok {
		t.Fatal("expected a job on the queue")
	}
	if job.ImageID != id {
		t.Errorf("queued job references image %s, expected %s", job.ImageID, id)
	}
	if job.Status != models.JobStatusPending {
		t.Errorf("expected pending status, got %s", job.Status)
	}

	persisted, err := env.service.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("job row not found: %v", err)
	}
	if persisted.Status != models.JobStatusPending {
		t.Errorf("expected persisted pending status, got %s", persisted.Status)
	}
}

func TestUploadCapturesDimensions(t *testing.T) {
	env := newTestEnv(t)

	id, err := env.service.Upload(context.Background(), "photo.png", pngBytes(t, 123, 45))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	info, err := env.service.GetImage(context.Background(), id)
	if err != nil {
		t.Fatalf("GetImage failed: %v", err)
	}
	if info.Width == nil || info.Height == nil || *info.Width != 123 || *info.Height != 45 {
		t.Errorf("expected dimensions 123x45 on the image record, got %v x %v", info.Width, info.Height)
	}
}

func TestGetImageUnknownID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.GetImage(context.Background(), uuid.New())
	if !errors.Is(err, ErrImageNotFound) {
		t.Errorf("expected ErrImageNotFound, got %v", err)
	}
}

func TestGetVariationIdempotent(t *testing.T) {
	env := newTestEnv(t)

	id, err := env.service.Upload(context.Background(), "photo.png", pngBytes(t, 200, 400))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	uploadsAfterIngest := env.store.uploads.Load()

	first, err := env.service.GetVariationURL(context.Background(), id, 100)
	if err != nil {
		t.Fatalf("first variation request failed: %v", err)
	}
	second, err := env.service.GetVariationURL(context.Background(), id, 100)
	if err != nil {
		t.Fatalf("second variation request failed: %v", err)
	}

	if first != second {
		t.Errorf("expected identical URLs, got %q and %q", first, second)
	}
	if got := env.countRows(t, &models.ImageVariation{}); got != 1 {
		t.Errorf("expected 1 variation row, got %d", got)
	}
	if got := env.store.uploads.Load(); got != uploadsAfterIngest+1 {
		t.Errorf("expected exactly one variation upload, got %d extra", got-uploadsAfterIngest)
	}
}

func TestGetVariationRejectsUpscale(t *testing.T) {
	env := newTestEnv(t)

	id, err := env.service.Upload(context.Background(), "photo.png", pngBytes(t, 100, 50))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	_, err = env.service.GetVariationURL(context.Background(), id, 100)
	if !errors.Is(err, media.ErrInvalidResize) {
		t.Errorf("expected ErrInvalidResize, got %v", err)
	}
	if got := env.countRows(t, &models.ImageVariation{}); got != 0 {
		t.Errorf("expected no variation rows after a rejected resize, got %d", got)
	}
}

func TestGetVariationUnknownImage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.GetVariationURL(context.Background(), uuid.New(), 100)
	if !errors.Is(err, ErrImageNotFound) {
		t.Errorf("expected ErrImageNotFound, got %v", err)
	}
}

func TestCreateThumbnailExistingVariationIsSuccess(t *testing.T) {
	env := newTestEnv(t)

	id, err := env.service.Upload(context.Background(), "photo.png", pngBytes(t, 200, 400))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if _, err := env.service.GetVariationURL(context.Background(), id, 160); err != nil {
		t.Fatalf("variation request failed: %v", err)
	}
	uploadsBefore := env.store.uploads.Load()

	// the queued path must treat an existing variation as done, not a duplicate
	if err := env.service.CreateThumbnail(context.Background(), id, 160); err != nil {
		t.Errorf("expected existing variation to be a success, got %v", err)
	}
	if got := env.countRows(t, &models.ImageVariation{}); got != 1 {
		t.Errorf("expected 1 variation row, got %d", got)
	}
	if got := env.store.uploads.Load(); got != uploadsBefore {
		t.Errorf("expected no additional uploads, got %d", got-uploadsBefore)
	}
}

func TestGetImageWithVariations(t *testing.T) {
	env := newTestEnv(t)

	id, err := env.service.Upload(context.Background(), "photo.png", pngBytes(t, 300, 600))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	for _, height := range []int{200, 100} {
		if _, err := env.service.GetVariationURL(context.Background(), id, height); err != nil {
			t.Fatalf("variation request at %d failed: %v", height, err)
		}
	}

	info, err := env.service.GetImageWithVariations(context.Background(), id)
	if err != nil {
		t.Fatalf("GetImageWithVariations failed: %v", err)
	}
	if len(info.Variations) != 2 {
		t.Fatalf("expected 2 variations, got %d", len(info.Variations))
	}
	// listed smallest height first
	if info.Variations[0].Height != 100 || info.Variations[1].Height != 200 {
		t.Errorf("expected heights [100 200], got [%d %d]", info.Variations[0].Height, info.Variations[1].Height)
	}
}

func TestDeleteImageCascades(t *testing.T) {
	env := newTestEnv(t)

	id, err := env.service.Upload(context.Background(), "photo.png", pngBytes(t, 200, 400))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	variationURL, err := env.service.GetVariationURL(context.Background(), id, 100)
	if err != nil {
		t.Fatalf("variation request failed: %v", err)
	}
	if variationURL == "" {
		t.Fatal("expected a variation URL")
	}

	if err := env.service.DeleteImage(context.Background(), id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := env.service.GetImage(context.Background(), id); !errors.Is(err, ErrImageNotFound) {
		t.Errorf("expected ErrImageNotFound after delete, got %v", err)
	}
	if got := env.countRows(t, &models.Image{}); got != 0 {
		t.Errorf("expected 0 image rows, got %d", got)
	}
	if got := env.countRows(t, &models.ImageVariation{}); got != 0 {
		t.Errorf("expected 0 variation rows, got %d", got)
	}
	// jobs survive as an audit trail
	if got := env.countRows(t, &models.ThumbnailJob{}); got != 1 {
		t.Errorf("expected the job row to remain, got %d", got)
	}

	// the stored objects are gone
	if _, err := env.store.Download(context.Background(), id.String()+".png"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Errorf("expected original object to be deleted, got %v", err)
	}
}

func TestDeleteImageUnknownID(t *testing.T) {
	env := newTestEnv(t)

	err := env.service.DeleteImage(context.Background(), uuid.New())
	if !errors.Is(err, ErrImageNotFound) {
		t.Errorf("expected ErrImageNotFound, got %v", err)
	}
}

// blindImageRepo skips the pre-insert hash check so inserts hit the
// database uniqueness constraint the way two racing uploads would.
type blindImageRepo struct {
	repository.ImageRepositoryInterface
}

func (r *blindImageRepo) HashExists(hash string) (bool, error) {
	return false, nil
}

func TestUploadRaceLoserRemovesItsObject(t *testing.T) {
	dir := t.TempDir()
	db, err := database.InitGormDB(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to init test database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	objectDir := filepath.Join(dir, "objects")
	local, err := storage.NewLocalStorage(objectDir, "http://localhost:8080/files")
	if err != nil {
		t.Fatalf("failed to init test storage: %v", err)
	}

	service := NewImageService(
		&blindImageRepo{repository.NewImageRepository(db)},
		repository.NewVariationRepository(db),
		repository.NewJobRepository(db),
		local,
		workers.NewJobQueue(),
	)

	content := pngBytes(t, 20, 20)
	if _, err := service.Upload(context.Background(), "a.png", content); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}
	if _, err := service.Upload(context.Background(), "b.png", content); !errors.Is(err, ErrDuplicateImage) {
		t.Fatalf("expected ErrDuplicateImage from the losing insert, got %v", err)
	}

	// the loser uploaded its object before the insert; it must not linger
	entries, err := os.ReadDir(objectDir)
	if err != nil {
		t.Fatalf("failed to read object directory: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the winner's object, got %v", names)
	}
	if got := countRowsIn(t, db, &models.Image{}); got != 1 {
		t.Errorf("expected 1 image row, got %d", got)
	}
}

func countRowsIn(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}
