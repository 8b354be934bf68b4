package workers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calebwhitt/imagevault/models"
	"github.com/calebwhitt/imagevault/repository"
)

const (
	idlePollInterval = time.Second
	errorBackoff     = 2 * time.Second
)

// Thumbnailer is the slice of the image service the worker drives for the
// queued path. An existing variation at the requested height is a success.
type Thumbnailer interface {
	CreateThumbnail(ctx context.Context, imageID uuid.UUID, height int) error
}

// ThumbnailWorker drains the job queue and drives each job through
// pending -> in_progress -> completed/failed. One job is processed at a
// time; a job's failure is recorded on its row and never stops the loop.
type ThumbnailWorker struct {
	queue       *JobQueue
	jobs        repository.JobRepositoryInterface
	thumbnailer Thumbnailer
	height      int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewThumbnailWorker creates a worker that generates variations at the
// given canonical height for every queued job.
func NewThumbnailWorker(queue *JobQueue, jobs repository.JobRepositoryInterface, thumbnailer Thumbnailer, height int) *ThumbnailWorker {
	return &ThumbnailWorker{
		queue:       queue,
		jobs:        jobs,
		thumbnailer: thumbnailer,
		height:      height,
	}
}

// Start re-enqueues persisted pending jobs and launches the worker
// goroutine. The sweep covers jobs whose queue entries were lost to a
// previous shutdown.
func (w *ThumbnailWorker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	if err := w.requeuePending(); err != nil {
		log.Printf("workers: failed to requeue pending jobs: %v", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	log.Printf("workers: thumbnail worker started (canonical height %d)", w.height)
}

// Stop cancels the worker and waits for the in-flight iteration to finish.
// A job being processed completes before the loop exits.
func (w *ThumbnailWorker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	w.wg.Wait()
	log.Println("workers: thumbnail worker stopped")
}

func (w *ThumbnailWorker) requeuePending() error {
	pending, err := w.jobs.ListPending()
	if err != nil {
		return err
	}
	for i := range pending {
		if err := w.queue.Enqueue(&pending[i]); err != nil {
			return err
		}
	}
	if len(pending) > 0 {
		log.Printf("workers: requeued %d pending thumbnail jobs", len(pending))
	}
	return nil
}

func (w *ThumbnailWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, ok := w.queue.TryDequeue()
		if !ok {
			w.wait(ctx, idlePollInterval)
			continue
		}

		// the in-flight job runs on a detached context so Stop cannot
		// abort its I/O mid-way; cancellation is honored only between jobs
		if err := w.process(context.WithoutCancel(ctx), job); err != nil {
			// the record store itself misbehaved, not the job; back off
			// and keep the loop alive
			log.Printf("workers: job %s: record store failure: %v", job.ID, err)
			w.wait(ctx, errorBackoff)
		}
	}
}

// wait suspends until the duration elapses, an enqueue fires the wake
// channel, or the worker is cancelled.
func (w *ThumbnailWorker) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-w.queue.Wake():
	case <-timer.C:
	}
}

// process drives one job's status transitions. Only record-store failures
// are returned; a resize failure lands on the job row as failed.
func (w *ThumbnailWorker) process(ctx context.Context, job *models.ThumbnailJob) error {
	log.Printf("workers: processing thumbnail job %s for image %s", job.ID, job.ImageID)

	if err := w.jobs.MarkInProgress(job.ID); err != nil {
		return fmt.Errorf("failed to mark job %s in progress: %w", job.ID, err)
	}

	if taskErr := w.thumbnailer.CreateThumbnail(ctx, job.ImageID, w.height); taskErr != nil {
		log.Printf("workers: job %s failed: %v", job.ID, taskErr)
		if err := w.jobs.MarkFailed(job.ID, taskErr.Error()); err != nil {
			return fmt.Errorf("failed to mark job %s failed: %w", job.ID, err)
		}
		return nil
	}

	if err := w.jobs.MarkCompleted(job.ID); err != nil {
		return fmt.Errorf("failed to mark job %s completed: %w", job.ID, err)
	}
	log.Printf("workers: job %s completed", job.ID)
	return nil
}
