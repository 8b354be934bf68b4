package workers

import (
	"errors"
	"sync"

	"github.com/calebwhitt/imagevault/models"
)

// JobQueue is the in-memory FIFO hand-off between upload requests and the
// background worker. Multiple producers enqueue concurrently; a single
// consumer dequeues. The queue is not durable: pending jobs survive a
// restart only through their rows in the record store, which the worker
// re-enqueues on startup.
type JobQueue struct {
	mu   sync.Mutex
	jobs []*models.ThumbnailJob
	wake chan struct{}
}

// NewJobQueue creates an empty queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{wake: make(chan struct{}, 1)}
}

// Enqueue appends a job. It never blocks and fails only on a nil job.
func (q *JobQueue) Enqueue(job *models.ThumbnailJob) error {
	if job == nil {
		return errors.New("cannot enqueue nil job")
	}
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	// non-blocking nudge; a pending signal already covers this enqueue
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// TryDequeue pops the oldest job, if any.
func (q *JobQueue) TryDequeue() (*models.ThumbnailJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, false
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true
}

// Wake returns a channel that fires after an enqueue so the consumer's idle
// wait can cut short instead of sleeping a full poll interval.
func (q *JobQueue) Wake() <-chan struct{} {
	return q.wake
}

// Len reports the number of queued jobs.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
