// Package jobs runs pipeline work outside the request path.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/timmy/culturemap/internal/logger"
	"github.com/timmy/culturemap/internal/metrics"
)

const (
	KindCSVImport = "csv_import"
	KindFeedSync  = "feed_sync"
)

var (
	// ErrQueueFull is returned when the buffer is exhausted; callers may retry later.
	ErrQueueFull = errors.New("job queue is full")
	// ErrQueueClosed is returned after Close.
	ErrQueueClosed = errors.New("job queue is closed")
	// ErrAlreadyQueued is returned for a key that is pending or running.
	ErrAlreadyQueued = errors.New("job is already queued")
)

// Job is one unit of background work. Jobs with the same Key never run twice concurrently.
type Job struct {
	Kind string
	Key  string
	Run  func(ctx context.Context) error
}

// Queue is a buffered in-process queue drained by a fixed set of workers.
type Queue struct {
	jobs    chan Job
	workers int

	mu      sync.Mutex
	pending map[string]bool
	closed  bool
	started bool

	wg sync.WaitGroup
}

// NewQueue creates a queue buffering size jobs for the given number of workers.
func NewQueue(size, workers int) *Queue {
	if size <= 0 {
		size = 64
	}
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		jobs:    make(chan Job, size),
		workers: workers,
		pending: make(map[string]bool),
	}
}

// Start launches the workers. Jobs run with ctx, so cancelling it interrupts them.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	ctx = logger.SetComponent(ctx, "jobs")
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Submit enqueues job without blocking.
func (q *Queue) Submit(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %s has no run function", job.Kind)
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if job.Key != "" && q.pending[job.Key] {
		return ErrAlreadyQueued
	}
	select {
	case q.jobs <- job:
	default:
		metrics.Jobs.WithLabelValues(job.Kind, "rejected").Inc()
		return ErrQueueFull
	}
	if job.Key != "" {
		q.pending[job.Key] = true
	}
	metrics.Jobs.WithLabelValues(job.Kind, "submitted").Inc()
	return nil
}

// Len returns the number of jobs waiting.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Close stops accepting jobs and waits until the workers have drained the queue.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.execute(ctx, id, job)
	}
}

func (q *Queue) execute(ctx context.Context, workerID int, job Job) {
	ctx = logger.WithFields(ctx, logger.Fields{logger.FieldJobKind: job.Kind, "worker": workerID})
	log := logger.FromContext(ctx)
	start := time.Now()

	defer func() {
		if job.Key != "" {
			q.mu.Lock()
			delete(q.pending, job.Key)
			q.mu.Unlock()
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			metrics.Jobs.WithLabelValues(job.Kind, "panic").Inc()
			log.WithField("panic", fmt.Sprint(r)).Error("Job panicked")
		}
	}()

	if ctx.Err() != nil {
		metrics.Jobs.WithLabelValues(job.Kind, "cancelled").Inc()
		log.Warn("Job dropped, queue is shutting down")
		return
	}

	err := job.Run(ctx)
	log = log.WithField(logger.FieldDurationMs, time.Since(start).Milliseconds())
	if err != nil {
		metrics.Jobs.WithLabelValues(job.Kind, "failed").Inc()
		log.WithError(err).Error("Job failed")
		return
	}
	metrics.Jobs.WithLabelValues(job.Kind, "succeeded").Inc()
	log.Info("Job finished")
}
