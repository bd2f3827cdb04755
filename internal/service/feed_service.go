package service

import (
	"context"
	"errors"

	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/jobs"
)

// ErrFeedDisabled is returned when no feed pipeline is configured.
var ErrFeedDisabled = errors.New("feed import is not configured")

// RunRepository reads feed run ledgers.
type RunRepository interface {
	Get(ctx context.Context, id string) (*domain.EventImportLog, error)
	ListRecent(ctx context.Context, limit int) ([]domain.EventImportLog, error)
}

// FeedService exposes feed synchronisation runs.
type FeedService struct {
	runs   RunRepository
	queue  *jobs.Queue
	runner jobs.FeedRunner
}

// NewFeedService creates a feed service. runner may be nil when the feed is disabled.
func NewFeedService(runs RunRepository, queue *jobs.Queue, runner jobs.FeedRunner) *FeedService {
	return &FeedService{runs: runs, queue: queue, runner: runner}
}

// Submit starts a run and queues it. The run is returned together with
// jobs.ErrAlreadyQueued when a sync is already pending.
func (s *FeedService) Submit(ctx context.Context) (*domain.EventImportLog, error) {
	if s.runner == nil || s.queue == nil {
		return nil, ErrFeedDisabled
	}
	return jobs.SubmitFeed(ctx, s.queue, s.runner)
}

// List returns the latest runs.
func (s *FeedService) List(ctx context.Context, limit int) ([]domain.EventImportLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.runs.ListRecent(ctx, limit)
}

// Get returns one run.
func (s *FeedService) Get(ctx context.Context, id string) (*domain.EventImportLog, error) {
	return s.runs.Get(ctx, id)
}
