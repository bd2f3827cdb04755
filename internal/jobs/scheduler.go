package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/timmy/culturemap/internal/csvimport"
	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/feed"
	"github.com/timmy/culturemap/internal/logger"
)

// CSVRunner runs one spreadsheet import.
type CSVRunner interface {
	Run(ctx context.Context, id string) (*csvimport.RunStats, bool, error)
}

// FeedRunner runs one feed sync for an already started run.
type FeedRunner interface {
	Start(ctx context.Context) (*domain.EventImportLog, error)
	Execute(ctx context.Context, runID string) *feed.RunStats
	Abort(ctx context.Context, runID string, cause error)
}

// ImportLister finds imports waiting for processing.
type ImportLister interface {
	ListIDsByStatus(ctx context.Context, status domain.ImportStatus, limit int) ([]string, error)
}

// CSVImportJob wraps a spreadsheet import run.
func CSVImportJob(runner CSVRunner, importID string) Job {
	return Job{
		Kind: KindCSVImport,
		Key:  KindCSVImport + ":" + importID,
		Run: func(ctx context.Context) error {
			ctx = logger.SetImportID(ctx, importID)
			stats, claimed, err := runner.Run(ctx, importID)
			if err != nil || !claimed {
				return err
			}
			logger.With(logger.Fields{
				logger.FieldStatus:     stats.Status,
				logger.FieldCount:      stats.Rows,
				logger.FieldDurationMs: stats.Duration.Milliseconds(),
			}).Info(ctx, "Import processed: %d created, %d updated, %d failed", stats.Created, stats.Updated, stats.Failed)
			return nil
		},
	}
}

// FeedSyncJob wraps the execution of a started feed run.
func FeedSyncJob(runner FeedRunner, runID string) Job {
	return Job{
		Kind: KindFeedSync,
		Key:  KindFeedSync,
		Run: func(ctx context.Context) error {
			stats := runner.Execute(ctx, runID)
			logger.With(logger.Fields{
				logger.FieldRunID:      runID,
				logger.FieldCount:      stats.Events,
				logger.FieldDurationMs: stats.Duration.Milliseconds(),
			}).Info(ctx, "Feed synchronised: %d created, %d updated, %d deleted", stats.Created, stats.Updated, stats.Deleted)
			return nil
		},
	}
}

// SchedulerConfig holds the tick intervals. A zero FeedInterval disables feed syncs.
type SchedulerConfig struct {
	Interval     time.Duration
	FeedInterval time.Duration
	BatchSize    int
}

// Scheduler periodically submits scheduled imports and feed syncs.
type Scheduler struct {
	cfg     SchedulerConfig
	queue   *Queue
	imports ImportLister
	csv     CSVRunner
	feed    FeedRunner
}

// NewScheduler creates a scheduler. feedRunner may be nil.
func NewScheduler(cfg SchedulerConfig, queue *Queue, imports ImportLister, csvRunner CSVRunner, feedRunner FeedRunner) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Scheduler{cfg: cfg, queue: queue, imports: imports, csv: csvRunner, feed: feedRunner}
}

// Run ticks until ctx is done. The first scan happens immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx = logger.SetComponent(ctx, "scheduler")
	logger.CtxInfo(ctx, "Scheduler started, import interval %s, feed interval %s", s.cfg.Interval, s.cfg.FeedInterval)

	importTicker := time.NewTicker(s.cfg.Interval)
	defer importTicker.Stop()

	var feedC <-chan time.Time
	if s.feed != nil && s.cfg.FeedInterval > 0 {
		feedTicker := time.NewTicker(s.cfg.FeedInterval)
		defer feedTicker.Stop()
		feedC = feedTicker.C
	}

	s.SubmitImports(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.CtxInfo(ctx, "Scheduler stopped")
			return ctx.Err()
		case <-importTicker.C:
			s.SubmitImports(ctx)
		case <-feedC:
			if _, err := s.SubmitFeed(ctx); err != nil && !errors.Is(err, ErrAlreadyQueued) {
				logger.FromContext(ctx).WithError(err).Error("Failed to submit feed sync")
			}
		}
	}
}

// SubmitImports queues every import in PROCESS and returns how many were accepted.
func (s *Scheduler) SubmitImports(ctx context.Context) int {
	ids, err := s.imports.ListIDsByStatus(ctx, domain.ImportStatusProcess, s.cfg.BatchSize)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to list scheduled imports")
		return 0
	}

	submitted := 0
	for _, id := range ids {
		err := s.queue.Submit(CSVImportJob(s.csv, id))
		switch {
		case err == nil:
			submitted++
		case errors.Is(err, ErrAlreadyQueued):
		default:
			logger.FromContext(ctx).WithError(err).WithField(logger.FieldImportID, id).Warn("Failed to submit import")
		}
	}
	if submitted > 0 {
		logger.CtxInfo(ctx, "Submitted %d imports", submitted)
	}
	return submitted
}

// SubmitFeed starts a feed run and queues its execution.
func (s *Scheduler) SubmitFeed(ctx context.Context) (*domain.EventImportLog, error) {
	return SubmitFeed(ctx, s.queue, s.feed)
}

// SubmitFeed starts a run record and queues it on q. The record exists even
// when queueing fails so the failure is visible in the run list.
func SubmitFeed(ctx context.Context, q *Queue, runner FeedRunner) (*domain.EventImportLog, error) {
	if runner == nil {
		return nil, errors.New("feed import is not configured")
	}
	run, err := runner.Start(ctx)
	if err != nil {
		return nil, err
	}
	if err := q.Submit(FeedSyncJob(runner, run.ID)); err != nil {
		runner.Abort(ctx, run.ID, err)
		return run, err
	}
	return run, nil
}
