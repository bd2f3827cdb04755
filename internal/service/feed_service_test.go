package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/feed"
	"github.com/timmy/culturemap/internal/jobs"
	"github.com/timmy/culturemap/internal/repository"
)

type stubFeedRunner struct {
	runs    *repository.EventImportLogRepository
	aborted []string
}

func (s *stubFeedRunner) Start(ctx context.Context) (*domain.EventImportLog, error) {
	run := &domain.EventImportLog{ID: uuid.New().String()}
	return run, s.runs.Create(ctx, run)
}

func (s *stubFeedRunner) Execute(ctx context.Context, runID string) *feed.RunStats {
	_ = s.runs.Finish(ctx, runID, time.Now())
	return &feed.RunStats{RunID: runID}
}

func (s *stubFeedRunner) Abort(_ context.Context, runID string, _ error) {
	s.aborted = append(s.aborted, runID)
}

func TestFeedServiceSubmitAndList(t *testing.T) {
	ctx := context.Background()
	runs := repository.NewEventImportLogRepository(openDB(t))
	runner := &stubFeedRunner{runs: runs}
	queue := jobs.NewQueue(4, 1)
	svc := NewFeedService(runs, queue, runner)

	run, err := svc.Submit(ctx)
	require.NoError(t, err)

	_, err = svc.Submit(ctx)
	assert.ErrorIs(t, err, jobs.ErrAlreadyQueued)
	assert.Len(t, runner.aborted, 1)

	queue.Start(ctx)
	queue.Close()

	got, err := svc.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.FinishedAt)

	list, err := svc.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestFeedServiceDisabled(t *testing.T) {
	svc := NewFeedService(repository.NewEventImportLogRepository(openDB(t)), nil, nil)
	_, err := svc.Submit(context.Background())
	assert.ErrorIs(t, err, ErrFeedDisabled)
}
