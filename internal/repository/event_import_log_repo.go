package repository

import (
	"context"
	"time"

	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/ledger"
	"gorm.io/gorm"
)

// EventImportLogRepository handles the ledgers of feed runs.
type EventImportLogRepository struct {
	db *gorm.DB
}

// NewEventImportLogRepository creates a new EventImportLogRepository.
func NewEventImportLogRepository(db *gorm.DB) *EventImportLogRepository {
	return &EventImportLogRepository{db: db}
}

// Create inserts a new run record.
func (r *EventImportLogRepository) Create(ctx context.Context, run *domain.EventImportLog) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Get retrieves a run by its ID.
func (r *EventImportLogRepository) Get(ctx context.Context, id string) (*domain.EventImportLog, error) {
	var run domain.EventImportLog
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

// ListRecent returns the latest runs, newest first.
func (r *EventImportLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.EventImportLog, error) {
	var runs []domain.EventImportLog
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// SaveEntries implements ledger.Sink. Finished runs are not modified.
func (r *EventImportLogRepository) SaveEntries(ctx context.Context, id string, entries ledger.Entries) error {
	res := r.db.WithContext(ctx).
		Model(&domain.EventImportLog{}).
		Where("id = ? AND finished_at IS NULL", id).
		Updates(map[string]interface{}{
			"log":      domain.StringArray(entries.Log),
			"warnings": domain.StringArray(entries.Warnings),
			"errors":   domain.StringArray(entries.Errors),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Finish marks a run as ended.
func (r *EventImportLogRepository) Finish(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.EventImportLog{}).
		Where("id = ? AND finished_at IS NULL", id).
		Update("finished_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
