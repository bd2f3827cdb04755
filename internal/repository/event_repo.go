package repository

import (
	"context"

	"github.com/timmy/culturemap/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRepository handles event data operations.
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// FindByHash retrieves the non-deleted event imported under hash, with dates and terms.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - hash: import hash of the external id.
// Returns:
//   - *domain.Event: event if found.
//   - error: domain.ErrNotFound if missing, other errors if lookup fails.
func (r *EventRepository) FindByHash(ctx context.Context, hash string) (*domain.Event, error) {
	var ev domain.Event
	err := r.db.WithContext(ctx).
		Preload("Dates", func(db *gorm.DB) *gorm.DB { return db.Order("begin_at ASC") }).
		Preload("Terms").
		Where("imported_event_hash = ?", hash).
		Order("created_at ASC").
		First(&ev).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ev, nil
}

// Create inserts an event with its dates and links its terms.
func (r *EventRepository) Create(ctx context.Context, ev *domain.Event) error {
	return r.db.WithContext(ctx).Omit("Terms.*").Create(ev).Error
}

// Update saves ev and replaces its dates and terms.
func (r *EventRepository) Update(ctx context.Context, ev *domain.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", ev.ID).Delete(&domain.EventDate{}).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(ev).Error; err != nil {
			return err
		}
		if len(ev.Dates) > 0 {
			for i := range ev.Dates {
				ev.Dates[i].EventID = ev.ID
			}
			if err := tx.Create(&ev.Dates).Error; err != nil {
				return err
			}
		}
		return replaceTerms(tx.Model(ev).Association("Terms"), ev.Terms)
	})
}

// Delete removes the dates and term links of an event and soft deletes it.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&domain.EventDate{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Event{ID: id}).Association("Terms").Clear(); err != nil {
			return err
		}
		res := tx.Delete(&domain.Event{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// ListImported returns all non-deleted events created by the feed import.
func (r *EventRepository) ListImported(ctx context.Context) ([]domain.Event, error) {
	var events []domain.Event
	if err := r.db.WithContext(ctx).Where("is_imported = ?", true).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
