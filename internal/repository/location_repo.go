package repository

import (
	"context"
	"strings"

	"github.com/timmy/culturemap/internal/domain"
	"gorm.io/gorm"
)

// LocationRepository handles location data operations.
type LocationRepository struct {
	db *gorm.DB
}

// NewLocationRepository creates a new LocationRepository.
func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// FindByHash retrieves the non-deleted location imported under hash.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - hash: import hash of the location identity.
// Returns:
//   - *domain.Location: location with its terms if found.
//   - error: domain.ErrNotFound if missing, other errors if lookup fails.
func (r *LocationRepository) FindByHash(ctx context.Context, hash string) (*domain.Location, error) {
	var loc domain.Location
	err := r.db.WithContext(ctx).
		Preload("Terms").
		Where("imported_location_hash = ?", hash).
		Order("created_at ASC").
		First(&loc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &loc, nil
}

// FindByTitle matches title against the German or English title, ignoring case.
func (r *LocationRepository) FindByTitle(ctx context.Context, title string) (*domain.Location, error) {
	var loc domain.Location
	t := strings.ToLower(strings.TrimSpace(title))
	err := r.db.WithContext(ctx).
		Where("LOWER(title_de) = ? OR LOWER(title_en) = ?", t, t).
		Order("created_at ASC").
		First(&loc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &loc, nil
}

// Get retrieves a location by its ID.
func (r *LocationRepository) Get(ctx context.Context, id string) (*domain.Location, error) {
	var loc domain.Location
	if err := r.db.WithContext(ctx).Preload("Terms").First(&loc, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &loc, nil
}

// Create inserts a location and links its terms. Terms must already exist.
func (r *LocationRepository) Create(ctx context.Context, loc *domain.Location) error {
	return r.db.WithContext(ctx).Omit("Terms.*").Create(loc).Error
}

// Update saves loc. A non-nil Terms slice replaces the linked terms.
func (r *LocationRepository) Update(ctx context.Context, loc *domain.Location) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Terms").Save(loc).Error; err != nil {
			return err
		}
		if loc.Terms == nil {
			return nil
		}
		return replaceTerms(tx.Model(loc).Association("Terms"), loc.Terms)
	})
}

// CountByHash reports how many non-deleted locations share hash.
func (r *LocationRepository) CountByHash(ctx context.Context, hash string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Location{}).Where("imported_location_hash = ?", hash).Count(&n).Error
	return n, err
}

func replaceTerms(assoc *gorm.Association, terms []domain.Term) error {
	if len(terms) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(terms)
}
