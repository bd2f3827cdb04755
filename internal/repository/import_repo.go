package repository

import (
	"context"
	"fmt"

	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/ledger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ImportRepository handles spreadsheet import records.
type ImportRepository struct {
	db *gorm.DB
}

// NewImportRepository creates a new ImportRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ImportRepository: repository instance bound to db.
func NewImportRepository(db *gorm.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

// Create inserts a new import record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imp: import record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *ImportRepository) Create(ctx context.Context, imp *domain.Import) error {
	return r.db.WithContext(ctx).Create(imp).Error
}

// Get retrieves an import by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: import ID.
// Returns:
//   - *domain.Import: import record if found.
//   - error: domain.ErrNotFound if missing, other errors if lookup fails.
func (r *ImportRepository) Get(ctx context.Context, id string) (*domain.Import, error) {
	var imp domain.Import
	if err := r.db.WithContext(ctx).First(&imp, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &imp, nil
}

// List returns imports that are not deleted, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ownerID: restricts the list to one owner when non-empty.
//   - limit: maximum number of records.
//   - offset: number of records to skip.
// Returns:
//   - []domain.Import: imports ordered by creation time.
//   - error: non-nil if query fails.
func (r *ImportRepository) List(ctx context.Context, ownerID string, limit, offset int) ([]domain.Import, error) {
	var imports []domain.Import
	query := r.db.WithContext(ctx).
		Where("status <> ?", domain.ImportStatusDeleted).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}
	if err := query.Find(&imports).Error; err != nil {
		return nil, err
	}
	return imports, nil
}

// ListIDsByStatus returns the IDs of imports in status, oldest first.
func (r *ImportRepository) ListIDsByStatus(ctx context.Context, status domain.ImportStatus, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&domain.Import{}).
		Where("status = ?", status).
		Order("updated_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Transition moves an import from one status to another with a conditional
// update, so concurrent callers cannot both win.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: import ID.
//   - from: status the record must currently have.
//   - to: new status.
// Returns:
//   - bool: true if the record was in from and has been moved.
//   - error: domain.ErrInvalidTransition for transitions outside the lifecycle.
func (r *ImportRepository) Transition(ctx context.Context, id string, from, to domain.ImportStatus) (bool, error) {
	if err := domain.ValidateTransition(from, to); err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Import{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update import status: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// UpdateMapping replaces the mapping of an import that is still in ASSIGN.
// Returns false when the import is in another status.
func (r *ImportRepository) UpdateMapping(ctx context.Context, id string, mapping []domain.MappingEntry) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Import{}).
		Where("id = ? AND status = ?", id, domain.ImportStatusAssign).
		Update("mapping", datatypes.JSONSlice[domain.MappingEntry](mapping))
	if res.Error != nil {
		return false, fmt.Errorf("failed to update mapping: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SaveEntries implements ledger.Sink.
func (r *ImportRepository) SaveEntries(ctx context.Context, id string, entries ledger.Entries) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Import{}).
		Where("id = ?", id).
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
