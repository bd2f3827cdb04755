package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/timmy/culturemap/internal/domain"
	"gorm.io/gorm"
)

// TaxonomyRepository handles taxonomies and their terms.
type TaxonomyRepository struct {
	db *gorm.DB
}

// NewTaxonomyRepository creates a new TaxonomyRepository.
func NewTaxonomyRepository(db *gorm.DB) *TaxonomyRepository {
	return &TaxonomyRepository{db: db}
}

// EnsureTaxonomy returns the taxonomy with slug, creating it when missing.
func (r *TaxonomyRepository) EnsureTaxonomy(ctx context.Context, slug string) (*domain.Taxonomy, error) {
	var tax domain.Taxonomy
	err := r.db.WithContext(ctx).First(&tax, "slug = ?", slug).Error
	if err == nil {
		return &tax, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tax = domain.Taxonomy{ID: uuid.New().String(), Slug: slug, NameDe: slug, NameEn: slug}
	if err := r.db.WithContext(ctx).Create(&tax).Error; err != nil {
		return nil, fmt.Errorf("failed to create taxonomy %s: %w", slug, err)
	}
	return &tax, nil
}

// ListTerms returns the terms of the taxonomy with slug. An unknown slug yields no terms.
func (r *TaxonomyRepository) ListTerms(ctx context.Context, slug string) ([]domain.Term, error) {
	var terms []domain.Term
	err := r.db.WithContext(ctx).
		Joins("JOIN taxonomies ON taxonomies.id = terms.taxonomy_id").
		Where("taxonomies.slug = ?", slug).
		Order("terms.created_at ASC").
		Find(&terms).Error
	if err != nil {
		return nil, err
	}
	return terms, nil
}

// CreateTerm inserts a term.
func (r *TaxonomyRepository) CreateTerm(ctx context.Context, term *domain.Term) error {
	if term.ID == "" {
		term.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(term).Error
}
