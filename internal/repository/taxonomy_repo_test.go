package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/culturemap/internal/domain"
)

func TestTaxonomyRepository(t *testing.T) {
	repo := NewTaxonomyRepository(newTestDB(t))
	ctx := context.Background()

	first, err := repo.EnsureTaxonomy(ctx, "eventType")
	require.NoError(t, err)
	again, err := repo.EnsureTaxonomy(ctx, "eventType")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	other, err := repo.EnsureTaxonomy(ctx, "typeOfInstitution")
	require.NoError(t, err)

	require.NoError(t, repo.CreateTerm(ctx, &domain.Term{TaxonomyID: first.ID, NameDe: "Konzert", NameEn: "Concert"}))
	require.NoError(t, repo.CreateTerm(ctx, &domain.Term{TaxonomyID: other.ID, NameDe: "Museum", NameEn: "Museum"}))

	terms, err := repo.ListTerms(ctx, "eventType")
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "Konzert", terms[0].NameDe)
	assert.NotEmpty(t, terms[0].ID)

	none, err := repo.ListTerms(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}
