package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/culturemap/internal/dedup"
	"github.com/timmy/culturemap/internal/domain"
)

func TestEventRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewEventRepository(db)
	taxonomies := NewTaxonomyRepository(db)
	ctx := context.Background()

	tax, err := taxonomies.EnsureTaxonomy(ctx, "eventType")
	require.NoError(t, err)
	concert := domain.Term{TaxonomyID: tax.ID, NameDe: "Konzert", NameEn: "Concert"}
	reading := domain.Term{TaxonomyID: tax.ID, NameDe: "Lesung", NameEn: "Reading"}
	require.NoError(t, taxonomies.CreateTerm(ctx, &concert))
	require.NoError(t, taxonomies.CreateTerm(ctx, &reading))

	day := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	hash := dedup.EventHash("100")
	ev := &domain.Event{
		ID:                "ev-1",
		TitleDe:           "Sommerkonzert",
		Status:            domain.EventStatusPublished,
		ImportedEventHash: hash,
		ExternalID:        "100",
		IsImported:        true,
		Dates: []domain.EventDate{
			{ID: "d-1", Date: day, Begin: day.Add(19 * time.Hour), End: day.Add(21 * time.Hour)},
		},
		Terms: []domain.Term{concert},
	}
	require.NoError(t, repo.Create(ctx, ev))

	got, err := repo.FindByHash(ctx, hash)
	require.NoError(t, err)
	require.Len(t, got.Dates, 1)
	assert.True(t, got.Dates[0].Begin.Equal(day.Add(19*time.Hour)))
	require.Len(t, got.Terms, 1)

	got.Dates = []domain.EventDate{
		{ID: "d-2", Date: day, Begin: day.Add(18 * time.Hour), End: day.Add(20 * time.Hour)},
		{ID: "d-3", Date: day.AddDate(0, 0, 1), Begin: day.AddDate(0, 0, 1), End: day.AddDate(0, 0, 1)},
	}
	got.Terms = []domain.Term{reading}
	require.NoError(t, repo.Update(ctx, got))

	updated, err := repo.FindByHash(ctx, hash)
	require.NoError(t, err)
	require.Len(t, updated.Dates, 2)
	assert.Equal(t, "d-2", updated.Dates[0].ID)
	require.Len(t, updated.Terms, 1)
	assert.Equal(t, reading.ID, updated.Terms[0].ID)

	manual := &domain.Event{ID: "ev-2", TitleDe: "Handarbeit", ImportedEventHash: dedup.EventHash("200")}
	require.NoError(t, repo.Create(ctx, manual))

	imported, err := repo.ListImported(ctx)
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, "ev-1", imported[0].ID)

	require.NoError(t, repo.Delete(ctx, "ev-1"))
	_, err = repo.FindByHash(ctx, hash)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "ev-1"), domain.ErrNotFound)

	var dates int64
	require.NoError(t, db.Model(&domain.EventDate{}).Where("event_id = ?", "ev-1").Count(&dates).Error)
	assert.Zero(t, dates)
}
