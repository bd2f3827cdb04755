package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/culturemap/internal/dedup"
	"github.com/timmy/culturemap/internal/domain"
)

func TestLocationRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewLocationRepository(db)
	taxonomies := NewTaxonomyRepository(db)
	ctx := context.Background()

	tax, err := taxonomies.EnsureTaxonomy(ctx, "typeOfInstitution")
	require.NoError(t, err)
	museum := domain.Term{TaxonomyID: tax.ID, NameDe: "Museum", NameEn: "Museum"}
	gallery := domain.Term{TaxonomyID: tax.ID, NameDe: "Galerie", NameEn: "Gallery"}
	require.NoError(t, taxonomies.CreateTerm(ctx, &museum))
	require.NoError(t, taxonomies.CreateTerm(ctx, &gallery))

	hash := dedup.LocationHash("Pergamonmuseum", "Pergamon Museum")
	loc := &domain.Location{
		ID:                   "loc-1",
		TitleDe:              "Pergamonmuseum",
		TitleEn:              "Pergamon Museum",
		Address:              domain.Address{Street1: "Bodestraße", HouseNumber: "1", City: "Berlin", PostCode: "10178"},
		GeoCandidates:        []domain.GeoCandidate{{Lat: 52.52, Lng: 13.39, PostCode: "10178"}},
		Status:               domain.LocationStatusImported,
		ImportedLocationHash: hash,
		Terms:                []domain.Term{museum},
	}
	loc.SetGeoLocation(&domain.GeoLocation{Lat: 52.52, Lng: 13.39})
	require.NoError(t, repo.Create(ctx, loc))

	got, err := repo.FindByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "Bodestraße", got.Address.Street1)
	require.NotNil(t, got.GeoLocation())
	assert.Equal(t, 52.52, got.GeoLocation().Lat)
	require.Len(t, got.GeoCandidates, 1)
	require.Len(t, got.Terms, 1)

	byTitle, err := repo.FindByTitle(ctx, "  pergamon MUSEUM ")
	require.NoError(t, err)
	assert.Equal(t, "loc-1", byTitle.ID)

	_, err = repo.FindByTitle(ctx, "Louvre")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got.Terms = []domain.Term{gallery}
	got.Email = "info@smb.museum"
	require.NoError(t, repo.Update(ctx, got))

	updated, err := repo.Get(ctx, "loc-1")
	require.NoError(t, err)
	assert.Equal(t, "info@smb.museum", updated.Email)
	require.Len(t, updated.Terms, 1)
	assert.Equal(t, gallery.ID, updated.Terms[0].ID)

	updated.Terms = nil
	require.NoError(t, repo.Update(ctx, updated))
	kept, err := repo.Get(ctx, "loc-1")
	require.NoError(t, err)
	assert.Len(t, kept.Terms, 1, "nil terms leave the links alone")

	n, err := repo.CountByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.FindByHash(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
