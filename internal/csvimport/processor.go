package csvimport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/timmy/culturemap/internal/dedup"
	"github.com/timmy/culturemap/internal/dictionary"
	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/geocode"
	"github.com/timmy/culturemap/internal/ledger"
)

// LocationStore persists locations keyed by their import hash.
type LocationStore interface {
	FindByHash(ctx context.Context, hash string) (*domain.Location, error)
	Create(ctx context.Context, loc *domain.Location) error
	Update(ctx context.Context, loc *domain.Location) error
}

// TermStore lists the terms of a taxonomy.
type TermStore interface {
	ListTerms(ctx context.Context, taxonomySlug string) ([]domain.Term, error)
}

// Geocoder resolves addresses. Implementations must not fail; see geocode.Resolver.
type Geocoder interface {
	Resolve(ctx context.Context, addr domain.Address, hint *domain.GeoLocation) geocode.Result
}

// RowOutcome describes what processing one row did.
type RowOutcome struct {
	Created  bool
	Updated  bool
	Geocoded bool
	Warnings int
}

// Processor turns single rows into Location upserts.
type Processor struct {
	locations LocationStore
	terms     TermStore
	geocoder  Geocoder
	taxonomy  string
	validate  *validator.Validate
	termIndex map[string]domain.Term
}

// NewProcessor creates a row processor matching institution types against taxonomySlug.
func NewProcessor(locations LocationStore, terms TermStore, geocoder Geocoder, taxonomySlug string) *Processor {
	return &Processor{
		locations: locations,
		terms:     terms,
		geocoder:  geocoder,
		taxonomy:  taxonomySlug,
		validate:  validator.New(),
	}
}

// LoadTerms indexes the institution types by folded German and English name.
func (p *Processor) LoadTerms(ctx context.Context) error {
	p.termIndex = make(map[string]domain.Term)
	if p.terms == nil {
		return nil
	}
	terms, err := p.terms.ListTerms(ctx, p.taxonomy)
	if err != nil {
		return fmt.Errorf("failed to load terms of %s: %w", p.taxonomy, err)
	}
	for _, t := range terms {
		for _, name := range []string{t.NameDe, t.NameEn} {
			if n := dictionary.Normalize(name); n != "" {
				if _, dup := p.termIndex[n]; !dup {
					p.termIndex[n] = t
				}
			}
		}
	}
	return nil
}

// record is a row read through the column mapping.
type record struct {
	values map[string]string
	rowID  string
}

func (r record) get(key string) string {
	return r.values[key]
}

func compose(idx columnIndex, row Row) record {
	rec := record{values: make(map[string]string, len(idx.fields))}
	for key, col := range idx.fields {
		rec.values[key] = row.Value(col)
	}
	if idx.identity >= 0 {
		rec.rowID = row.Value(idx.identity)
	}
	return rec
}

// Process upserts the location described by row. Warnings and notes go to rc;
// a returned error means the row failed.
func (p *Processor) Process(ctx context.Context, rc *ledger.RunContext, imp *domain.Import, idx columnIndex, row Row) (RowOutcome, error) {
	var out RowOutcome
	rec := compose(idx, row)

	titleDe, titleEn := rec.get(dictionary.FieldTitleDe), rec.get(dictionary.FieldTitleEn)
	if titleDe == "" {
		titleDe = titleEn
	}
	if titleEn == "" {
		titleEn = titleDe
	}
	if titleDe == "" {
		return out, errors.New("title is empty")
	}

	hash := dedup.LocationHash(titleDe, titleEn)
	existing, err := p.locations.FindByHash(ctx, hash)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return out, fmt.Errorf("failed to look up location: %w", err)
	}

	warn := func(format string, args ...interface{}) {
		out.Warnings++
		rc.Warnf("Row %d: "+format, append([]interface{}{row.Number}, args...)...)
	}
	p.validateContact(rec, warn)

	addr := domain.Address{
		Co:          rec.get(dictionary.FieldCo),
		Street1:     rec.get(dictionary.FieldStreet1),
		Street2:     rec.get(dictionary.FieldStreet2),
		HouseNumber: rec.get(dictionary.FieldHouseNumber),
		City:        rec.get(dictionary.FieldCity),
		PostCode:    rec.get(dictionary.FieldPostCode),
	}

	loc := existing
	if loc == nil {
		loc = &domain.Location{
			ID:                   uuid.New().String(),
			ImportedLocationHash: hash,
			OwnerID:              imp.OwnerID,
		}
	}
	loc.TitleDe, loc.TitleEn = titleDe, titleEn
	loc.DescriptionDe = rec.get(dictionary.FieldDescriptionDe)
	loc.DescriptionEn = rec.get(dictionary.FieldDescriptionEn)
	loc.Phone = rec.get(dictionary.FieldPhone)
	loc.Email = rec.get(dictionary.FieldEmail)
	loc.Website = rec.get(dictionary.FieldWebsite)
	loc.Facebook = rec.get(dictionary.FieldFacebook)
	loc.Instagram = rec.get(dictionary.FieldInstagram)
	loc.Twitter = rec.get(dictionary.FieldTwitter)
	loc.YouTube = rec.get(dictionary.FieldYouTube)
	loc.ImportID = imp.ID
	loc.ImportedRowID = rec.rowID
	if _, mapped := idx.fields[dictionary.FieldInstitutionType]; mapped {
		loc.Terms = p.matchTerms(rc, row.Number, rec.get(dictionary.FieldInstitutionType))
	}

	switch {
	case existing == nil:
		loc.Address = addr
		res := p.geocoder.Resolve(ctx, addr, nil)
		out.Geocoded = true
		loc.GeoCandidates = res.Candidates
		loc.SetGeoLocation(res.Point)
		if !res.Found() {
			warn("no coordinates for %q (%s), please set them manually", res.Query, res.Reason)
		}
	case !existing.Address.Equal(addr):
		hint := existing.GeoLocation()
		loc.Address = addr
		res := p.geocoder.Resolve(ctx, addr, hint)
		out.Geocoded = true
		loc.GeoCandidates = res.Candidates
		loc.SetGeoLocation(res.Point)
		if res.Found() {
			warn("address of %q changed, please verify the new coordinates", titleDe)
		} else {
			warn("address of %q changed and no coordinates were found for %q (%s)", titleDe, res.Query, res.Reason)
		}
	}

	loc.Status = domain.LocationStatusImported
	if out.Warnings > 0 {
		loc.Status = domain.LocationStatusImportedWarnings
	}

	if existing == nil {
		if err := p.locations.Create(ctx, loc); err != nil {
			return out, fmt.Errorf("failed to create location: %w", err)
		}
		out.Created = true
		rc.Logf("Row %d: created location %q", row.Number, titleDe)
		return out, nil
	}
	if err := p.locations.Update(ctx, loc); err != nil {
		return out, fmt.Errorf("failed to update location %s: %w", loc.ID, err)
	}
	out.Updated = true
	rc.Logf("Row %d: updated location %q", row.Number, titleDe)
	return out, nil
}

func (p *Processor) validateContact(rec record, warn func(string, ...interface{})) {
	if email := rec.get(dictionary.FieldEmail); email != "" {
		if err := p.validate.Var(email, "email"); err != nil {
			warn("invalid email address %q", email)
		}
	}
	for _, key := range dictionary.SocialFields {
		v := rec.get(key)
		if v == "" {
			continue
		}
		if err := p.validate.Var(v, "url"); err != nil {
			warn("invalid URL %q in %s", v, key)
		}
	}
}

// matchTerms resolves a list of institution type names. Unknown names are noted and skipped.
func (p *Processor) matchTerms(rc *ledger.RunContext, rowNumber int, value string) []domain.Term {
	terms := []domain.Term{}
	seen := make(map[string]bool)
	for _, name := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' }) {
		n := dictionary.Normalize(name)
		if n == "" {
			continue
		}
		t, ok := p.termIndex[n]
		if !ok {
			rc.Logf("Row %d: institution type %q not found, skipped", rowNumber, strings.TrimSpace(name))
			continue
		}
		if !seen[t.ID] {
			seen[t.ID] = true
			terms = append(terms, t)
		}
	}
	return terms
}
