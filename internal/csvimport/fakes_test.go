package csvimport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/geocode"
	"github.com/timmy/culturemap/internal/ledger"
)

type fakeImports struct {
	mu      sync.Mutex
	records map[string]*domain.Import
	flushes int
}

func newFakeImports(imps ...*domain.Import) *fakeImports {
	f := &fakeImports{records: map[string]*domain.Import{}}
	for _, imp := range imps {
		f.records[imp.ID] = imp
	}
	return f
}

func (f *fakeImports) Get(_ context.Context, id string) (*domain.Import, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	imp, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *imp
	return &cp, nil
}

func (f *fakeImports) Transition(_ context.Context, id string, from, to domain.ImportStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	imp, ok := f.records[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if imp.Status != from {
		return false, nil
	}
	imp.Status = to
	return true, nil
}

func (f *fakeImports) SaveEntries(_ context.Context, id string, e ledger.Entries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	imp, ok := f.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	imp.Log, imp.Warnings, imp.Errors = e.Log, e.Warnings, e.Errors
	f.flushes++
	return nil
}

type fakeFiles map[string][]byte

func (f fakeFiles) Download(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := f[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type fakeLocations struct {
	byHash  map[string]*domain.Location
	creates int
	updates int
	// panicOn makes Create panic for the given German title.
	panicOn string
}

func newFakeLocations() *fakeLocations {
	return &fakeLocations{byHash: map[string]*domain.Location{}}
}

func (f *fakeLocations) FindByHash(_ context.Context, hash string) (*domain.Location, error) {
	loc, ok := f.byHash[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *loc
	return &cp, nil
}

func (f *fakeLocations) Create(_ context.Context, loc *domain.Location) error {
	if f.panicOn != "" && loc.TitleDe == f.panicOn {
		panic("storage exploded")
	}
	f.creates++
	cp := *loc
	f.byHash[loc.ImportedLocationHash] = &cp
	return nil
}

func (f *fakeLocations) Update(_ context.Context, loc *domain.Location) error {
	f.updates++
	cp := *loc
	f.byHash[loc.ImportedLocationHash] = &cp
	return nil
}

type fakeTerms []domain.Term

func (f fakeTerms) ListTerms(context.Context, string) ([]domain.Term, error) {
	return f, nil
}

type fakeGeocoder struct {
	calls  int
	result func(addr domain.Address) geocode.Result
}

func (f *fakeGeocoder) Resolve(_ context.Context, addr domain.Address, _ *domain.GeoLocation) geocode.Result {
	f.calls++
	if f.result != nil {
		return f.result(addr)
	}
	p := domain.GeoLocation{Lat: 52.5, Lng: 13.4}
	return geocode.Result{
		Query:      geocode.BuildQuery(addr, "Deutschland"),
		Point:      &p,
		Candidates: []domain.GeoCandidate{{Lat: p.Lat, Lng: p.Lng, PostCode: addr.PostCode}},
	}
}
