package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/culturemap/internal/dedup"
	"github.com/timmy/culturemap/internal/dictionary"
	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/ledger"
	"github.com/timmy/culturemap/internal/logger"
	"github.com/timmy/culturemap/internal/metrics"
)

// Source provides the remote feed.
type Source interface {
	FetchFeed(ctx context.Context) (*Feed, error)
	FetchVenue(ctx context.Context, id string) (*Venue, error)
}

// EventStore persists events keyed by their import hash.
type EventStore interface {
	FindByHash(ctx context.Context, hash string) (*domain.Event, error)
	Create(ctx context.Context, ev *domain.Event) error
	// Update saves ev and replaces its dates and terms.
	Update(ctx context.Context, ev *domain.Event) error
	Delete(ctx context.Context, id string) error
	ListImported(ctx context.Context) ([]domain.Event, error)
}

// TaxonomyStore manages the category terms.
type TaxonomyStore interface {
	EnsureTaxonomy(ctx context.Context, slug string) (*domain.Taxonomy, error)
	ListTerms(ctx context.Context, slug string) ([]domain.Term, error)
	CreateTerm(ctx context.Context, term *domain.Term) error
}

// LocationFinder matches venues against local locations.
type LocationFinder interface {
	// FindByTitle matches the German or English title case-insensitively.
	FindByTitle(ctx context.Context, title string) (*domain.Location, error)
}

// RunStore persists the ledger of feed runs.
type RunStore interface {
	ledger.Sink
	Create(ctx context.Context, run *domain.EventImportLog) error
	Finish(ctx context.Context, id string, at time.Time) error
}

// Config holds pipeline settings.
type Config struct {
	TaxonomySlug string
	Location     *time.Location
	VenueCache   int
}

// RunStats summarises a feed run.
type RunStats struct {
	RunID     string
	Events    int
	Created   int
	Updated   int
	Unchanged int
	Skipped   int
	Deleted   int
	Failed    int
	Duration  time.Duration
}

// Pipeline imports the feed.
type Pipeline struct {
	cfg        Config
	source     Source
	events     EventStore
	taxonomies TaxonomyStore
	locations  LocationFinder
	runs       RunStore
	now        func() time.Time
}

// NewPipeline creates a feed pipeline. A nil Location means Europe/Berlin.
func NewPipeline(cfg Config, source Source, events EventStore, taxonomies TaxonomyStore, locations LocationFinder, runs RunStore) (*Pipeline, error) {
	if cfg.Location == nil {
		loc, err := time.LoadLocation("Europe/Berlin")
		if err != nil {
			return nil, fmt.Errorf("failed to load time zone: %w", err)
		}
		cfg.Location = loc
	}
	if cfg.TaxonomySlug == "" {
		cfg.TaxonomySlug = "eventType"
	}
	return &Pipeline{
		cfg:        cfg,
		source:     source,
		events:     events,
		taxonomies: taxonomies,
		locations:  locations,
		runs:       runs,
		now:        time.Now,
	}, nil
}

// Start creates the ledger record of a new run.
func (p *Pipeline) Start(ctx context.Context) (*domain.EventImportLog, error) {
	run := &domain.EventImportLog{ID: uuid.New().String()}
	if err := p.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create feed run: %w", err)
	}
	return run, nil
}

// Run starts and executes a run.
func (p *Pipeline) Run(ctx context.Context) (*RunStats, error) {
	run, err := p.Start(ctx)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, run.ID), nil
}

// Abort finishes a started run that will not be executed.
func (p *Pipeline) Abort(ctx context.Context, runID string, cause error) {
	ctx = context.WithoutCancel(logger.SetRunID(ctx, runID))
	rc := ledger.NewRunContext(runID, p.runs, ledger.Entries{}, logger.FromContext(ctx))
	rc.Errorf("Feed import was not started: %v", cause)
	if err := rc.Flush(ctx); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to flush feed run ledger")
	}
	if err := p.runs.Finish(ctx, runID, p.now()); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to finish feed run")
	}
}

// run is the state of one execution. It is never shared between executions.
type run struct {
	rc         *ledger.RunContext
	stats      *RunStats
	feed       *Feed
	venues     *venueCache
	categories map[string]domain.Term
	seen       map[string]bool
}

// Execute runs the sync for a started run. Problems end up in the run ledger;
// the run is always marked finished.
func (p *Pipeline) Execute(ctx context.Context, runID string) *RunStats {
	start := p.now()
	ctx = logger.SetRunID(ctx, runID)
	r := &run{
		rc:     ledger.NewRunContext(runID, p.runs, ledger.Entries{}, logger.FromContext(ctx)),
		stats:  &RunStats{RunID: runID},
		venues: newVenueCache(p.cfg.VenueCache),
		seen:   make(map[string]bool),
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.rc.Errorf("Feed import crashed: %v", rec)
		}
		r.stats.Duration = time.Since(start)
		r.rc.Logf("Feed import finished: %d events, %d created, %d updated, %d unchanged, %d skipped, %d deleted, %d failed",
			r.stats.Events, r.stats.Created, r.stats.Updated, r.stats.Unchanged, r.stats.Skipped, r.stats.Deleted, r.stats.Failed)

		finishCtx := context.WithoutCancel(ctx)
		if err := r.rc.Flush(finishCtx); err != nil {
			logger.FromContext(ctx).WithError(err).Error("Failed to flush feed run ledger")
		}
		if err := p.runs.Finish(finishCtx, runID, p.now()); err != nil {
			logger.FromContext(ctx).WithError(err).Error("Failed to finish feed run")
		}
	}()

	r.rc.Logf("Feed import started")
	feed, err := p.source.FetchFeed(ctx)
	if err != nil {
		r.rc.Errorf("Feed could not be fetched: %v", err)
		return r.stats
	}
	r.feed = feed
	r.rc.Logf("Feed fetched: %d events, %d venues, %d organizers, %d categories",
		len(feed.Events), len(feed.Venues), len(feed.Organizers), len(feed.Categories))
	p.flush(ctx, r.rc)

	if err := p.syncCategories(ctx, r); err != nil {
		r.rc.Errorf("Categories could not be synchronised: %v", err)
		return r.stats
	}
	p.flush(ctx, r.rc)

	for _, key := range sortedKeys(feed.Events) {
		if ctx.Err() != nil {
			r.rc.Errorf("Feed import interrupted: %v", ctx.Err())
			return r.stats
		}
		r.stats.Events++
		action, err := p.importEvent(ctx, r, key, feed.Events[key])
		if err != nil {
			r.stats.Failed++
			action = "failed"
			r.rc.Errorf("Event %s: %v", feed.Events[key].externalID(key), err)
		}
		metrics.FeedEvents.WithLabelValues(action).Inc()
		p.flush(ctx, r.rc)
	}

	p.collectGarbage(ctx, r)
	return r.stats
}

func (p *Pipeline) flush(ctx context.Context, rc *ledger.RunContext) {
	if err := rc.Flush(ctx); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to flush feed run ledger")
	}
}

// syncCategories finds or creates a term for every feed category.
func (p *Pipeline) syncCategories(ctx context.Context, r *run) error {
	tax, err := p.taxonomies.EnsureTaxonomy(ctx, p.cfg.TaxonomySlug)
	if err != nil {
		return err
	}
	terms, err := p.taxonomies.ListTerms(ctx, p.cfg.TaxonomySlug)
	if err != nil {
		return err
	}

	byName := make(map[string]domain.Term, len(terms)*2)
	for _, t := range terms {
		for _, name := range []string{t.NameDe, t.NameEn} {
			if n := dictionary.Normalize(name); n != "" {
				if _, dup := byName[n]; !dup {
					byName[n] = t
				}
			}
		}
	}

	r.categories = make(map[string]domain.Term, len(r.feed.Categories))
	for _, key := range sortedKeys(r.feed.Categories) {
		c := r.feed.Categories[key]
		id := key
		if c.ID != "" {
			id = string(c.ID)
		}
		nameDe := strings.TrimSpace(c.Name)
		nameEn := strings.TrimSpace(c.NameEn)
		if nameDe == "" {
			r.rc.Warnf("Category %s has no name, skipped", id)
			continue
		}
		if nameEn == "" {
			r.rc.Warnf("Category %q has no English name, using the German one", nameDe)
			nameEn = nameDe
		}

		term, ok := byName[dictionary.Normalize(nameDe)]
		if !ok {
			term, ok = byName[dictionary.Normalize(nameEn)]
		}
		if !ok {
			term = domain.Term{ID: uuid.New().String(), TaxonomyID: tax.ID, NameDe: nameDe, NameEn: nameEn}
			if err := p.taxonomies.CreateTerm(ctx, &term); err != nil {
				return fmt.Errorf("failed to create term %q: %w", nameDe, err)
			}
			byName[dictionary.Normalize(nameDe)] = term
			byName[dictionary.Normalize(nameEn)] = term
			r.rc.Logf("Created category %q", nameDe)
		}
		r.categories[id] = term
	}
	return nil
}

// importEvent applies one feed event and returns the action taken.
func (p *Pipeline) importEvent(ctx context.Context, r *run, key string, fe Event) (action string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("unexpected failure: %v", rec)
		}
	}()

	externalID := fe.externalID(key)
	hash := dedup.EventHash(externalID)
	r.seen[hash] = true

	existing, err := p.events.FindByHash(ctx, hash)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("failed to look up event: %w", err)
	}
	if existing != nil && !existing.IsImported {
		r.stats.Skipped++
		r.rc.Logf("Event %s: maintained manually, skipped", externalID)
		return "skipped", nil
	}

	dates, problems := futureDates(fe.Dates, p.cfg.Location, p.now())
	for _, msg := range problems {
		r.rc.Warnf("Event %s: %s", externalID, msg)
	}

	if len(dates) == 0 {
		if existing == nil {
			r.stats.Skipped++
			r.rc.Logf("Event %s: no upcoming dates, skipped", externalID)
			return "skipped", nil
		}
		if err := p.events.Delete(ctx, existing.ID); err != nil {
			return "", fmt.Errorf("failed to delete lapsed event %s: %w", existing.ID, err)
		}
		r.stats.Deleted++
		r.rc.Logf("Event %s: no upcoming dates, deleted event %s", externalID, existing.ID)
		return "deleted", nil
	}

	locationID := p.resolveVenue(ctx, r, externalID, string(fe.VenueID))
	modified := p.parseModified(fe.LastModified)

	ev := existing
	if ev == nil {
		ev = &domain.Event{
			ID:                uuid.New().String(),
			ImportedEventHash: hash,
			ExternalID:        externalID,
			IsImported:        true,
			Status:            domain.EventStatusPublished,
		}
	} else {
		venueChanged := !ev.SameLocation(locationID)
		newer := modified == nil || ev.LastUpdate == nil || modified.After(*ev.LastUpdate)
		if !venueChanged && !newer {
			r.stats.Unchanged++
			r.rc.Logf("Event %s: no change", externalID)
			return "unchanged", nil
		}
		if venueChanged {
			r.rc.Logf("Event %s: venue changed", externalID)
		}
	}

	p.fill(r, ev, fe, externalID, dates, locationID)
	stamp := p.now()
	if modified != nil {
		stamp = *modified
	}
	ev.LastUpdate = &stamp

	if existing == nil {
		if err := p.events.Create(ctx, ev); err != nil {
			return "", fmt.Errorf("failed to create event: %w", err)
		}
		r.stats.Created++
		r.rc.Logf("Event %s: created event %s with %d dates", externalID, ev.ID, len(dates))
		return "created", nil
	}
	if err := p.events.Update(ctx, ev); err != nil {
		return "", fmt.Errorf("failed to update event %s: %w", ev.ID, err)
	}
	r.stats.Updated++
	r.rc.Logf("Event %s: updated event %s with %d dates", externalID, ev.ID, len(dates))
	return "updated", nil
}

// fill copies feed content onto ev.
func (p *Pipeline) fill(r *run, ev *domain.Event, fe Event, externalID string, dates []domain.EventDate, locationID *string) {
	ev.TitleDe = strings.TrimSpace(fe.Title)
	ev.TitleEn = strings.TrimSpace(fe.TitleEn)
	if ev.TitleEn == "" {
		ev.TitleEn = ev.TitleDe
	}
	ev.DescriptionDe = strings.TrimSpace(fe.Description)
	ev.DescriptionEn = strings.TrimSpace(fe.DescriptionEn)
	if ev.DescriptionEn == "" {
		ev.DescriptionEn = ev.DescriptionDe
	}
	ev.LocationID = locationID

	var organizers []string
	for _, id := range fe.OrganizerIDs {
		if o, ok := r.feed.Organizers[string(id)]; ok && strings.TrimSpace(o.Name) != "" {
			organizers = append(organizers, strings.TrimSpace(o.Name))
		}
	}
	ev.Organizer = strings.Join(organizers, ", ")

	ev.Dates = make([]domain.EventDate, len(dates))
	for i, d := range dates {
		d.ID = uuid.New().String()
		d.EventID = ev.ID
		ev.Dates[i] = d
	}

	ev.Terms = []domain.Term{}
	for _, id := range fe.CategoryIDs {
		t, ok := r.categories[string(id)]
		if !ok {
			r.rc.Warnf("Event %s: unknown category %s", externalID, id)
			continue
		}
		ev.Terms = append(ev.Terms, t)
	}
}

// resolveVenue maps a feed venue to a local location id, once per venue and run.
func (p *Pipeline) resolveVenue(ctx context.Context, r *run, externalID, venueID string) *string {
	if venueID == "" {
		return nil
	}
	if locationID, ok := r.venues.get(venueID); ok {
		if locationID == nil {
			r.rc.Warnf("Event %s: venue %s has no matching location, event left unlinked", externalID, venueID)
		}
		return locationID
	}

	venue, err := p.source.FetchVenue(ctx, venueID)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warnf("Venue %s lookup failed, using feed data", venueID)
		venue = nil
	}
	if venue == nil {
		if embedded, ok := r.feed.Venues[venueID]; ok {
			venue = &embedded
		}
	}

	var locationID *string
	if venue != nil {
		for _, name := range []string{venue.Name, venue.NameEn} {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			loc, err := p.locations.FindByTitle(ctx, name)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					logger.FromContext(ctx).WithError(err).Warnf("Location lookup for venue %s failed", venueID)
				}
				continue
			}
			id := loc.ID
			locationID = &id
			break
		}
	}
	r.venues.put(venueID, locationID)

	if locationID == nil {
		r.rc.Warnf("Event %s: venue %s has no matching location, event left unlinked", externalID, venueID)
	}
	return locationID
}

var modifiedLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"}

// parseModified reads the feed modification timestamp in the feed zone; nil when absent or unreadable.
func (p *Pipeline) parseModified(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range modifiedLayouts {
		if t, err := time.ParseInLocation(layout, s, p.cfg.Location); err == nil {
			return &t
		}
	}
	return nil
}

// collectGarbage deletes imported events that disappeared from the feed.
func (p *Pipeline) collectGarbage(ctx context.Context, r *run) {
	imported, err := p.events.ListImported(ctx)
	if err != nil {
		r.rc.Errorf("Removed events could not be listed: %v", err)
		return
	}
	for _, ev := range imported {
		if r.seen[ev.ImportedEventHash] {
			continue
		}
		if err := p.events.Delete(ctx, ev.ID); err != nil {
			r.rc.Errorf("Event %s (external id %s) could not be deleted: %v", ev.ID, ev.ExternalID, err)
			metrics.FeedEvents.WithLabelValues("failed").Inc()
			continue
		}
		r.stats.Deleted++
		metrics.FeedEvents.WithLabelValues("deleted").Inc()
		r.rc.Logf("Deleted event %s (external id %s), it is no longer in the feed", ev.ID, ev.ExternalID)
		p.flush(ctx, r.rc)
	}
}
