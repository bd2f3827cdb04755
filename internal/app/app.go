// Package app wires configuration into the pipelines shared by the API and worker binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/culturemap/internal/config"
	"github.com/timmy/culturemap/internal/csvimport"
	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/feed"
	"github.com/timmy/culturemap/internal/geocode"
	"github.com/timmy/culturemap/internal/logger"
	"github.com/timmy/culturemap/internal/repository"
	"github.com/timmy/culturemap/internal/storage"
	"gorm.io/gorm"
)

// App holds the long lived components of one process.
type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Files   storage.ObjectStorage
	Imports *repository.ImportRepository
	Runs    *repository.EventImportLogRepository
	// CSV detects the delimiter of uploads; Script uses the fixed script delimiter.
	CSV    *csvimport.Pipeline
	Script *csvimport.Pipeline
	// Feed is nil when feed.enabled is off.
	Feed *feed.Pipeline
}

type bucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}

// New opens the database and storage described by cfg and builds the pipelines.
// dbCfg overrides cfg.Database so the worker can use a smaller pool.
func New(ctx context.Context, cfg *config.Config, dbCfg config.DatabaseConfig) (*App, error) {
	db, err := repository.InitDB(&dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	files, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if b, ok := files.(bucketEnsurer); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
	}

	a := &App{
		Config:  cfg,
		DB:      db,
		Files:   files,
		Imports: repository.NewImportRepository(db),
		Runs:    repository.NewEventImportLogRepository(db),
	}

	locations := repository.NewLocationRepository(db)
	taxonomies := repository.NewTaxonomyRepository(db)
	resolver := geocode.NewResolver(&geocode.Config{
		BaseURL:      cfg.Geocoding.BaseURL,
		Timeout:      cfg.Geocoding.Timeout,
		RetryCount:   cfg.Geocoding.RetryCount,
		RetryWait:    cfg.Geocoding.RetryWait,
		RetryMaxWait: cfg.Geocoding.RetryMaxWait,
		Limit:        cfg.Geocoding.Limit,
		Language:     cfg.Geocoding.Language,
		Country:      cfg.Geocoding.Country,
		Center:       domain.GeoLocation{Lat: cfg.Geocoding.CenterLat, Lng: cfg.Geocoding.CenterLng},
	})
	processor := csvimport.NewProcessor(locations, taxonomies, resolver, cfg.Importer.TermTaxonomySlug)

	csvCfg := csvimport.Config{
		Throttle:       cfg.Importer.Throttle,
		MaxPreviewRows: cfg.Importer.MaxPreviewRows,
		MaxRows:        cfg.Importer.MaxRows,
	}
	a.CSV = csvimport.NewPipeline(csvCfg, a.Imports, files, processor)
	csvCfg.Delimiter = []rune(cfg.Importer.ScriptDelimiter)[0]
	a.Script = csvimport.NewPipeline(csvCfg, a.Imports, files, processor)

	if cfg.Feed.Enabled {
		loc, err := time.LoadLocation(cfg.Feed.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid feed.timezone %q: %w", cfg.Feed.Timezone, err)
		}
		client := feed.NewClient(&feed.ClientConfig{
			URL:        cfg.Feed.URL,
			VenueURL:   cfg.Feed.VenueURL,
			Timeout:    cfg.Feed.Timeout,
			RetryCount: cfg.Feed.RetryCount,
		})
		a.Feed, err = feed.NewPipeline(feed.Config{
			TaxonomySlug: cfg.Feed.TaxonomySlug,
			Location:     loc,
			VenueCache:   cfg.Feed.VenueCache,
		}, client, repository.NewEventRepository(db), taxonomies, locations, a.Runs)
		if err != nil {
			return nil, err
		}
	}

	logger.With(logger.Fields{
		"storage": cfg.Storage.Type,
		"driver":  dbCfg.Driver,
		"feed":    cfg.Feed.Enabled,
	}).Info(ctx, "Application initialized")
	return a, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
