// Package bootstrap builds the pipeline components from configuration. It is
// shared by the server and the operational CLI.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/eventdex/internal/adapters/repository"
	"github.com/okian/eventdex/internal/adapters/source"
	service "github.com/okian/eventdex/internal/app"
	"github.com/okian/eventdex/internal/config"
	"github.com/okian/eventdex/internal/domain/geocode"
	"github.com/okian/eventdex/internal/domain/normalize"
	"github.com/okian/eventdex/internal/domain/temporal"
	"github.com/okian/eventdex/pkg/logger"
)

// Pipeline holds the collaborators of the indexing service.
type Pipeline struct {
	Source     source.DocumentSource
	Normalizer *normalize.Normalizer
	Store      repository.Store
	Geocoder   *geocode.Client
}

// Close releases the store.
func (p *Pipeline) Close() error {
	return p.Store.Close()
}

// Build constructs every pipeline component described by cfg.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (*Pipeline, error) {
	norm, geo, err := NewNormalizer(cfg, log)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Source:     source.NewDirSource(cfg.SourceDir),
		Normalizer: norm,
		Store:      store,
		Geocoder:   geo,
	}, nil
}

// NewService wraps a pipeline in the application service.
func NewService(p *Pipeline, cfg *config.Config, log logger.Logger) *service.Service {
	return service.New(p.Source, p.Normalizer, p.Store,
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.EventQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithReindexConcurrency(cfg.ReindexConcurrency),
		service.WithReindexLimit(cfg.ReindexLimit),
		service.WithReindexSchedule(cfg.ReindexSchedule),
		service.WithBackfill(cfg.Backfill),
	)
}

// NewNormalizer builds the temporal resolver, the geocoding client and the
// normalizer over them. The geocoder is nil when no provider is configured.
func NewNormalizer(cfg *config.Config, log logger.Logger) (*normalize.Normalizer, *geocode.Client, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	geo, err := NewGeocoder(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	var g geocode.Geocoder
	if geo != nil {
		g = geo
	}
	norm := normalize.New(temporal.NewResolver(loc), g,
		normalize.Region{
			DefaultState:   cfg.Region.DefaultState,
			DefaultCountry: cfg.Region.DefaultCountry,
		},
		normalize.WithLogger(log),
	)
	return norm, geo, nil
}

// NewGeocoder returns a client over the configured providers, Google first.
func NewGeocoder(cfg *config.Config, log logger.Logger) (*geocode.Client, error) {
	gc := cfg.Geocode
	httpClient := &http.Client{Timeout: cfg.GeocodeTimeout()}

	var providers []geocode.Provider
	if gc.GoogleAPIKey != "" {
		providers = append(providers, geocode.NewGoogleProvider(gc.GoogleAPIKey,
			geocode.WithBaseURL(gc.GoogleBaseURL),
			geocode.WithHTTPClient(httpClient),
			geocode.WithUserAgent(gc.UserAgent),
		))
	}
	if gc.NominatimEnabled {
		providers = append(providers, geocode.NewNominatimProvider(
			geocode.WithBaseURL(gc.NominatimBaseURL),
			geocode.WithHTTPClient(httpClient),
			geocode.WithUserAgent(gc.UserAgent),
		))
	}
	if len(providers) == 0 {
		log.Warn(context.Background(), "no geocoding provider configured; events will have no coordinates")
		return nil, nil
	}

	cache, err := geocode.NewMemoryCache(gc.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("geocode cache: %w", err)
	}
	return geocode.NewClient(providers,
		geocode.WithCache(cache),
		geocode.WithBoundingBox(geocode.BoundingBox{
			MinLat: gc.BBox.MinLat,
			MaxLat: gc.BBox.MaxLat,
			MinLng: gc.BBox.MinLng,
			MaxLng: gc.BBox.MaxLng,
		}),
		geocode.WithTimeout(cfg.GeocodeTimeout()),
		geocode.WithTTL(cfg.GeocodeCacheTTL()),
		geocode.WithLogger(log),
	), nil
}

// NewStore opens the configured index backend.
func NewStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendSurreal:
		s := cfg.Surreal
		store, err := repository.NewSurrealStore(ctx, repository.SurrealConfig{
			URL:       s.URL,
			Namespace: s.Namespace,
			Database:  s.Database,
			Username:  s.Username,
			Password:  s.Password,
			AuthLevel: s.AuthLevel,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("open surreal store: %w", err)
		}
		log.Info(ctx, "using surreal store", logger.String("url", s.URL))
		return store, nil
	default:
		log.Info(ctx, "using treap store")
		return repository.NewTreapStore(ctx), nil
	}
}
