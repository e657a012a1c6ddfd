// Package geocode turns location text into validated coordinates through an
// ordered list of upstream providers, a result cache and a bounding-box filter.
package geocode

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/eventdex/internal/domain/model"
	"github.com/okian/eventdex/pkg/logger"
	"github.com/okian/eventdex/pkg/metrics"
)

// Outcome labels recorded per provider attempt.
const (
	OutcomeFound       = "found"
	OutcomeNotFound    = "not_found"
	OutcomeError       = "error"
	OutcomeOutOfBounds = "out_of_bounds"
)

const (
	defaultTimeout = 4 * time.Second
	defaultTTL     = 7 * 24 * time.Hour
)

// Geocoder is the capability the normalizer depends on.
type Geocoder interface {
	Resolve(ctx context.Context, query string) *model.Coordinate
}

// Client resolves queries through providers in priority order.
type Client struct {
	providers []Provider
	cache     Cache
	bbox      BoundingBox
	timeout   time.Duration
	ttl       time.Duration
	clock     func() time.Time
	log       logger.Logger

	// flight collapses concurrent lookups of the same uncached query.
	flight singleflight.Group
}

// walkResult is the shared result of one provider walk. complete is false
// when the walk was cut short by its caller's context.
type walkResult struct {
	coord    *model.Coordinate
	complete bool
}

// NewClient builds a client over providers, tried in the given order.
func NewClient(providers []Provider, opts ...Option) *Client {
	c := &Client{
		providers: providers,
		timeout:   defaultTimeout,
		ttl:       defaultTTL,
		clock:     time.Now,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the coordinate for query, or nil when no provider produced
// an in-bounds match. It never fails: errors and timeouts are not-found.
func (c *Client) Resolve(ctx context.Context, query string) *model.Coordinate {
	norm := NormalizeQuery(query)
	if norm == "" {
		return nil
	}
	query = strings.TrimSpace(query)
	key := CacheKey(norm)

	if c.cache != nil {
		if e, ok := c.cache.Get(ctx, key); ok {
			metrics.RecordGeocodeCacheHit()
			return clone(e.Coordinate)
		}
		metrics.RecordGeocodeCacheMiss()
	}

	v, _, shared := c.flight.Do(key, func() (any, error) {
		return c.lookup(ctx, key, norm, query), nil
	})
	res := v.(walkResult)
	if shared && !res.complete && ctx.Err() == nil {
		// The leading caller gave up; this one still wants an answer.
		res = c.lookup(ctx, key, norm, query)
	}
	return clone(res.coord)
}

// lookup walks the providers and caches the outcome.
func (c *Client) lookup(ctx context.Context, key, norm, query string) walkResult {
	// A previous flight may have filled the cache since the caller's miss.
	if c.cache != nil {
		if e, ok := c.cache.Get(ctx, key); ok {
			return walkResult{coord: e.Coordinate, complete: true}
		}
	}

	var found *model.Coordinate
	for _, p := range c.providers {
		if found = c.attempt(ctx, p, query); found != nil {
			break
		}
	}

	// A cancelled caller says nothing about the query; do not poison the cache.
	if ctx.Err() != nil {
		return walkResult{coord: found}
	}
	if c.cache != nil {
		c.cache.Set(ctx, key, CacheEntry{
			Query:      norm,
			Coordinate: clone(found),
			ExpiresAt:  c.clock().Add(c.ttl),
		})
		metrics.UpdateGeocodeCacheEntries(c.cache.Len())
	}
	return walkResult{coord: found, complete: true}
}

func (c *Client) attempt(ctx context.Context, p Provider, query string) *model.Coordinate {
	if ctx.Err() != nil {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	coord, err := p.Geocode(pctx, query)
	metrics.RecordGeocodeLatency(p.Name(), float64(time.Since(start).Milliseconds()))

	switch {
	case errors.Is(err, ErrNoResult), err == nil && coord == nil:
		metrics.RecordGeocodeRequest(p.Name(), OutcomeNotFound)
		return nil
	case err != nil:
		metrics.RecordGeocodeRequest(p.Name(), OutcomeError)
		c.log.Warn(ctx, "geocode provider failed",
			logger.String("provider", p.Name()),
			logger.String("query", query),
			logger.Error(err))
		return nil
	case !c.bbox.Contains(*coord):
		metrics.RecordGeocodeRequest(p.Name(), OutcomeOutOfBounds)
		c.log.Debug(ctx, "geocode result outside bounding box",
			logger.String("provider", p.Name()),
			logger.String("query", query),
			logger.Float64("lat", coord.Lat),
			logger.Float64("lng", coord.Lng))
		return nil
	}
	metrics.RecordGeocodeRequest(p.Name(), OutcomeFound)
	return coord
}

func clone(c *model.Coordinate) *model.Coordinate {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
