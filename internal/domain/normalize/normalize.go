// Package normalize builds one canonical EventRecord from one source document.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/eventdex/internal/domain/extract"
	"github.com/okian/eventdex/internal/domain/geocode"
	"github.com/okian/eventdex/internal/domain/model"
	"github.com/okian/eventdex/internal/domain/temporal"
	"github.com/okian/eventdex/pkg/logger"
)

// Region holds the defaults applied to events that omit them.
type Region struct {
	DefaultState   string
	DefaultCountry string
}

// Normalizer composes extraction, time resolution and geocoding.
type Normalizer struct {
	resolver *temporal.Resolver
	geocoder geocode.Geocoder
	region   Region
	clock    func() time.Time
	log      logger.Logger
}

// New returns a Normalizer. A nil geocoder disables coordinate lookup.
func New(resolver *temporal.Resolver, geocoder geocode.Geocoder, region Region, opts ...Option) *Normalizer {
	if resolver == nil {
		resolver = temporal.NewResolver(nil)
	}
	n := &Normalizer{
		resolver: resolver,
		geocoder: geocoder,
		region:   region,
		clock:    time.Now,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns the record for doc, or an error wrapping ErrRejected when
// doc is not an indexable public event. Rejection checks short-circuit in
// order: deleted, not visible, empty body, not public, no start time.
func (n *Normalizer) Normalize(ctx context.Context, doc model.SourceDocument) (model.EventRecord, error) {
	switch {
	case doc.Deleted || doc.Thread.Deleted:
		return model.EventRecord{}, ErrDeleted
	case !doc.Thread.Visible:
		return model.EventRecord{}, ErrNotVisible
	case strings.TrimSpace(doc.Body) == "":
		return model.EventRecord{}, ErrEmptyBody
	}

	fields := extract.Extract(doc.Body)
	if !strings.EqualFold(strings.TrimSpace(fields.String(extract.KeyVisibility)), model.VisibilityPublic) {
		return model.EventRecord{}, ErrNotPublic
	}

	window, err := n.resolver.Resolve(doc.Body, doc.CreatedAt)
	if err != nil {
		if errors.Is(err, temporal.ErrNoStart) {
			return model.EventRecord{}, fmt.Errorf("%w: post %d", ErrNoStartTime, doc.ID)
		}
		return model.EventRecord{}, fmt.Errorf("resolve window for post %d: %w", doc.ID, err)
	}

	title := fields.String(extract.KeyTitle)
	if title == "" {
		title = strings.TrimSpace(doc.Thread.Title)
	}

	place := Place{
		LocationName: fields.String(extract.KeyLocationName),
		Address:      fields.String(extract.KeyAddress),
		City:         fields.String(extract.KeyCity),
		State:        orDefault(fields.String(extract.KeyState), n.region.DefaultState),
		Zip:          fields.String(extract.KeyZip),
		Country:      orDefault(fields.String(extract.KeyCountry), n.region.DefaultCountry),
	}

	rec := model.EventRecord{
		PostID:       doc.ID,
		TopicID:      doc.Thread.ID,
		CategoryID:   doc.Thread.CategoryID,
		Visibility:   model.VisibilityPublic,
		Title:        title,
		StartsAt:     window.Start,
		EndsAt:       window.End,
		Timezone:     window.Timezone,
		LocationName: place.LocationName,
		Address:      place.Address,
		City:         place.City,
		State:        place.State,
		Zip:          place.Zip,
		Country:      place.Country,
		Coordinate:   n.locate(ctx, doc.ID, place),
		ExternalURL:  fields.String(extract.KeyExternalURL),
		GraphicURL:   fields.String(extract.KeyGraphicURL),
		IndexedAt:    n.clock().UTC(),
	}
	return rec, nil
}

// locate geocodes place only when it names a physical location.
func (n *Normalizer) locate(ctx context.Context, postID int64, p Place) *model.Coordinate {
	if n.geocoder == nil || !HasPhysicalLocation(p.Address, p.City, p.State) {
		return nil
	}
	q := GeocodeQuery(p)
	if q == "" {
		return nil
	}
	c := n.geocoder.Resolve(ctx, q)
	if c == nil {
		n.log.Debug(ctx, "no coordinate for event",
			logger.Int64("post_id", postID),
			logger.String("query", q))
	}
	return c
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return strings.TrimSpace(def)
}
