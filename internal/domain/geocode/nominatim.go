package geocode

import (
	"context"
	"net/url"

	"github.com/okian/eventdex/internal/domain/model"
)

// DefaultNominatimURL is the public OpenStreetMap search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// NominatimProvider is the free fallback. The public instance rejects
// requests without an identifying User-Agent.
type NominatimProvider struct {
	httpProvider
}

// NewNominatimProvider returns an OSM Nominatim provider.
func NewNominatimProvider(opts ...ProviderOption) *NominatimProvider {
	return &NominatimProvider{httpProvider: newHTTPProvider(DefaultNominatimURL, opts)}
}

func (n *NominatimProvider) Name() string { return "nominatim" }

type nominatimPlace struct {
	Lat any `json:"lat"`
	Lon any `json:"lon"`
}

// Geocode implements Provider.
func (n *NominatimProvider) Geocode(ctx context.Context, query string) (*model.Coordinate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")

	var places []nominatimPlace
	if err := n.getJSON(ctx, params, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, ErrNoResult
	}
	c := Point(places[0].Lat, places[0].Lon)
	if c == nil {
		return nil, ErrNoResult
	}
	return c, nil
}
