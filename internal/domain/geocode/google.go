package geocode

import (
	"context"
	"fmt"
	"net/url"

	"github.com/okian/eventdex/internal/domain/model"
)

// DefaultGoogleURL is the Google Geocoding JSON endpoint.
const DefaultGoogleURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleProvider is the keyed primary provider.
type GoogleProvider struct {
	httpProvider
	apiKey string
}

// NewGoogleProvider returns a provider authenticating with apiKey.
func NewGoogleProvider(apiKey string, opts ...ProviderOption) *GoogleProvider {
	return &GoogleProvider{
		httpProvider: newHTTPProvider(DefaultGoogleURL, opts),
		apiKey:       apiKey,
	}
}

func (g *GoogleProvider) Name() string { return "google" }

type googleResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat any `json:"lat"`
				Lng any `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

// Geocode implements Provider.
func (g *GoogleProvider) Geocode(ctx context.Context, query string) (*model.Coordinate, error) {
	params := url.Values{}
	params.Set("address", query)
	params.Set("key", g.apiKey)

	var resp googleResponse
	if err := g.getJSON(ctx, params, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, ErrNoResult
	default:
		return nil, fmt.Errorf("%w: status %s %s", ErrUpstream, resp.Status, resp.ErrorMessage)
	}
	if len(resp.Results) == 0 {
		return nil, ErrNoResult
	}
	loc := resp.Results[0].Geometry.Location
	c := Point(loc.Lat, loc.Lng)
	if c == nil {
		return nil, ErrNoResult
	}
	return c, nil
}
