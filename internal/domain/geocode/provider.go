package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/eventdex/internal/domain/model"
)

// Provider resolves a free-text location to at most one coordinate.
// Implementations return ErrNoResult for an empty match and wrapped
// ErrUpstream / ErrMalformed for everything else that went wrong.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*model.Coordinate, error)
}

const maxResponseBytes = 1 << 20

// ProviderOption configures an HTTP-backed provider.
type ProviderOption func(*httpProvider)

// WithBaseURL points the provider at a different endpoint.
func WithBaseURL(u string) ProviderOption {
	return func(p *httpProvider) {
		if u != "" {
			p.baseURL = u
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *httpProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header sent upstream.
func WithUserAgent(ua string) ProviderOption {
	return func(p *httpProvider) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

type httpProvider struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func newHTTPProvider(baseURL string, opts []ProviderOption) httpProvider {
	p := httpProvider{
		baseURL:   baseURL,
		userAgent: "eventdex/1.0",
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// getJSON issues a GET with params and decodes the body into out.
func (p httpProvider) getJSON(ctx context.Context, params url.Values, out any) error {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return fmt.Errorf("%w: base url: %v", ErrUpstream, err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
