package geocode

import (
	"time"

	"github.com/okian/eventdex/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithCache enables result caching. Without it every call goes upstream.
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithBoundingBox sets the plausibility filter.
func WithBoundingBox(b BoundingBox) Option {
	return func(c *Client) {
		c.bbox = b
	}
}

// WithTimeout bounds each provider attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTTL sets how long outcomes stay cached.
func WithTTL(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock overrides time.Now for cache expiry stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.clock = now
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
