package normalize

import (
	"time"

	"github.com/okian/eventdex/pkg/logger"
)

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the normalizer logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.log = l
		}
	}
}

// WithClock overrides time.Now for IndexedAt.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.clock = now
		}
	}
}
