// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and environment variables.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
	_ "time/tzdata" // default_timezone must resolve on hosts without zoneinfo

	"github.com/robfig/cron/v3"
)

// Store backends.
const (
	BackendMemory  = "memory"
	BackendSurreal = "surreal"
)

// Startup backfill modes.
const (
	BackfillAuto   = "auto" // only when the index is empty
	BackfillAlways = "always"
	BackfillNever  = "never"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFile, when set, receives JSON log lines in addition to stdout.
	LogFile string `koanf:"log_file"`
	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// DefaultTimezone is the IANA zone used when event text names none.
	DefaultTimezone string `koanf:"default_timezone"`

	Region  Region  `koanf:"region"`
	Geocode Geocode `koanf:"geocode"`

	// EventQueueSize bounds the in-memory change notification queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of reindex workers consuming the queue.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the pending-change coalescing set.
	DedupeSize int `koanf:"dedupe_size"`
	// ReindexConcurrency bounds parallel documents in a bulk reindex.
	ReindexConcurrency int `koanf:"reindex_concurrency"`
	// ReindexLimit caps the candidate set of a bulk reindex.
	ReindexLimit int `koanf:"reindex_limit"`
	// ReindexSchedule is an optional cron expression for periodic bulk reindex.
	ReindexSchedule string `koanf:"reindex_schedule"`
	// MaxEventsLimit caps GET /events?limit.
	MaxEventsLimit int `koanf:"max_events_limit"`
	// Backfill controls the bulk reindex run when the server starts.
	Backfill string `koanf:"backfill"`

	// SourceDir is the directory of YAML post documents read by the file source.
	SourceDir string `koanf:"source_dir"`
	// WatchSource turns file changes in SourceDir into change notifications.
	WatchSource bool `koanf:"watch_source"`

	// StoreBackend selects the event index implementation: memory or surreal.
	StoreBackend string  `koanf:"store_backend"`
	Surreal      Surreal `koanf:"surreal"`
}

// Region holds deployment defaults applied to events that omit them.
type Region struct {
	DefaultState   string `koanf:"default_state"`
	DefaultCountry string `koanf:"default_country"`
}

// Geocode configures upstream providers, caching and the plausibility box.
type Geocode struct {
	GoogleAPIKey     string `koanf:"google_api_key"`
	GoogleBaseURL    string `koanf:"google_base_url"`
	NominatimBaseURL string `koanf:"nominatim_base_url"`
	// NominatimEnabled toggles the free fallback provider.
	NominatimEnabled bool   `koanf:"nominatim_enabled"`
	UserAgent        string `koanf:"user_agent"`
	TimeoutMS        int    `koanf:"timeout_ms"`
	CacheTTLHours    int    `koanf:"cache_ttl_hours"`
	CacheSize        int    `koanf:"cache_size"`
	BBox             BBox   `koanf:"bbox"`
}

// BBox is the region of interest; an all-zero box disables filtering.
type BBox struct {
	MinLat float64 `koanf:"min_lat"`
	MaxLat float64 `koanf:"max_lat"`
	MinLng float64 `koanf:"min_lng"`
	MaxLng float64 `koanf:"max_lng"`
}

// Surreal holds SurrealDB connection settings for the durable store backend.
type Surreal struct {
	URL       string `koanf:"url"`
	Namespace string `koanf:"namespace"`
	Database  string `koanf:"database"`
	Username  string `koanf:"username"`
	Password  string `koanf:"password"`
	AuthLevel string `koanf:"auth_level"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		DefaultTimezone: "America/Chicago",
		Region: Region{
			DefaultState:   "TX",
			DefaultCountry: "USA",
		},
		Geocode: Geocode{
			GoogleBaseURL:    "https://maps.googleapis.com/maps/api/geocode/json",
			NominatimBaseURL: "https://nominatim.openstreetmap.org/search",
			NominatimEnabled: true,
			UserAgent:        "eventdex/1.0",
			TimeoutMS:        4000,
			CacheTTLHours:    7 * 24,
			CacheSize:        10_000,
			// Texas
			BBox: BBox{MinLat: 25.8, MaxLat: 36.6, MinLng: -106.7, MaxLng: -93.5},
		},
		EventQueueSize:     10_000,
		WorkerCount:        runtime.NumCPU() * 2,
		DedupeSize:         50_000,
		ReindexConcurrency: 4,
		ReindexLimit:       5_000,
		MaxEventsLimit:     500,
		Backfill:           BackfillAuto,
		SourceDir:          "./data/posts",
		WatchSource:        true,
		StoreBackend:       BackendMemory,
		Surreal: Surreal{
			URL:       "ws://localhost:8000",
			Namespace: "eventdex",
			Database:  "eventdex",
			Username:  "root",
			Password:  "root",
			AuthLevel: "root",
		},
	}
}

// Location resolves DefaultTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("%w: default_timezone %q: %v", ErrInvalidConfig, c.DefaultTimezone, err)
	}
	return loc, nil
}

// GeocodeTimeout returns the per-request upstream timeout.
func (c *Config) GeocodeTimeout() time.Duration {
	return time.Duration(c.Geocode.TimeoutMS) * time.Millisecond
}

// GeocodeCacheTTL returns how long geocode outcomes are cached.
func (c *Config) GeocodeCacheTTL() time.Duration {
	return time.Duration(c.Geocode.CacheTTLHours) * time.Hour
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.StoreBackend {
	case BackendMemory, BackendSurreal:
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	switch c.Backfill {
	case BackfillAuto, BackfillAlways, BackfillNever:
	default:
		return fmt.Errorf("%w: unknown backfill mode %q", ErrInvalidConfig, c.Backfill)
	}
	if err := c.Geocode.BBox.validate(); err != nil {
		return err
	}
	if c.ReindexSchedule != "" {
		if _, err := cron.ParseStandard(c.ReindexSchedule); err != nil {
			return fmt.Errorf("%w: reindex_schedule: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (b BBox) validate() error {
	if b == (BBox{}) {
		return nil
	}
	switch {
	case b.MinLat >= b.MaxLat || b.MinLng >= b.MaxLng:
		return fmt.Errorf("%w: geocode.bbox min must be below max", ErrInvalidConfig)
	case b.MinLat < -90 || b.MaxLat > 90:
		return fmt.Errorf("%w: geocode.bbox latitude out of range", ErrInvalidConfig)
	case b.MinLng < -180 || b.MaxLng > 180:
		return fmt.Errorf("%w: geocode.bbox longitude out of range", ErrInvalidConfig)
	}
	return nil
}
