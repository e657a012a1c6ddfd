// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// VisibilityPublic is the only visibility value admitted to the index.
const VisibilityPublic = "public"

// DefaultEventDuration is applied when an event names no end time.
const DefaultEventDuration = time.Hour

// Coordinate is a WGS84 point. Optional coordinates are carried as
// *Coordinate so a record never holds half a pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both components are finite and inside WGS84 ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// TemporalWindow is the resolved time span of an event.
type TemporalWindow struct {
	Start    time.Time
	End      time.Time
	Timezone string
}

// EventRecord is the denormalized index row for one source post.
type EventRecord struct {
	PostID       int64       `json:"post_id"`
	TopicID      int64       `json:"topic_id"`
	CategoryID   int64       `json:"category_id"`
	Visibility   string      `json:"visibility"`
	Title        string      `json:"title"`
	StartsAt     time.Time   `json:"starts_at"`
	EndsAt       time.Time   `json:"ends_at"`
	Timezone     string      `json:"timezone"`
	LocationName string      `json:"location_name"`
	Address      string      `json:"address"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	Zip          string      `json:"zip"`
	Country      string      `json:"country"`
	Coordinate   *Coordinate `json:"coordinate,omitempty"`
	ExternalURL  string      `json:"external_url"`
	GraphicURL   string      `json:"graphic_url"`
	IndexedAt    time.Time   `json:"indexed_at"`
}
