package geocode

import "github.com/okian/eventdex/internal/domain/model"

// BoundingBox is the deployment's region of interest. Coordinates outside it
// are treated as not found.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Enabled reports whether the box filters anything. The zero box does not.
func (b BoundingBox) Enabled() bool {
	return b != BoundingBox{}
}

// Contains reports whether c lies inside the box, edges included. A disabled
// box contains every valid coordinate.
func (b BoundingBox) Contains(c model.Coordinate) bool {
	if !c.Valid() {
		return false
	}
	if !b.Enabled() {
		return true
	}
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}
