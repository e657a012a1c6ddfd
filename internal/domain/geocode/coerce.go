package geocode

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/okian/eventdex/internal/domain/model"
)

// Coerce converts a provider's raw coordinate component into a float.
// Zero, blank, unparseable and non-finite values are absent: providers use
// 0 as a "no match" sentinel and it must never be stored as a real point.
func Coerce(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Point builds a coordinate from raw components. Both must coerce and the
// result must be inside WGS84 ranges, otherwise nil.
func Point(lat, lng any) *model.Coordinate {
	la, ok := Coerce(lat)
	if !ok {
		return nil
	}
	ln, ok := Coerce(lng)
	if !ok {
		return nil
	}
	c := model.Coordinate{Lat: la, Lng: ln}
	if !c.Valid() {
		return nil
	}
	return &c
}
