// Package temporal resolves an event's start, end and timezone from the
// machine-readable date tags embedded in post text.
//
// Resolution order, first match wins:
//
//	[date-range from=<start> to=<end> timezone="<tz>"]
//	[date=<YYYY-MM-DD> time=<HH|HHMM|HHMMSS> timezone="<tz>"]
//	the post's creation time
//
// A value that fails to parse is treated as absent and the next fallback
// applies. Parse failures never surface as errors; only a window with no
// derivable start at all does (ErrNoStart).
package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // tag timezones must resolve on hosts without zoneinfo

	"github.com/okian/eventdex/internal/domain/model"
)

var (
	rangeTagRe = regexp.MustCompile(`\[date-range\s+([^\]]*)\]`)
	dateTagRe  = regexp.MustCompile(`\[(date=[^\]]*)\]`)
	attrRe     = regexp.MustCompile(`([A-Za-z_]+)=(?:"([^"]*)"|'([^']*)'|(\S+))`)
)

// dateTimeLayouts are tried in order for from=/to= values without an offset.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Resolver turns post text into a TemporalWindow.
type Resolver struct {
	defaultZone *time.Location
}

// NewResolver returns a Resolver that falls back to defaultZone. A nil zone
// means UTC.
func NewResolver(defaultZone *time.Location) *Resolver {
	if defaultZone == nil {
		defaultZone = time.UTC
	}
	return &Resolver{defaultZone: defaultZone}
}

// DefaultZone returns the zone applied when text names none.
func (r *Resolver) DefaultZone() *time.Location {
	return r.defaultZone
}

// Resolve computes the event window for text, using createdAt as the last
// fallback. It returns ErrNoStart only when no tag parses and createdAt is zero.
func (r *Resolver) Resolve(text string, createdAt time.Time) (model.TemporalWindow, error) {
	if attrs, ok := findTag(rangeTagRe, text); ok {
		return r.fromRange(attrs, createdAt)
	}
	if attrs, ok := findTag(dateTagRe, text); ok {
		if w, ok := r.fromDate(attrs); ok {
			return w, nil
		}
	}
	return r.fromCreated(createdAt, r.defaultZone.String())
}

func (r *Resolver) fromRange(attrs map[string]string, createdAt time.Time) (model.TemporalWindow, error) {
	loc := r.zone(attrs["timezone"])

	start, ok := parseDateTime(attrs["from"], loc)
	if !ok {
		return r.fromCreated(createdAt, loc.String())
	}

	end, ok := parseDateTime(attrs["to"], loc)
	if !ok {
		end = start.Add(model.DefaultEventDuration)
	}
	return window(start, end, loc.String()), nil
}

func (r *Resolver) fromDate(attrs map[string]string) (model.TemporalWindow, bool) {
	loc := r.zone(attrs["timezone"])

	day, err := time.ParseInLocation("2006-01-02", attrs["date"], loc)
	if err != nil {
		return model.TemporalWindow{}, false
	}
	h, m, s := clock(attrs["time"])
	start := time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, loc)
	return window(start, start.Add(model.DefaultEventDuration), loc.String()), true
}

func (r *Resolver) fromCreated(createdAt time.Time, tz string) (model.TemporalWindow, error) {
	if createdAt.IsZero() {
		return model.TemporalWindow{}, ErrNoStart
	}
	start := createdAt.In(r.defaultZone)
	return window(start, start.Add(model.DefaultEventDuration), tz), nil
}

// zone resolves a tag timezone, falling back to the default for empty or
// unknown names.
func (r *Resolver) zone(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return r.defaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return r.defaultZone
	}
	return loc
}

func window(start, end time.Time, tz string) model.TemporalWindow {
	if end.Before(start) {
		end = start.Add(model.DefaultEventDuration)
	}
	return model.TemporalWindow{Start: start, End: end, Timezone: tz}
}

func findTag(re *regexp.Regexp, text string) (map[string]string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	attrs := make(map[string]string)
	for _, a := range attrRe.FindAllStringSubmatch(m[1], -1) {
		key := strings.ToLower(a[1])
		if _, seen := attrs[key]; seen {
			continue
		}
		attrs[key] = a[2] + a[3] + a[4]
	}
	return attrs, true
}

func parseDateTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), true
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// clock interprets time= digits as HH, HHMM or HHMMSS. Anything else,
// including out-of-range components, is midnight.
func clock(s string) (hour, minute, second int) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ":", "")
	if len(s) != 2 && len(s) != 4 && len(s) != 6 {
		return 0, 0, 0
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, 0, 0
		}
	}
	parts := make([]int, 3)
	for i := 0; i*2 < len(s); i++ {
		n, err := strconv.Atoi(s[i*2 : i*2+2])
		if err != nil {
			return 0, 0, 0
		}
		parts[i] = n
	}
	if parts[0] > 23 || parts[1] > 59 || parts[2] > 59 {
		return 0, 0, 0
	}
	return parts[0], parts[1], parts[2]
}
