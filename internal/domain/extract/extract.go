// Package extract pulls labeled fields and a title out of free-form post text.
//
// Two line syntaxes are recognised, checked in order:
//
//	**Label:** value
//	Label: value
//
// A leading "- " or "* " bullet is stripped first. Labels match
// case-insensitively and the first matching line wins.
package extract

import (
	"strings"
)

// Field keys produced by Extract.
const (
	KeyLocationName = "location_name"
	KeyAddress      = "address"
	KeyCity         = "city"
	KeyState        = "state"
	KeyZip          = "zip"
	KeyCountry      = "country"
	KeyVisibility   = "visibility"
	KeyExternalURL  = "external_url"
	KeyGraphicURL   = "graphic_url"
	KeyTitle        = "title"
)

const eventDetailsHeader = "event details"

// labels maps each key to the labels accepted for it, in priority order.
var labels = []struct {
	key    string
	labels []string
}{
	{KeyLocationName, []string{"Location", "Location Name", "Venue"}},
	{KeyAddress, []string{"Address", "Street Address"}},
	{KeyCity, []string{"City"}},
	{KeyState, []string{"State", "Region"}},
	{KeyZip, []string{"Zip", "ZIP Code", "Zip Code", "Postal Code"}},
	{KeyCountry, []string{"Country"}},
	{KeyVisibility, []string{"Visibility"}},
	{KeyExternalURL, []string{"External URL", "Link", "Website", "URL"}},
	{KeyGraphicURL, []string{"Graphic URL", "Graphic", "Image"}},
}

// Fields is the extractor output. A missing key means the label was not
// present at all; a present key may still hold an empty string.
type Fields map[string]string

// Get returns the value for key and whether the label was present.
func (f Fields) Get(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

// String returns the value for key, or "" when absent.
func (f Fields) String(key string) string {
	return f[key]
}

// Extract applies the fixed label table to text. The title is extracted
// with Title and stored under KeyTitle when found.
func Extract(text string) Fields {
	lines := splitLines(text)
	out := make(Fields, len(labels)+1)
	for _, l := range labels {
		if v, ok := valueIn(lines, l.labels); ok {
			out[l.key] = v
		}
	}
	if t, ok := titleIn(lines); ok {
		out[KeyTitle] = t
	}
	return out
}

// Value returns the value of the first line carrying any of the given labels.
func Value(text string, labels ...string) (string, bool) {
	return valueIn(splitLines(text), labels)
}

// Title returns the first non-blank line that is neither a date tag nor the
// "Event Details" section header.
func Title(text string) (string, bool) {
	return titleIn(splitLines(text))
}

func valueIn(lines []string, labels []string) (string, bool) {
	for _, line := range lines {
		line = stripBullet(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		for _, label := range labels {
			if v, ok := matchBold(line, label); ok {
				return v, true
			}
			if v, ok := matchPlain(line, label); ok {
				return v, true
			}
		}
	}
	return "", false
}

func titleIn(lines []string) (string, bool) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isDateTag(line) || isEventDetailsHeader(line) {
			continue
		}
		return line, true
	}
	return "", false
}

// matchBold accepts "**Label:** value" and "**Label**: value".
func matchBold(line, label string) (string, bool) {
	for _, prefix := range []string{"**" + label + ":**", "**" + label + "**:"} {
		if hasPrefixFold(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}
	return "", false
}

func matchPlain(line, label string) (string, bool) {
	prefix := label + ":"
	if hasPrefixFold(line, prefix) {
		return strings.TrimSpace(line[len(prefix):]), true
	}
	return "", false
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func stripBullet(line string) string {
	for _, b := range []string{"- ", "* "} {
		if strings.HasPrefix(line, b) {
			return strings.TrimSpace(line[len(b):])
		}
	}
	return line
}

func isDateTag(line string) bool {
	return strings.HasPrefix(line, "[date")
}

func isEventDetailsHeader(line string) bool {
	h := strings.TrimLeft(line, "#")
	h = strings.Trim(strings.TrimSpace(h), "*_")
	h = strings.TrimSuffix(strings.TrimSpace(h), ":")
	return strings.EqualFold(strings.TrimSpace(h), eventDetailsHeader)
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
