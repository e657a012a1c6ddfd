package normalize

import "strings"

// Place is the location part of an event after region defaults are applied.
type Place struct {
	LocationName string
	Address      string
	City         string
	State        string
	Zip          string
	Country      string
}

// HasPhysicalLocation reports whether a place is concrete enough to geocode:
// a street address, or both a city and a state.
func HasPhysicalLocation(address, city, state string) bool {
	address, city, state = strings.TrimSpace(address), strings.TrimSpace(city), strings.TrimSpace(state)
	return address != "" || (city != "" && state != "")
}

// GeocodeQuery builds the provider query: the address (or the location name
// when there is none), then city, state, zip and country. Parts already
// present as a comma-separated token are not repeated.
func GeocodeQuery(p Place) string {
	head := strings.TrimSpace(p.Address)
	if head == "" {
		head = strings.TrimSpace(p.LocationName)
	}

	var parts []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[strings.ToLower(s)]; ok {
			return
		}
		for _, tok := range strings.Split(s, ",") {
			seen[strings.ToLower(strings.TrimSpace(tok))] = struct{}{}
		}
		parts = append(parts, s)
	}

	add(head)
	add(p.City)
	add(p.State)
	add(p.Zip)
	add(p.Country)
	return strings.Join(parts, ", ")
}
