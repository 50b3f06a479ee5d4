package demand

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Wake categories accepted by the aircraft_category filter.
const (
	CategoryHeavy = "HEAVY"
	CategoryLarge = "LARGE"
	CategorySmall = "SMALL"
)

// heavyTypes and largeTypes partition the known ICAO type designators.
// SMALL is everything else, including designators missing from both lists.
var heavyTypes = []string{
	"A124", "A225", "A306", "A30B", "A310", "A332", "A333", "A337", "A338", "A339",
	"A342", "A343", "A345", "A346", "A359", "A35K", "A388", "A3ST", "A400",
	"B742", "B743", "B744", "B748", "B74S", "B762", "B763", "B764",
	"B772", "B773", "B778", "B779", "B77L", "B77W", "B788", "B789", "B78X",
	"C17", "C5M", "DC10", "IL76", "IL96", "K35R", "KC10", "MD11",
}

var largeTypes = []string{
	"A318", "A319", "A320", "A321", "A19N", "A20N", "A21N",
	"B712", "B722", "B732", "B733", "B734", "B735", "B736", "B737", "B738", "B739",
	"B37M", "B38M", "B39M", "B3XM", "B752", "B753", "BCS1", "BCS3",
	"CRJ2", "CRJ7", "CRJ9", "CRJX", "E170", "E175", "E190", "E195", "E75L", "E75S",
	"E290", "E295", "MD82", "MD83", "MD87", "MD88", "MD90", "F100", "DC93",
	"AT72", "AT76", "DH8D", "CL60", "GLF4", "GLF5", "GLF6", "GLEX", "C130",
}

// CategoryOf returns the wake category a type designator falls into under
// the same partition the aircraft_category filter uses.
func CategoryOf(aircraftType string) string {
	t := strings.ToUpper(strings.TrimSpace(aircraftType))
	for _, h := range heavyTypes {
		if h == t {
			return CategoryHeavy
		}
	}
	for _, l := range largeTypes {
		if l == t {
			return CategoryLarge
		}
	}
	return CategorySmall
}

// StringList decodes from either a JSON string or an array of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			*s = nil
			return nil
		}
		*s = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*s = many
	return nil
}

// FlightFilter narrows a monitor to a subset of flights. Unrecognized keys
// in the JSON form are ignored.
type FlightFilter struct {
	Airline          StringList `json:"airline,omitempty"`
	AircraftType     StringList `json:"aircraft_type,omitempty"`
	AircraftCategory StringList `json:"aircraft_category,omitempty"`
	Origin           StringList `json:"origin,omitempty"`
	Destination      StringList `json:"destination,omitempty"`
}

// filterValuePattern admits airline prefixes, type designators and airport
// codes. Separators never pass, which keeps canonical injective.
var filterValuePattern = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)

// normalize upper-cases, trims, sorts and de-duplicates every value list
// and checks each value. It returns nil when the filter is empty.
func (f *FlightFilter) normalize() (*FlightFilter, error) {
	if f == nil {
		return nil, nil
	}
	out := &FlightFilter{
		Airline:          canonicalList(f.Airline),
		AircraftType:     canonicalList(f.AircraftType),
		AircraftCategory: canonicalList(f.AircraftCategory),
		Origin:           canonicalList(f.Origin),
		Destination:      canonicalList(f.Destination),
	}
	for _, field := range []struct {
		name   string
		values StringList
	}{
		{"airline", out.Airline},
		{"aircraft_type", out.AircraftType},
		{"origin", out.Origin},
		{"destination", out.Destination},
	} {
		for _, v := range field.values {
			if !filterValuePattern.MatchString(v) {
				return nil, fmt.Errorf("invalid %s value %q (expected 1-8 letters or digits)", field.name, v)
			}
		}
	}
	for _, c := range out.AircraftCategory {
		switch c {
		case CategoryHeavy, CategoryLarge, CategorySmall:
		default:
			return nil, fmt.Errorf("unknown aircraft_category %q (expected HEAVY, LARGE or SMALL)", c)
		}
	}
	if out.empty() {
		return nil, nil
	}
	return out, nil
}

func (f *FlightFilter) empty() bool {
	return len(f.Airline) == 0 && len(f.AircraftType) == 0 && len(f.AircraftCategory) == 0 &&
		len(f.Origin) == 0 && len(f.Destination) == 0
}

// Predicate compiles the filter. A nil filter yields True.
func (f *FlightFilter) Predicate() Predicate {
	if f == nil {
		return True()
	}
	var terms []Predicate

	if len(f.Airline) > 0 {
		var alts []Predicate
		for _, a := range f.Airline {
			alts = append(alts, Eq(FieldAirline, a), HasPrefix(FieldCallsign, a))
		}
		terms = append(terms, Or(alts...))
	}
	if len(f.AircraftType) > 0 {
		terms = append(terms, In(FieldAircraftType, f.AircraftType...))
	}
	if len(f.AircraftCategory) > 0 {
		var alts []Predicate
		for _, c := range f.AircraftCategory {
			alts = append(alts, categoryPredicate(c))
		}
		terms = append(terms, Or(alts...))
	}
	if len(f.Origin) > 0 {
		terms = append(terms, In(FieldDeparture, f.Origin...))
	}
	if len(f.Destination) > 0 {
		terms = append(terms, In(FieldDestination, f.Destination...))
	}
	return And(terms...)
}

func categoryPredicate(c string) Predicate {
	switch c {
	case CategoryHeavy:
		return In(FieldAircraftType, heavyTypes...)
	case CategoryLarge:
		return In(FieldAircraftType, largeTypes...)
	default:
		return And(NotIn(FieldAircraftType, heavyTypes...), NotIn(FieldAircraftType, largeTypes...))
	}
}

// canonical renders the filter as a stable string for monitor keys.
func (f *FlightFilter) canonical() string {
	if f == nil {
		return ""
	}
	var parts []string
	add := func(name string, values StringList) {
		if len(values) > 0 {
			parts = append(parts, name+"="+strings.Join(values, ","))
		}
	}
	add("aircraft_category", f.AircraftCategory)
	add("aircraft_type", f.AircraftType)
	add("airline", f.Airline)
	add("destination", f.Destination)
	add("origin", f.Origin)
	return strings.Join(parts, ";")
}

func canonicalList(values StringList) StringList {
	seen := make(map[string]bool, len(values))
	var out StringList
	for _, v := range values {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
