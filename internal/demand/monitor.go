package demand

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the monitor variant.
type Kind string

const (
	KindFix           Kind = "fix"
	KindSegment       Kind = "segment"
	KindAirway        Kind = "airway"
	KindAirwaySegment Kind = "airway_segment"
	KindViaFix        Kind = "via_fix"
)

// ViaType says whether a via_fix token is a fix (or procedure) or an airway.
type ViaType string

const (
	ViaFix    ViaType = "fix"
	ViaAirway ViaType = "airway"
)

// LocationKind is the facility a via_fix monitor is scoped to.
type LocationKind string

const (
	LocationAirport LocationKind = "airport"
	LocationTracon  LocationKind = "tracon"
	LocationARTCC   LocationKind = "artcc"
)

// Direction restricts a location filter to arrivals, departures or both.
type Direction string

const (
	DirectionArrival   Direction = "arrival"
	DirectionDeparture Direction = "departure"
	DirectionBoth      Direction = "both"
)

// MonitorSpec is the loosely typed wire form of a monitor.
type MonitorSpec struct {
	Type         string        `json:"type"`
	Fix          string        `json:"fix,omitempty"`
	From         string        `json:"from,omitempty"`
	To           string        `json:"to,omitempty"`
	Airway       string        `json:"airway,omitempty"`
	Via          string        `json:"via,omitempty"`
	ViaType      string        `json:"via_type,omitempty"`
	Filter       *LocationSpec `json:"filter,omitempty"`
	FlightFilter *FlightFilter `json:"flight_filter,omitempty"`
}

// LocationSpec is the wire form of a via_fix facility filter.
type LocationSpec struct {
	Type      string `json:"type"`
	Code      string `json:"code"`
	Direction string `json:"direction,omitempty"`
}

// Location is a normalized facility filter.
type Location struct {
	Kind      LocationKind
	Code      string
	Direction Direction
}

// Monitor is a validated, normalized monitor definition. Which fields are
// populated depends on Kind.
type Monitor struct {
	Kind     Kind
	Fix      string
	From     string
	To       string
	Airway   string
	Via      string
	ViaType  ViaType
	Location *Location
	Filter   *FlightFilter
}

var identPattern = regexp.MustCompile(`^[A-Z0-9]{2,12}$`)

// ParseMonitor normalizes spec and checks that every field its kind
// requires is present. The returned error is a plain reason string; the
// batch layer attaches the index.
func ParseMonitor(spec MonitorSpec) (*Monitor, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(spec.Type)))
	m := &Monitor{Kind: kind}

	var err error
	switch kind {
	case KindFix:
		m.Fix, err = ident("fix", spec.Fix)
	case KindSegment:
		if m.From, err = ident("from", spec.From); err == nil {
			m.To, err = ident("to", spec.To)
		}
	case KindAirway:
		m.Airway, err = ident("airway", spec.Airway)
	case KindAirwaySegment:
		if m.Airway, err = ident("airway", spec.Airway); err == nil {
			if m.From, err = ident("from", spec.From); err == nil {
				m.To, err = ident("to", spec.To)
			}
		}
	case KindViaFix:
		if m.Via, err = ident("via", spec.Via); err == nil {
			if m.ViaType, err = parseViaType(spec.ViaType); err == nil {
				m.Location, err = parseLocation(spec.Filter)
			}
		}
	case "":
		return nil, fmt.Errorf("missing 'type' field")
	default:
		return nil, fmt.Errorf("unknown monitor type %q", spec.Type)
	}
	if err != nil {
		return nil, err
	}

	if m.Filter, err = spec.FlightFilter.normalize(); err != nil {
		return nil, fmt.Errorf("flight_filter: %w", err)
	}
	return m, nil
}

func ident(field, value string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" {
		return "", fmt.Errorf("missing '%s' field", field)
	}
	if !identPattern.MatchString(v) {
		return "", fmt.Errorf("'%s' must be 2-12 letters or digits, got %q", field, value)
	}
	return v, nil
}

func parseViaType(v string) (ViaType, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "fix":
		return ViaFix, nil
	case "airway":
		return ViaAirway, nil
	}
	return "", fmt.Errorf("via_type must be 'fix' or 'airway', got %q", v)
}

func parseLocation(spec *LocationSpec) (*Location, error) {
	if spec == nil {
		return nil, fmt.Errorf("missing 'filter' field")
	}
	loc := &Location{}
	switch strings.ToLower(strings.TrimSpace(spec.Type)) {
	case "airport":
		loc.Kind = LocationAirport
	case "tracon":
		loc.Kind = LocationTracon
	case "artcc":
		loc.Kind = LocationARTCC
	case "":
		return nil, fmt.Errorf("missing 'filter.type' field")
	default:
		return nil, fmt.Errorf("filter.type must be airport, tracon or artcc, got %q", spec.Type)
	}

	code, err := ident("filter.code", spec.Code)
	if err != nil {
		return nil, err
	}
	loc.Code = code

	switch strings.ToLower(strings.TrimSpace(spec.Direction)) {
	case "", "both":
		loc.Direction = DirectionBoth
	case "arr", "arrival", "arrivals":
		loc.Direction = DirectionArrival
	case "dep", "departure", "departures":
		loc.Direction = DirectionDeparture
	default:
		return nil, fmt.Errorf("filter.direction must be arrival, departure or both, got %q", spec.Direction)
	}
	return loc, nil
}

// Key is the monitor's deterministic identity, e.g. fix_MERIT or
// via_airport_KBOS_arrival_MERIT. A flight filter appends "~" and its
// canonical form.
func (m *Monitor) Key() string {
	var key string
	switch m.Kind {
	case KindFix:
		key = "fix_" + m.Fix
	case KindSegment:
		key = "segment_" + m.From + "_" + m.To
	case KindAirway:
		key = "airway_" + m.Airway
	case KindAirwaySegment:
		key = "airway_" + m.Airway + "_" + m.From + "_" + m.To
	case KindViaFix:
		via := m.Via
		if m.ViaType == ViaAirway {
			via = "airway_" + m.Via
		}
		key = "via_" + string(m.Location.Kind) + "_" + m.Location.Code + "_" + string(m.Location.Direction) + "_" + via
	}
	if f := m.Filter.canonical(); f != "" {
		key += "~" + f
	}
	return key
}

// Spec renders the normalized monitor back to its wire form.
func (m *Monitor) Spec() MonitorSpec {
	spec := MonitorSpec{
		Type:         string(m.Kind),
		Fix:          m.Fix,
		From:         m.From,
		To:           m.To,
		Airway:       m.Airway,
		Via:          m.Via,
		FlightFilter: m.Filter,
	}
	if m.Kind == KindViaFix {
		spec.ViaType = string(m.ViaType)
		spec.Filter = &LocationSpec{
			Type:      string(m.Location.Kind),
			Code:      m.Location.Code,
			Direction: string(m.Location.Direction),
		}
	}
	return spec
}

// Label is a short human-readable name for the monitor.
func (m *Monitor) Label() string {
	switch m.Kind {
	case KindFix:
		return m.Fix
	case KindSegment:
		return m.From + "-" + m.To
	case KindAirway:
		return m.Airway
	case KindAirwaySegment:
		return m.From + " " + m.Airway + " " + m.To
	case KindViaFix:
		return m.Via + " (" + m.Location.Code + ")"
	}
	return ""
}

// IsPoint reports whether the monitor plots as a single coordinate.
func (m *Monitor) IsPoint() bool {
	return m.Kind == KindFix || (m.Kind == KindViaFix && m.ViaType == ViaFix)
}

// Predicate is the monitor's flight-level criteria: the via_fix location
// filter AND-ed with any flight filter.
func (m *Monitor) Predicate() Predicate {
	return And(m.Location.predicate(), m.Filter.Predicate())
}

func (l *Location) predicate() Predicate {
	if l == nil {
		return True()
	}
	var dep, arr Field
	switch l.Kind {
	case LocationAirport:
		dep, arr = FieldDeparture, FieldDestination
	case LocationTracon:
		dep, arr = FieldDepartureTracon, FieldDestinationTracon
	case LocationARTCC:
		dep, arr = FieldDepartureARTCC, FieldDestinationARTCC
	}
	switch l.Direction {
	case DirectionArrival:
		return Eq(arr, l.Code)
	case DirectionDeparture:
		return Eq(dep, l.Code)
	}
	return Or(Eq(arr, l.Code), Eq(dep, l.Code))
}

// ParseMonitors validates every spec before returning; the first problem
// rejects the whole list.
func ParseMonitors(specs []MonitorSpec, max int) ([]*Monitor, error) {
	if len(specs) == 0 {
		return nil, &ValidationError{Index: -1, Reason: "missing required parameter: monitors"}
	}
	if max > 0 && len(specs) > max {
		return nil, &ValidationError{Index: -1, Reason: fmt.Sprintf("too many monitors; maximum is %d", max)}
	}
	monitors := make([]*Monitor, len(specs))
	for i, spec := range specs {
		m, err := ParseMonitor(spec)
		if err != nil {
			return nil, &ValidationError{Index: i, Reason: err.Error()}
		}
		monitors[i] = m
	}
	return monitors, nil
}
