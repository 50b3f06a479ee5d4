package flightstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/demandmonitor/internal/demand"
)

// Flight is one tracked flight with its estimated route.
type Flight struct {
	UID               int64      `json:"flight_uid"`
	Callsign          string     `json:"callsign"`
	Airline           string     `json:"airline,omitempty"`
	Phase             string     `json:"phase"`
	Active            *bool      `json:"is_active,omitempty"`
	Departure         string     `json:"departure,omitempty"`
	Destination       string     `json:"destination,omitempty"`
	DepartureTracon   string     `json:"departure_tracon,omitempty"`
	DestinationTracon string     `json:"destination_tracon,omitempty"`
	DepartureARTCC    string     `json:"departure_artcc,omitempty"`
	DestinationARTCC  string     `json:"destination_artcc,omitempty"`
	AircraftType      string     `json:"aircraft_type,omitempty"`
	Waypoints         []Waypoint `json:"waypoints"`
}

// Waypoint is one planned route point. A fixture may give EtaOffsetMinutes
// instead of ETA; it is resolved against the load time.
type Waypoint struct {
	Sequence         int       `json:"sequence"`
	Fix              string    `json:"fix"`
	Airway           string    `json:"airway,omitempty"`
	Procedure        string    `json:"procedure,omitempty"`
	Lat              *float64  `json:"lat,omitempty"`
	Lon              *float64  `json:"lon,omitempty"`
	ETA              time.Time `json:"eta,omitempty"`
	EtaOffsetMinutes *int      `json:"eta_offset_minutes,omitempty"`
}

func (w Waypoint) positioned() bool {
	return w.Lat != nil && w.Lon != nil
}

func (w Waypoint) point() demand.Waypoint {
	return demand.Waypoint{Name: w.Fix, Coordinate: demand.Coordinate{Lat: *w.Lat, Lon: *w.Lon}}
}

// Attr implements demand.Record.
func (f *Flight) Attr(field demand.Field) string {
	switch field {
	case demand.FieldCallsign:
		return f.Callsign
	case demand.FieldAirline:
		return f.Airline
	case demand.FieldAircraftType:
		return f.AircraftType
	case demand.FieldDeparture:
		return f.Departure
	case demand.FieldDestination:
		return f.Destination
	case demand.FieldDepartureTracon:
		return f.DepartureTracon
	case demand.FieldDestinationTracon:
		return f.DestinationTracon
	case demand.FieldDepartureARTCC:
		return f.DepartureARTCC
	case demand.FieldDestinationARTCC:
		return f.DestinationARTCC
	}
	return ""
}

func (f *Flight) active() bool {
	if f.Active != nil && !*f.Active {
		return false
	}
	for _, p := range demand.TerminalPhases {
		if strings.EqualFold(f.Phase, p) {
			return false
		}
	}
	return true
}

// Memory is a concurrency-safe in-process flight store.
type Memory struct {
	mu      sync.RWMutex
	flights map[int64]*Flight
	logger  *zap.SugaredLogger
}

// NewMemory creates an empty store.
func NewMemory(logger *zap.SugaredLogger) *Memory {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Memory{flights: make(map[int64]*Flight), logger: logger}
}

// Upsert stores f, replacing any flight with the same UID. Identifiers are
// upper-cased and waypoints sorted by sequence.
func (m *Memory) Upsert(f Flight) error {
	if f.UID == 0 {
		return fmt.Errorf("flight %q has no flight_uid", f.Callsign)
	}
	f.Callsign = strings.ToUpper(f.Callsign)
	f.Airline = strings.ToUpper(f.Airline)
	f.Departure = strings.ToUpper(f.Departure)
	f.Destination = strings.ToUpper(f.Destination)
	f.DepartureTracon = strings.ToUpper(f.DepartureTracon)
	f.DestinationTracon = strings.ToUpper(f.DestinationTracon)
	f.DepartureARTCC = strings.ToUpper(f.DepartureARTCC)
	f.DestinationARTCC = strings.ToUpper(f.DestinationARTCC)
	f.AircraftType = strings.ToUpper(f.AircraftType)
	f.Phase = strings.ToLower(f.Phase)

	wps := make([]Waypoint, len(f.Waypoints))
	copy(wps, f.Waypoints)
	for i := range wps {
		wps[i].Fix = strings.ToUpper(wps[i].Fix)
		wps[i].Airway = strings.ToUpper(wps[i].Airway)
		wps[i].Procedure = strings.ToUpper(wps[i].Procedure)
	}
	sort.SliceStable(wps, func(i, j int) bool { return wps[i].Sequence < wps[j].Sequence })
	f.Waypoints = wps

	m.mu.Lock()
	defer m.mu.Unlock()
	m.flights[f.UID] = &f
	return nil
}

// Remove drops a flight.
func (m *Memory) Remove(uid int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flights, uid)
}

// Len is the number of stored flights.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.flights)
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

type fixture struct {
	Flights []Flight `json:"flights"`
}

// LoadFixture reads a JSON document of the form {"flights": [...]} and
// upserts every flight. Relative ETAs resolve against now.
func (m *Memory) LoadFixture(path string, now time.Time) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read flight fixture: %w", err)
	}
	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("could not parse flight fixture %s: %w", path, err)
	}
	for _, f := range fx.Flights {
		for i := range f.Waypoints {
			if off := f.Waypoints[i].EtaOffsetMinutes; off != nil && f.Waypoints[i].ETA.IsZero() {
				f.Waypoints[i].ETA = now.Add(time.Duration(*off) * time.Minute)
			}
		}
		if err := m.Upsert(f); err != nil {
			return err
		}
	}
	m.logger.Infow("loaded flight fixture", "path", path, "flights", len(fx.Flights))
	return nil
}

// sorted returns a snapshot ordered by UID. Callers must hold mu.
func (m *Memory) sorted() []*Flight {
	out := make([]*Flight, 0, len(m.flights))
	for _, f := range m.flights {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

// Crossings implements demand.FlightStore.
func (m *Memory) Crossings(ctx context.Context, q demand.CrossingQuery) ([]demand.Crossing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var base *regexp.Regexp
	if q.ProcedureBase != "" {
		base = regexp.MustCompile("^" + regexp.QuoteMeta(q.ProcedureBase) + "[0-9][A-Z]?$")
	}
	fixes := make(map[string]bool, len(q.Fixes))
	for _, f := range q.Fixes {
		fixes[f] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []demand.Crossing
	for _, f := range m.sorted() {
		if !f.active() {
			continue
		}
		if q.Filter != nil && !q.Filter.Match(f) {
			continue
		}
		for _, w := range f.Waypoints {
			switch {
			case w.ETA.IsZero():
				continue
			case len(fixes) > 0 && !fixes[w.Fix]:
				continue
			case q.Airway != "" && w.Airway != q.Airway:
				continue
			case q.Procedure != "" && w.Procedure != q.Procedure:
				continue
			case base != nil && !base.MatchString(w.Procedure):
				continue
			case !q.From.IsZero() && w.ETA.Before(q.From):
				continue
			case !q.Until.IsZero() && !w.ETA.Before(q.Until):
				continue
			}
			out = append(out, demand.Crossing{
				FlightUID:    f.UID,
				Callsign:     f.Callsign,
				Phase:        f.Phase,
				Departure:    f.Departure,
				Destination:  f.Destination,
				AircraftType: f.AircraftType,
				Sequence:     w.Sequence,
				Fix:          w.Fix,
				Airway:       w.Airway,
				Procedure:    w.Procedure,
				ETA:          w.ETA,
			})
		}
	}
	return out, nil
}

// RouteTrace implements demand.LiveTraffic. The highest UID wins, matching
// the most recently created flight.
func (m *Memory) RouteTrace(ctx context.Context, from, to, airway string) ([]demand.Waypoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	flights := m.sorted()
	for i := len(flights) - 1; i >= 0; i-- {
		f := flights[i]
		if !passes(f, from, airway) || !passes(f, to, airway) {
			continue
		}
		var out []demand.Waypoint
		for _, w := range f.Waypoints {
			if w.positioned() {
				out = append(out, w.point())
			}
		}
		return out, nil
	}
	return nil, nil
}

func passes(f *Flight, fix, airway string) bool {
	for _, w := range f.Waypoints {
		if w.Fix == fix && w.positioned() && (airway == "" || w.Airway == airway) {
			return true
		}
	}
	return false
}

// AirwayTrace implements demand.LiveTraffic, preferring the flight with the
// most positioned points on the airway.
func (m *Memory) AirwayTrace(ctx context.Context, airway string) ([]demand.Waypoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best []demand.Waypoint
	for _, f := range m.sorted() {
		var pts []demand.Waypoint
		for _, w := range f.Waypoints {
			if w.Airway == airway && w.positioned() {
				pts = append(pts, w.point())
			}
		}
		if len(pts) >= 2 && len(pts) >= len(best) {
			best = pts
		}
	}
	return best, nil
}

// FixPosition implements demand.LiveTraffic.
func (m *Memory) FixPosition(ctx context.Context, fix string) (demand.Coordinate, bool, error) {
	if err := ctx.Err(); err != nil {
		return demand.Coordinate{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, f := range m.sorted() {
		for _, w := range f.Waypoints {
			if w.Fix == fix && w.positioned() {
				return w.point().Coordinate, true, nil
			}
		}
	}
	return demand.Coordinate{}, false, nil
}
