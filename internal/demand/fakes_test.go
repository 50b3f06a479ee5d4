package demand

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type fakeFix struct {
	seq       int
	fix       string
	airway    string
	procedure string
	eta       time.Time
}

type fakeFlight struct {
	uid         int64
	callsign    string
	airline     string
	phase       string
	dep, dest   string
	depTracon   string
	destTracon  string
	depARTCC    string
	destARTCC   string
	aircraftTyp string
	route       []fakeFix
}

func (f fakeFlight) Attr(field Field) string {
	switch field {
	case FieldCallsign:
		return f.callsign
	case FieldAirline:
		return f.airline
	case FieldAircraftType:
		return f.aircraftTyp
	case FieldDeparture:
		return f.dep
	case FieldDestination:
		return f.dest
	case FieldDepartureTracon:
		return f.depTracon
	case FieldDestinationTracon:
		return f.destTracon
	case FieldDepartureARTCC:
		return f.depARTCC
	case FieldDestinationARTCC:
		return f.destARTCC
	}
	return ""
}

// fakeStore evaluates CrossingQuery against a slice of flights.
type fakeStore struct {
	mu      sync.Mutex
	flights []fakeFlight
	calls   atomic.Int32
	// fail returns a non-nil error to make a query fail.
	fail  func(q CrossingQuery) error
	delay time.Duration
}

func (s *fakeStore) Crossings(ctx context.Context, q CrossingQuery) ([]Crossing, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.fail != nil {
		if err := s.fail(q); err != nil {
			return nil, err
		}
	}

	var base *regexp.Regexp
	if q.ProcedureBase != "" {
		base = regexp.MustCompile(`^` + q.ProcedureBase + `[0-9][A-Z]?$`)
	}
	fixes := make(map[string]bool, len(q.Fixes))
	for _, f := range q.Fixes {
		fixes[f] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Crossing
	for _, fl := range s.flights {
		if isTerminal(fl.phase) {
			continue
		}
		if q.Filter != nil && !q.Filter.Match(fl) {
			continue
		}
		for _, w := range fl.route {
			if len(fixes) > 0 && !fixes[w.fix] {
				continue
			}
			if q.Airway != "" && w.airway != q.Airway {
				continue
			}
			if q.Procedure != "" && w.procedure != q.Procedure {
				continue
			}
			if base != nil && !base.MatchString(w.procedure) {
				continue
			}
			if !q.From.IsZero() && w.eta.Before(q.From) {
				continue
			}
			if !q.Until.IsZero() && !w.eta.Before(q.Until) {
				continue
			}
			out = append(out, Crossing{
				FlightUID:    fl.uid,
				Callsign:     fl.callsign,
				Phase:        fl.phase,
				Departure:    fl.dep,
				Destination:  fl.dest,
				AircraftType: fl.aircraftTyp,
				Sequence:     w.seq,
				Fix:          w.fix,
				Airway:       w.airway,
				Procedure:    w.procedure,
				ETA:          w.eta,
			})
		}
	}
	return out, nil
}

// fakeRef is static reference geometry keyed by name.
type fakeRef struct {
	fixes   map[string]Coordinate
	airways map[string][]Waypoint
	err     error
}

func (r *fakeRef) AirwayPoints(_ context.Context, airway string) ([]Waypoint, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.airways[airway], nil
}

func (r *fakeRef) AirwaysThrough(_ context.Context, from, to string) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	var names []string
	for name, points := range r.airways {
		var hasFrom, hasTo bool
		for _, p := range points {
			hasFrom = hasFrom || p.Name == from
			hasTo = hasTo || p.Name == to
		}
		if hasFrom && hasTo {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *fakeRef) FixPosition(_ context.Context, fix string) (Coordinate, bool, error) {
	if r.err != nil {
		return Coordinate{}, false, r.err
	}
	c, ok := r.fixes[fix]
	return c, ok, nil
}

// fakeLive serves canned traces.
type fakeLive struct {
	routes  map[string][]Waypoint // keyed by from+"/"+to+"/"+airway
	airways map[string][]Waypoint
	fixes   map[string]Coordinate
}

func (l *fakeLive) RouteTrace(_ context.Context, from, to, airway string) ([]Waypoint, error) {
	return l.routes[from+"/"+to+"/"+airway], nil
}

func (l *fakeLive) AirwayTrace(_ context.Context, airway string) ([]Waypoint, error) {
	return l.airways[airway], nil
}

func (l *fakeLive) FixPosition(_ context.Context, fix string) (Coordinate, bool, error) {
	c, ok := l.fixes[fix]
	return c, ok, nil
}

func wp(name string, lat, lon float64) Waypoint {
	return Waypoint{Name: name, Coordinate: Coordinate{Lat: lat, Lon: lon}}
}

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return testNow.Add(time.Duration(minutes) * time.Minute)
}
