package demand

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// FlightCandidate is a flight matched by a monitor. ExitTime is only set
// for segment kinds and only when the exit crossing is known.
type FlightCandidate struct {
	FlightUID    int64
	Callsign     string
	Phase        string
	Departure    string
	Destination  string
	AircraftType string
	EntryTime    time.Time
	ExitTime     *time.Time
}

// Series is a monitor's bucketed demand.
type Series struct {
	Counts []int
	Total  int
}

// Position statuses reported in detail views.
const (
	StatusApproaching = "approaching"
	StatusInSegment   = "in_segment"
)

// FlightDetail is a candidate annotated for the detail view.
type FlightDetail struct {
	FlightCandidate
	MinutesUntil   int
	PositionStatus string
}

// Counter turns monitors into per-bucket distinct-flight counts.
type Counter struct {
	store  FlightStore
	ref    ReferenceGeometry
	logger *zap.SugaredLogger
}

// NewCounter creates a counter. ref may be nil; when present it decides
// whether an ambiguous via token is a fix or a procedure base.
func NewCounter(store FlightStore, ref ReferenceGeometry, logger *zap.SugaredLogger) *Counter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Counter{store: store, ref: ref, logger: logger}
}

// Count computes the monitor's series over the schedule. A flight counts
// once, in the bucket holding its entry time; entries outside
// [Now, End) are dropped.
func (c *Counter) Count(ctx context.Context, m *Monitor, s Schedule) (Series, error) {
	series := Series{Counts: make([]int, s.Len())}

	candidates, err := c.Candidates(ctx, m, s.Now, s.End())
	if err != nil {
		return series, err
	}

	seen := make(map[int64]bool, len(candidates))
	for _, cand := range candidates {
		if seen[cand.FlightUID] {
			continue
		}
		idx, ok := s.Index(cand.EntryTime)
		if !ok {
			continue
		}
		seen[cand.FlightUID] = true
		series.Counts[idx]++
		series.Total++
	}
	return series, nil
}

// Candidates returns one candidate per matching flight whose entry time
// lies in [from, until).
func (c *Counter) Candidates(ctx context.Context, m *Monitor, from, until time.Time) ([]FlightCandidate, error) {
	p, err := c.plan(ctx, m, until)
	if err != nil {
		return nil, err
	}

	rows, err := c.store.Crossings(ctx, p.query)
	if err != nil {
		return nil, fmt.Errorf("flight store query for %s failed: %w", m.Key(), err)
	}

	var out []FlightCandidate
	for _, flight := range groupByFlight(rows) {
		cand, ok := p.reduce(flight)
		if !ok {
			continue
		}
		if cand.EntryTime.Before(from) || !cand.EntryTime.Before(until) {
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

// Details lists the flights a monitor captures over the next ahead
// duration. Segment kinds also report flights already between their
// endpoints, looking back at most lookback for the entry crossing.
func (c *Counter) Details(ctx context.Context, m *Monitor, now time.Time, ahead, lookback time.Duration) ([]FlightDetail, error) {
	from := now
	segment := m.Kind == KindSegment || m.Kind == KindAirwaySegment
	if segment {
		from = now.Add(-lookback)
	}

	candidates, err := c.Candidates(ctx, m, from, now.Add(ahead))
	if err != nil {
		return nil, err
	}

	details := make([]FlightDetail, 0, len(candidates))
	for _, cand := range candidates {
		d := FlightDetail{
			FlightCandidate: cand,
			MinutesUntil:    int(cand.EntryTime.Sub(now) / time.Minute),
			PositionStatus:  StatusApproaching,
		}
		if cand.EntryTime.Before(now) {
			if cand.ExitTime != nil && cand.ExitTime.Before(now) {
				continue
			}
			d.PositionStatus = StatusInSegment
		}
		if !segment {
			d.PositionStatus = ""
		}
		details = append(details, d)
	}
	sort.SliceStable(details, func(i, j int) bool {
		return details[i].EntryTime.Before(details[j].EntryTime)
	})
	return details, nil
}

type countPlan struct {
	query  CrossingQuery
	reduce func(rows []Crossing) (FlightCandidate, bool)
}

// plan builds the crossing query for m. Rows are never bounded below:
// entry is chosen over a flight's full crossing history and only then
// checked against the window, so a flight that entered before from is
// dropped rather than counted at a later crossing.
func (c *Counter) plan(ctx context.Context, m *Monitor, until time.Time) (countPlan, error) {
	q := CrossingQuery{Until: until, Filter: m.Predicate()}

	switch m.Kind {
	case KindFix:
		q.Fixes = []string{m.Fix}
		return countPlan{query: q, reduce: firstAt(m.Fix)}, nil

	case KindSegment:
		q.Fixes = []string{m.From, m.To}
		q.Until = time.Time{}
		return countPlan{query: q, reduce: segmentBetween(m.From, m.To)}, nil

	case KindAirway:
		q.Airway = m.Airway
		return countPlan{query: q, reduce: earliest}, nil

	case KindAirwaySegment:
		q.Fixes = []string{m.From, m.To}
		q.Airway = m.Airway
		q.Until = time.Time{}
		return countPlan{query: q, reduce: segmentBetween(m.From, m.To)}, nil

	case KindViaFix:
		if m.ViaType == ViaAirway {
			q.Airway = m.Via
			return countPlan{query: q, reduce: earliest}, nil
		}
		switch c.viaClass(ctx, m.Via) {
		case ClassProcedureFull:
			q.Procedure = m.Via
			return countPlan{query: q, reduce: earliest}, nil
		case ClassProcedureBase:
			q.ProcedureBase = m.Via
			return countPlan{query: q, reduce: earliest}, nil
		default:
			q.Fixes = []string{m.Via}
			return countPlan{query: q, reduce: firstAt(m.Via)}, nil
		}
	}
	return countPlan{}, fmt.Errorf("unsupported monitor kind %q", m.Kind)
}

// viaClass classifies a via token. Reference fixes settle 3-6 letter
// names either way: a known fix is a fix, an unknown name is a procedure
// base. Without reference data the Classify heuristic stands.
func (c *Counter) viaClass(ctx context.Context, token string) Classification {
	class := Classify(token)
	if c.ref == nil || !ambiguousName(token) {
		return class
	}
	_, known, err := c.ref.FixPosition(ctx, token)
	if err != nil {
		c.logger.Debugw("fix lookup during via classification failed", "via", token, "error", err)
		return class
	}
	if known {
		return ClassFix
	}
	return ClassProcedureBase
}

// groupByFlight splits rows into per-flight runs ordered by sequence,
// dropping any terminal-phase rows a store let through.
func groupByFlight(rows []Crossing) [][]Crossing {
	byFlight := make(map[int64][]Crossing)
	var order []int64
	for _, r := range rows {
		if isTerminal(r.Phase) {
			continue
		}
		if _, ok := byFlight[r.FlightUID]; !ok {
			order = append(order, r.FlightUID)
		}
		byFlight[r.FlightUID] = append(byFlight[r.FlightUID], r)
	}

	out := make([][]Crossing, 0, len(order))
	for _, uid := range order {
		flight := byFlight[uid]
		sort.SliceStable(flight, func(i, j int) bool { return flight[i].Sequence < flight[j].Sequence })
		out = append(out, flight)
	}
	return out
}

func isTerminal(phase string) bool {
	for _, p := range TerminalPhases {
		if p == phase {
			return true
		}
	}
	return false
}

func candidateFrom(r Crossing) FlightCandidate {
	return FlightCandidate{
		FlightUID:    r.FlightUID,
		Callsign:     r.Callsign,
		Phase:        r.Phase,
		Departure:    r.Departure,
		Destination:  r.Destination,
		AircraftType: r.AircraftType,
		EntryTime:    r.ETA,
	}
}

// firstAt enters at the first crossing of fix in sequence order.
func firstAt(fix string) func([]Crossing) (FlightCandidate, bool) {
	return func(rows []Crossing) (FlightCandidate, bool) {
		for _, r := range rows {
			if r.Fix == fix {
				return candidateFrom(r), true
			}
		}
		return FlightCandidate{}, false
	}
}

// earliest enters at the earliest crossing among rows.
func earliest(rows []Crossing) (FlightCandidate, bool) {
	if len(rows) == 0 {
		return FlightCandidate{}, false
	}
	first := rows[0]
	for _, r := range rows[1:] {
		if r.ETA.Before(first.ETA) {
			first = r
		}
	}
	return candidateFrom(first), true
}

// segmentBetween requires both endpoints on the route. Entry is the first
// crossing of from, exit the first crossing of to, whichever order they are
// flown in.
func segmentBetween(from, to string) func([]Crossing) (FlightCandidate, bool) {
	return func(rows []Crossing) (FlightCandidate, bool) {
		var entry, exit *Crossing
		for i := range rows {
			r := &rows[i]
			if entry == nil && r.Fix == from {
				entry = r
			} else if exit == nil && r.Fix == to {
				exit = r
			}
		}
		if entry == nil || exit == nil {
			return FlightCandidate{}, false
		}
		cand := candidateFrom(*entry)
		eta := exit.ETA
		cand.ExitTime = &eta
		return cand, true
	}
}
