package demand

import (
	"context"

	"go.uber.org/zap"
)

// Geometry is a plot-ready shape for a monitor. Source names the strategy
// that produced it.
type Geometry struct {
	Points []Waypoint
	Source string
}

// GeometryStrategy is one tier of the resolution chain. Returning no
// points (and no error) means the tier has nothing for this monitor.
type GeometryStrategy interface {
	Name() string
	Resolve(ctx context.Context, m *Monitor) ([]Waypoint, error)
}

// GeometryResolver tries its strategies in order and keeps the first
// result with enough points: one for point monitors, two otherwise.
type GeometryResolver struct {
	strategies []GeometryStrategy
	logger     *zap.SugaredLogger
}

// NewGeometryResolver builds the standard chain: static reference data,
// live traffic constrained to the airway, unconstrained live traffic, and
// finally independent endpoint lookups. Either source may be nil.
func NewGeometryResolver(ref ReferenceGeometry, live LiveTraffic, logger *zap.SugaredLogger) *GeometryResolver {
	return NewGeometryResolverWith(logger,
		staticReference{ref: ref},
		liveTrace{live: live, constrained: true},
		liveTrace{live: live},
		endpointFallback{ref: ref, live: live},
	)
}

// NewGeometryResolverWith builds a resolver from an explicit strategy list.
func NewGeometryResolverWith(logger *zap.SugaredLogger, strategies ...GeometryStrategy) *GeometryResolver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &GeometryResolver{strategies: strategies, logger: logger}
}

// Resolve returns nil when no strategy yields enough points. Strategy
// errors are logged and treated as misses.
func (g *GeometryResolver) Resolve(ctx context.Context, m *Monitor) *Geometry {
	need := 2
	if m.IsPoint() {
		need = 1
	}
	for _, s := range g.strategies {
		if ctx.Err() != nil {
			return nil
		}
		points, err := s.Resolve(ctx, m)
		if err != nil {
			g.logger.Debugw("geometry strategy failed", "strategy", s.Name(), "monitor", m.Key(), "error", err)
			continue
		}
		if len(points) >= need {
			if m.IsPoint() {
				points = points[:1]
			}
			return &Geometry{Points: points, Source: s.Name()}
		}
	}
	return nil
}

// sliceRoute cuts the run of points between the first occurrences of from
// and to, inclusive, oriented from -> to.
func sliceRoute(points []Waypoint, from, to string) []Waypoint {
	fi, ti := -1, -1
	for i, p := range points {
		if fi < 0 && p.Name == from {
			fi = i
		}
		if ti < 0 && p.Name == to {
			ti = i
		}
	}
	if fi < 0 || ti < 0 {
		return nil
	}
	if fi <= ti {
		out := make([]Waypoint, ti-fi+1)
		copy(out, points[fi:ti+1])
		return out
	}
	out := make([]Waypoint, 0, fi-ti+1)
	for i := fi; i >= ti; i-- {
		out = append(out, points[i])
	}
	return out
}

func pointToken(m *Monitor) string {
	if m.Kind == KindFix {
		return m.Fix
	}
	return m.Via
}

// staticReference slices precomputed airway geometry, or places a point
// monitor on the reference fix table. A plain segment uses any airway that
// publishes both of its fixes.
type staticReference struct {
	ref ReferenceGeometry
}

func (staticReference) Name() string { return "reference" }

func (s staticReference) Resolve(ctx context.Context, m *Monitor) ([]Waypoint, error) {
	if s.ref == nil {
		return nil, nil
	}
	switch {
	case m.IsPoint():
		name := pointToken(m)
		c, ok, err := s.ref.FixPosition(ctx, name)
		if err != nil || !ok {
			return nil, err
		}
		return []Waypoint{{Name: name, Coordinate: c}}, nil
	case m.Kind == KindAirway:
		return s.ref.AirwayPoints(ctx, m.Airway)
	case m.Kind == KindViaFix:
		return s.ref.AirwayPoints(ctx, m.Via)
	case m.Kind == KindAirwaySegment:
		points, err := s.ref.AirwayPoints(ctx, m.Airway)
		if err != nil {
			return nil, err
		}
		return sliceRoute(points, m.From, m.To), nil
	case m.Kind == KindSegment:
		return s.segment(ctx, m.From, m.To)
	}
	return nil, nil
}

// segment slices the shortest published airway run joining from and to.
func (s staticReference) segment(ctx context.Context, from, to string) ([]Waypoint, error) {
	airways, err := s.ref.AirwaysThrough(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var best []Waypoint
	for _, name := range airways {
		points, err := s.ref.AirwayPoints(ctx, name)
		if err != nil {
			return nil, err
		}
		run := sliceRoute(points, from, to)
		if len(run) >= 2 && (best == nil || len(run) < len(best)) {
			best = run
		}
	}
	return best, nil
}

// liveTrace borrows the recorded route of a tracked flight. The constrained
// tier requires the airway tag and only applies to airway kinds.
type liveTrace struct {
	live        LiveTraffic
	constrained bool
}

func (l liveTrace) Name() string {
	if l.constrained {
		return "live_airway"
	}
	return "live_route"
}

func (l liveTrace) Resolve(ctx context.Context, m *Monitor) ([]Waypoint, error) {
	if l.live == nil {
		return nil, nil
	}
	if l.constrained {
		switch {
		case m.Kind == KindAirway:
			return l.live.AirwayTrace(ctx, m.Airway)
		case m.Kind == KindViaFix && m.ViaType == ViaAirway:
			return l.live.AirwayTrace(ctx, m.Via)
		case m.Kind == KindAirwaySegment:
			route, err := l.live.RouteTrace(ctx, m.From, m.To, m.Airway)
			if err != nil {
				return nil, err
			}
			return sliceRoute(route, m.From, m.To), nil
		}
		return nil, nil
	}

	switch {
	case m.IsPoint():
		name := pointToken(m)
		c, ok, err := l.live.FixPosition(ctx, name)
		if err != nil || !ok {
			return nil, err
		}
		return []Waypoint{{Name: name, Coordinate: c}}, nil
	case m.Kind == KindSegment || m.Kind == KindAirwaySegment:
		route, err := l.live.RouteTrace(ctx, m.From, m.To, "")
		if err != nil {
			return nil, err
		}
		return sliceRoute(route, m.From, m.To), nil
	}
	return nil, nil
}

// endpointFallback locates each endpoint on its own and joins them with a
// straight line.
type endpointFallback struct {
	ref  ReferenceGeometry
	live LiveTraffic
}

func (endpointFallback) Name() string { return "endpoints" }

func (e endpointFallback) Resolve(ctx context.Context, m *Monitor) ([]Waypoint, error) {
	var names []string
	switch {
	case m.IsPoint():
		names = []string{pointToken(m)}
	case m.Kind == KindSegment || m.Kind == KindAirwaySegment:
		names = []string{m.From, m.To}
	default:
		return nil, nil
	}

	points := make([]Waypoint, 0, len(names))
	for _, name := range names {
		c, ok := e.locate(ctx, name)
		if !ok {
			return nil, nil
		}
		points = append(points, Waypoint{Name: name, Coordinate: c})
	}
	return points, nil
}

func (e endpointFallback) locate(ctx context.Context, fix string) (Coordinate, bool) {
	if e.ref != nil {
		if c, ok, err := e.ref.FixPosition(ctx, fix); err == nil && ok {
			return c, true
		}
	}
	if e.live != nil {
		if c, ok, err := e.live.FixPosition(ctx, fix); err == nil && ok {
			return c, true
		}
	}
	return Coordinate{}, false
}
