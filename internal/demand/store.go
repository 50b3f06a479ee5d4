package demand

import (
	"context"
	"time"
)

// TerminalPhases are lifecycle phases that never count toward demand.
var TerminalPhases = []string{"arrived", "disconnected"}

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Waypoint is a named, positioned point on a route or airway.
type Waypoint struct {
	Name string
	Coordinate
}

// Crossing is one estimated waypoint passage by a tracked flight, as
// produced by a FlightStore.
type Crossing struct {
	FlightUID    int64
	Callsign     string
	Phase        string
	Departure    string
	Destination  string
	AircraftType string
	Sequence     int
	Fix          string
	Airway       string
	Procedure    string
	ETA          time.Time
}

// CrossingQuery selects waypoint crossings. Non-empty criteria are AND-ed
// per waypoint row. A zero From or Until leaves that side of the ETA window
// open.
type CrossingQuery struct {
	Fixes         []string
	Airway        string
	Procedure     string
	ProcedureBase string
	From          time.Time
	Until         time.Time
	Filter        Predicate
}

// FlightStore returns crossings for active flights outside the terminal
// phases, ordered by flight then route sequence.
type FlightStore interface {
	Crossings(ctx context.Context, q CrossingQuery) ([]Crossing, error)
}

// ReferenceGeometry is static navigation data.
type ReferenceGeometry interface {
	// AirwayPoints returns the airway's fixes in sequence order.
	AirwayPoints(ctx context.Context, airway string) ([]Waypoint, error)
	// AirwaysThrough names the airways that publish both fixes.
	AirwaysThrough(ctx context.Context, from, to string) ([]string, error)
	FixPosition(ctx context.Context, fix string) (Coordinate, bool, error)
}

// LiveTraffic exposes waypoint positions recorded for tracked flights.
type LiveTraffic interface {
	// RouteTrace returns the full ordered route of one tracked flight that
	// passes both from and to; with a non-empty airway both fixes must be
	// tagged with it.
	RouteTrace(ctx context.Context, from, to, airway string) ([]Waypoint, error)
	// AirwayTrace returns the ordered waypoints one tracked flight flies
	// along airway.
	AirwayTrace(ctx context.Context, airway string) ([]Waypoint, error)
	FixPosition(ctx context.Context, fix string) (Coordinate, bool, error)
}
