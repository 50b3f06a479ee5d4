// Package flightstore provides the live flight data the demand engine
// counts: a PostgreSQL backend for production and an in-memory backend for
// fixtures and tests.
package flightstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/chrissnell/demandmonitor/internal/demand"
)

// Postgres reads flights from the adl_flight_* tables.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.SugaredLogger
}

// NewPostgres connects and verifies the connection.
func NewPostgres(ctx context.Context, connString string, logger *zap.SugaredLogger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create flight store pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach flight store: %w", err)
	}
	logger.Info("connected to flight store")
	return &Postgres{pool: pool, logger: logger}, nil
}

// Migrate creates the flight tables if they are missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("could not create flight tables: %w", err)
	}
	return nil
}

// Ping checks the pool.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Crossings implements demand.FlightStore.
func (p *Postgres) Crossings(ctx context.Context, q demand.CrossingQuery) ([]demand.Crossing, error) {
	sql, args := buildCrossingsSQL(q)
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (demand.Crossing, error) {
		var c demand.Crossing
		err := row.Scan(&c.FlightUID, &c.Callsign, &c.Phase,
			&c.Departure, &c.Destination, &c.AircraftType,
			&c.Sequence, &c.Fix, &c.Airway, &c.Procedure, &c.ETA)
		return c, err
	})
}

// RouteTrace implements demand.LiveTraffic.
func (p *Postgres) RouteTrace(ctx context.Context, from, to, airway string) ([]demand.Waypoint, error) {
	return p.trace(ctx, routeTraceSQL, from, to, airway)
}

// AirwayTrace implements demand.LiveTraffic.
func (p *Postgres) AirwayTrace(ctx context.Context, airway string) ([]demand.Waypoint, error) {
	return p.trace(ctx, airwayTraceSQL, airway)
}

func (p *Postgres) trace(ctx context.Context, sql string, args ...any) ([]demand.Waypoint, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (demand.Waypoint, error) {
		var w demand.Waypoint
		err := row.Scan(&w.Name, &w.Lat, &w.Lon)
		return w, err
	})
}

// FixPosition implements demand.LiveTraffic.
func (p *Postgres) FixPosition(ctx context.Context, fix string) (demand.Coordinate, bool, error) {
	var c demand.Coordinate
	err := p.pool.QueryRow(ctx, fixPositionSQL, fix).Scan(&c.Lat, &c.Lon)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, false, nil
	}
	if err != nil {
		return c, false, err
	}
	return c, true, nil
}

var columns = map[demand.Field]string{
	demand.FieldCallsign:          "c.callsign",
	demand.FieldAirline:           "COALESCE(c.airline_icao, '')",
	demand.FieldAircraftType:      "COALESCE(fp.aircraft_type, '')",
	demand.FieldDeparture:         "COALESCE(fp.fp_dept_icao, '')",
	demand.FieldDestination:       "COALESCE(fp.fp_dest_icao, '')",
	demand.FieldDepartureTracon:   "COALESCE(fp.fp_dept_tracon, '')",
	demand.FieldDestinationTracon: "COALESCE(fp.fp_dest_tracon, '')",
	demand.FieldDepartureARTCC:    "COALESCE(fp.fp_dept_artcc, '')",
	demand.FieldDestinationARTCC:  "COALESCE(fp.fp_dest_artcc, '')",
}

func column(f demand.Field) string {
	if c, ok := columns[f]; ok {
		return c
	}
	// Unknown fields never match rather than producing invalid SQL.
	return "NULL"
}

// buildCrossingsSQL renders q as a positional-parameter query.
func buildCrossingsSQL(q demand.CrossingQuery) (string, []any) {
	var sb strings.Builder
	sb.WriteString(crossingsSelectSQL)
	args := []any{demand.TerminalPhases}

	if len(q.Fixes) > 0 {
		sb.WriteString(" AND w.fix_name = ANY(?)")
		args = append(args, q.Fixes)
	}
	if q.Airway != "" {
		sb.WriteString(" AND w.on_airway = ?")
		args = append(args, q.Airway)
	}
	if q.Procedure != "" {
		sb.WriteString(" AND w.on_procedure = ?")
		args = append(args, q.Procedure)
	}
	if q.ProcedureBase != "" {
		sb.WriteString(" AND w.on_procedure ~ ?")
		args = append(args, "^"+regexp.QuoteMeta(q.ProcedureBase)+"[0-9][A-Z]?$")
	}
	if !q.From.IsZero() {
		sb.WriteString(" AND w.eta_utc >= ?")
		args = append(args, q.From)
	}
	if !q.Until.IsZero() {
		sb.WriteString(" AND w.eta_utc < ?")
		args = append(args, q.Until)
	}
	if q.Filter != nil {
		if where, fargs := q.Filter.Render(column); where != "TRUE" {
			sb.WriteString(" AND ")
			sb.WriteString(where)
			args = append(args, fargs...)
		}
	}
	sb.WriteString(crossingsOrderSQL)
	return rebind(sb.String()), args
}

// rebind swaps '?' placeholders for $1, $2, ... outside quoted literals.
func rebind(sql string) string {
	var sb strings.Builder
	n := 0
	inQuote := false
	for _, r := range sql {
		switch {
		case r == '\'':
			inQuote = !inQuote
			sb.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
