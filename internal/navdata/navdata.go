// Package navdata is the static navigation reference: published fixes and
// airway geometry, kept in a local SQLite database.
package navdata

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/chrissnell/demandmonitor/internal/demand"
	"github.com/chrissnell/demandmonitor/pkg/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Fix is a published navigation point.
type Fix struct {
	Name string  `json:"name"`
	Type string  `json:"type,omitempty"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Segment is one leg of an airway.
type Segment struct {
	Seq        int     `json:"seq"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	FromLat    float64 `json:"-"`
	FromLon    float64 `json:"-"`
	ToLat      float64 `json:"-"`
	ToLon      float64 `json:"-"`
	DistanceNM float64 `json:"distance_nm"`
	CourseDeg  int     `json:"course_deg"`
}

// Airway is an airway with its ordered segments.
type Airway struct {
	Name     string
	Type     string
	Segments []Segment
}

// Points flattens the segments into an ordered polyline.
func (a *Airway) Points() []demand.Waypoint {
	if len(a.Segments) == 0 {
		return nil
	}
	first := a.Segments[0]
	points := []demand.Waypoint{{Name: first.From, Coordinate: demand.Coordinate{Lat: first.FromLat, Lon: first.FromLon}}}
	for _, s := range a.Segments {
		points = append(points, demand.Waypoint{Name: s.To, Coordinate: demand.Coordinate{Lat: s.ToLat, Lon: s.ToLon}})
	}
	return points
}

// TotalDistanceNM sums segment lengths, rounded to a tenth.
func (a *Airway) TotalDistanceNM() float64 {
	var total float64
	for _, s := range a.Segments {
		total += s.DistanceNM
	}
	return math.Round(total*10) / 10
}

// Store serves reference geometry from SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// Open opens (creating if needed) the database at path and brings its
// schema up to date. ":memory:" gives a private in-memory database.
func Open(path string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open navdata database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping navdata database: %w", err)
	}

	if err := newMigrator(db, logger).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate navdata database: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func newMigrator(db *sql.DB, logger *zap.SugaredLogger) *migrate.Migrator {
	provider := migrate.NewFSProvider(migrations, "migrations", "navdata_migrations", migrate.DialectSQLite)
	return migrate.NewMigrator(db, provider, logger)
}

// SchemaVersion reports the applied migration version.
func (s *Store) SchemaVersion() (int, error) {
	return newMigrator(s.db, s.logger).Version()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// FixCount is the number of stored fixes.
func (s *Store) FixCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nav_fixes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("could not count fixes: %w", err)
	}
	return n, nil
}

// FixPosition implements demand.ReferenceGeometry. When a name is published
// more than once the first loaded position wins.
func (s *Store) FixPosition(ctx context.Context, fix string) (demand.Coordinate, bool, error) {
	var c demand.Coordinate
	err := s.db.QueryRowContext(ctx,
		`SELECT lat, lon FROM nav_fixes WHERE fix_name = ? ORDER BY id LIMIT 1`,
		strings.ToUpper(fix)).Scan(&c.Lat, &c.Lon)
	if errors.Is(err, sql.ErrNoRows) {
		return c, false, nil
	}
	if err != nil {
		return c, false, fmt.Errorf("fix lookup for %s failed: %w", fix, err)
	}
	return c, true, nil
}

// AirwayPoints implements demand.ReferenceGeometry.
func (s *Store) AirwayPoints(ctx context.Context, airway string) ([]demand.Waypoint, error) {
	a, err := s.Airway(ctx, airway)
	if err != nil || a == nil {
		return nil, err
	}
	return a.Points(), nil
}

// AirwaysThrough implements demand.ReferenceGeometry.
func (s *Store) AirwaysThrough(ctx context.Context, from, to string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT a.airway_name
		FROM airway_segments a
		JOIN airway_segments b ON b.airway_name = a.airway_name
		WHERE ? IN (a.from_fix, a.to_fix) AND ? IN (b.from_fix, b.to_fix)
		ORDER BY a.airway_name`,
		strings.ToUpper(from), strings.ToUpper(to))
	if err != nil {
		return nil, fmt.Errorf("airway lookup for %s-%s failed: %w", from, to, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Airway returns the named airway, or nil when it is not published.
func (s *Store) Airway(ctx context.Context, name string) (*Airway, error) {
	name = strings.ToUpper(strings.TrimSpace(name))

	var airwayType string
	err := s.db.QueryRowContext(ctx, `SELECT airway_type FROM airways WHERE airway_name = ?`, name).Scan(&airwayType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("airway lookup for %s failed: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence_num, from_fix, to_fix, from_lat, from_lon, to_lat, to_lon, distance_nm, course_deg
		FROM airway_segments
		WHERE airway_name = ?
		ORDER BY sequence_num`, name)
	if err != nil {
		return nil, fmt.Errorf("airway segment query for %s failed: %w", name, err)
	}
	defer rows.Close()

	a := &Airway{Name: name, Type: airwayType}
	for rows.Next() {
		var seg Segment
		if err := rows.Scan(&seg.Seq, &seg.From, &seg.To, &seg.FromLat, &seg.FromLon,
			&seg.ToLat, &seg.ToLon, &seg.DistanceNM, &seg.CourseDeg); err != nil {
			return nil, err
		}
		a.Segments = append(a.Segments, seg)
	}
	return a, rows.Err()
}

// AddFixes inserts fixes in one transaction.
func (s *Store) AddFixes(ctx context.Context, fixes []Fix) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, f := range fixes {
		typ := f.Type
		if typ == "" {
			typ = "WAYPOINT"
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO nav_fixes (fix_name, fix_type, lat, lon) VALUES (?, ?, ?, ?)`,
			strings.ToUpper(f.Name), strings.ToUpper(typ), f.Lat, f.Lon); err != nil {
			return fmt.Errorf("could not insert fix %s: %w", f.Name, err)
		}
	}
	return tx.Commit()
}

// PutAirway replaces the airway with the polyline through points, deriving
// segment distance and course. An empty airwayType is inferred from the
// name.
func (s *Store) PutAirway(ctx context.Context, name, airwayType string, points []demand.Waypoint) error {
	name = strings.ToUpper(strings.TrimSpace(name))
	if len(points) < 2 {
		return fmt.Errorf("airway %s needs at least two points", name)
	}
	if airwayType == "" {
		airwayType = demand.DetectAirwayType(name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM airway_segments WHERE airway_name = ?`, name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO airways (airway_name, airway_type) VALUES (?, ?)
			ON CONFLICT (airway_name) DO UPDATE SET airway_type = excluded.airway_type`, name, airwayType); err != nil {
		return fmt.Errorf("could not store airway %s: %w", name, err)
	}

	for i := 1; i < len(points); i++ {
		from, to := points[i-1], points[i]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO airway_segments
				(airway_name, sequence_num, from_fix, to_fix, from_lat, from_lon, to_lat, to_lon, distance_nm, course_deg)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			name, i, strings.ToUpper(from.Name), strings.ToUpper(to.Name),
			from.Lat, from.Lon, to.Lat, to.Lon,
			distanceNM(from.Coordinate, to.Coordinate), courseDeg(from.Coordinate, to.Coordinate)); err != nil {
			return fmt.Errorf("could not store segment %d of %s: %w", i, name, err)
		}
	}
	return tx.Commit()
}
