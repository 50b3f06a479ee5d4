package flightstore

const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS adl_flight_core (
	flight_uid    BIGINT PRIMARY KEY,
	callsign      TEXT NOT NULL,
	airline_icao  TEXT,
	phase         TEXT NOT NULL DEFAULT 'unknown',
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	updated_utc   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS adl_flight_plan (
	flight_uid     BIGINT PRIMARY KEY REFERENCES adl_flight_core (flight_uid) ON DELETE CASCADE,
	fp_dept_icao   TEXT,
	fp_dest_icao   TEXT,
	fp_dept_tracon TEXT,
	fp_dest_tracon TEXT,
	fp_dept_artcc  TEXT,
	fp_dest_artcc  TEXT,
	aircraft_type  TEXT
);

CREATE TABLE IF NOT EXISTS adl_flight_waypoints (
	flight_uid    BIGINT NOT NULL REFERENCES adl_flight_core (flight_uid) ON DELETE CASCADE,
	sequence_num  INTEGER NOT NULL,
	fix_name      TEXT NOT NULL,
	on_airway     TEXT,
	on_procedure  TEXT,
	lat           DOUBLE PRECISION,
	lon           DOUBLE PRECISION,
	eta_utc       TIMESTAMPTZ,
	PRIMARY KEY (flight_uid, sequence_num)
);

CREATE INDEX IF NOT EXISTS adl_flight_waypoints_fix_eta ON adl_flight_waypoints (fix_name, eta_utc);
CREATE INDEX IF NOT EXISTS adl_flight_waypoints_airway_eta ON adl_flight_waypoints (on_airway, eta_utc);
CREATE INDEX IF NOT EXISTS adl_flight_waypoints_procedure_eta ON adl_flight_waypoints (on_procedure, eta_utc);
`

const crossingsSelectSQL = `SELECT c.flight_uid, c.callsign, c.phase,
	COALESCE(fp.fp_dept_icao, ''), COALESCE(fp.fp_dest_icao, ''), COALESCE(fp.aircraft_type, ''),
	w.sequence_num, w.fix_name, COALESCE(w.on_airway, ''), COALESCE(w.on_procedure, ''), w.eta_utc
FROM adl_flight_core c
JOIN adl_flight_waypoints w ON w.flight_uid = c.flight_uid
LEFT JOIN adl_flight_plan fp ON fp.flight_uid = c.flight_uid
WHERE c.is_active AND NOT (COALESCE(c.phase, '') = ANY(?)) AND w.eta_utc IS NOT NULL`

const crossingsOrderSQL = ` ORDER BY c.flight_uid, w.sequence_num`

// routeTraceSQL picks the most recently tracked flight that passes both
// fixes with coordinates and returns its whole positioned route.
const routeTraceSQL = `WITH pick AS (
	SELECT a.flight_uid
	FROM adl_flight_waypoints a
	JOIN adl_flight_waypoints b ON b.flight_uid = a.flight_uid
	WHERE a.fix_name = $1 AND b.fix_name = $2
	  AND a.lat IS NOT NULL AND b.lat IS NOT NULL
	  AND ($3::text = '' OR (a.on_airway = $3::text AND b.on_airway = $3::text))
	ORDER BY a.flight_uid DESC
	LIMIT 1
)
SELECT w.fix_name, w.lat, w.lon
FROM adl_flight_waypoints w
JOIN pick p ON p.flight_uid = w.flight_uid
WHERE w.lat IS NOT NULL AND w.lon IS NOT NULL
ORDER BY w.sequence_num`

const airwayTraceSQL = `WITH pick AS (
	SELECT flight_uid
	FROM adl_flight_waypoints
	WHERE on_airway = $1 AND lat IS NOT NULL
	GROUP BY flight_uid
	HAVING COUNT(*) >= 2
	ORDER BY COUNT(*) DESC, flight_uid DESC
	LIMIT 1
)
SELECT w.fix_name, w.lat, w.lon
FROM adl_flight_waypoints w
JOIN pick p ON p.flight_uid = w.flight_uid
WHERE w.on_airway = $1 AND w.lat IS NOT NULL AND w.lon IS NOT NULL
ORDER BY w.sequence_num`

const fixPositionSQL = `SELECT lat, lon
FROM adl_flight_waypoints
WHERE fix_name = $1 AND lat IS NOT NULL AND lon IS NOT NULL
LIMIT 1`
