package restserver

import (
	"encoding/json"
	"time"

	"github.com/chrissnell/demandmonitor/internal/demand"
	"github.com/chrissnell/demandmonitor/internal/registry"
)

// BatchRequest is the POST body of /api/demand/batch.
type BatchRequest struct {
	Monitors      []demand.MonitorSpec `json:"monitors"`
	BucketMinutes int                  `json:"bucket_minutes,omitempty"`
	HorizonHours  int                  `json:"horizon_hours,omitempty"`
}

// BucketInfo labels one time bucket.
type BucketInfo struct {
	Index int    `json:"index"`
	Start string `json:"start"`
	Label string `json:"label"`
}

// BatchResponse is the batch demand payload.
type BatchResponse struct {
	GeneratedUTC  string                `json:"generated_utc"`
	BucketMinutes int                   `json:"bucket_minutes"`
	HorizonHours  int                   `json:"horizon_hours"`
	NumBuckets    int                   `json:"num_buckets"`
	Buckets       []BucketInfo          `json:"buckets"`
	Monitors      []MonitorResult       `json:"monitors"`
	Errors        []demand.MonitorError `json:"errors,omitempty"`
}

// MonitorResult is one monitor's entry in a batch response. Which echoed
// fields are present depends on the monitor type.
type MonitorResult struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Label   string `json:"label"`
	Fix     string `json:"fix,omitempty"`
	FromFix string `json:"from_fix,omitempty"`
	ToFix   string `json:"to_fix,omitempty"`
	Airway  string `json:"airway,omitempty"`
	Via     string `json:"via,omitempty"`
	ViaType string `json:"via_type,omitempty"`

	Filter       *demand.LocationSpec `json:"filter,omitempty"`
	FlightFilter *demand.FlightFilter `json:"flight_filter,omitempty"`

	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
	FromLat *float64 `json:"from_lat,omitempty"`
	FromLon *float64 `json:"from_lon,omitempty"`
	ToLat   *float64 `json:"to_lat,omitempty"`
	ToLon   *float64 `json:"to_lon,omitempty"`

	Counts   []int           `json:"counts"`
	Total    int             `json:"total"`
	Summary  demand.Summary  `json:"summary"`
	Geometry *GeometryResult `json:"geometry,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// GeometryResult is a resolved polyline as [lon, lat] pairs.
type GeometryResult struct {
	Source      string       `json:"source"`
	Fixes       []string     `json:"fixes"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// DetailsResponse lists the flights captured by one monitor.
type DetailsResponse struct {
	MonitorID    string         `json:"monitor_id"`
	MonitorType  string         `json:"monitor_type"`
	MinutesAhead int            `json:"minutes_ahead"`
	Flights      []FlightResult `json:"flights"`
	TotalCount   int            `json:"total_count"`
}

// FlightResult is one flight in a details response.
type FlightResult struct {
	FlightUID      int64   `json:"flight_uid"`
	Callsign       string  `json:"callsign"`
	Departure      string  `json:"departure"`
	Destination    string  `json:"destination"`
	AircraftType   string  `json:"aircraft_type"`
	ETAUTC         string  `json:"eta_utc"`
	ExitUTC        *string `json:"exit_utc,omitempty"`
	MinutesUntil   int     `json:"minutes_until"`
	Phase          string  `json:"phase"`
	PositionStatus string  `json:"position_status,omitempty"`
}

// MonitorListResponse wraps registry entries.
type MonitorListResponse struct {
	Monitors []registry.Entry `json:"monitors"`
}

// MonitorCreateRequest is the POST body of /api/demand/monitors. The
// definition may carry its own type or take the top-level one.
type MonitorCreateRequest struct {
	Type       string          `json:"type"`
	Definition json.RawMessage `json:"definition"`
	Label      string          `json:"label,omitempty"`
	CreatedBy  *string         `json:"created_by,omitempty"`
}

// MonitorMutationResponse reports a registry change.
type MonitorMutationResponse struct {
	Success bool   `json:"success"`
	ID      uint   `json:"id,omitempty"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message"`
}

// AirwayResponse answers /api/airway for one or more airways.
type AirwayResponse struct {
	Success bool                    `json:"success"`
	Airways map[string]AirwayResult `json:"airways"`
}

// AirwayResult describes one requested airway.
type AirwayResult struct {
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	Found           bool            `json:"found"`
	Error           string          `json:"error,omitempty"`
	SegmentCount    int             `json:"segment_count,omitempty"`
	FixCount        int             `json:"fix_count,omitempty"`
	TotalDistanceNM float64         `json:"total_distance_nm,omitempty"`
	Segments        []AirwaySegment `json:"segments,omitempty"`
	GeoJSON         *Feature        `json:"geojson,omitempty"`
}

// AirwaySegment is one leg of an airway.
type AirwaySegment struct {
	Seq        int     `json:"seq"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	DistanceNM float64 `json:"distance_nm"`
	CourseDeg  int     `json:"course_deg"`
}

// Feature is a GeoJSON LineString feature.
type Feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   LineString     `json:"geometry"`
}

// LineString is a GeoJSON line geometry of [lon, lat] pairs.
type LineString struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Time   time.Time         `json:"time"`
}
