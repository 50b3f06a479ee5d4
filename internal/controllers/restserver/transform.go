package restserver

import (
	"fmt"
	"time"

	"github.com/chrissnell/demandmonitor/internal/demand"
	"github.com/chrissnell/demandmonitor/internal/navdata"
)

const utcLayout = "2006-01-02T15:04:05Z"

func formatUTC(t time.Time) string {
	return t.UTC().Format(utcLayout)
}

// transformBatch converts an aggregator response to its wire form.
func transformBatch(resp *demand.Response) BatchResponse {
	out := BatchResponse{
		GeneratedUTC:  formatUTC(resp.GeneratedAt),
		BucketMinutes: resp.BucketMinutes,
		HorizonHours:  resp.HorizonHours,
		NumBuckets:    resp.Schedule.Len(),
		Buckets:       make([]BucketInfo, 0, resp.Schedule.Len()),
		Monitors:      make([]MonitorResult, 0, len(resp.Results)),
		Errors:        resp.Errors,
	}

	for _, b := range resp.Schedule.Buckets {
		out.Buckets = append(out.Buckets, BucketInfo{
			Index: b.Index,
			Start: formatUTC(b.Start),
			Label: fmt.Sprintf("+%d", b.Index*resp.BucketMinutes),
		})
	}
	for _, r := range resp.Results {
		out.Monitors = append(out.Monitors, transformResult(r))
	}
	return out
}

func transformResult(r demand.Result) MonitorResult {
	m := r.Monitor
	spec := m.Spec()
	mr := MonitorResult{
		ID:           m.Key(),
		Type:         string(m.Kind),
		Label:        m.Label(),
		Fix:          m.Fix,
		FromFix:      m.From,
		ToFix:        m.To,
		Airway:       m.Airway,
		Via:          m.Via,
		ViaType:      spec.ViaType,
		Filter:       spec.Filter,
		FlightFilter: m.Filter,
		Counts:       r.Series.Counts,
		Total:        r.Series.Total,
		Summary:      r.Summary,
	}
	if r.Err != nil {
		mr.Error = r.Err.Error()
	}

	if g := r.Geometry; g != nil && len(g.Points) > 0 {
		mr.Geometry = transformGeometry(g)

		first, last := g.Points[0], g.Points[len(g.Points)-1]
		switch m.Kind {
		case demand.KindFix:
			mr.Lat, mr.Lon = ptr(first.Lat), ptr(first.Lon)
		case demand.KindSegment, demand.KindAirwaySegment:
			if len(g.Points) > 1 {
				mr.FromLat, mr.FromLon = ptr(first.Lat), ptr(first.Lon)
				mr.ToLat, mr.ToLon = ptr(last.Lat), ptr(last.Lon)
			}
		case demand.KindViaFix:
			if m.IsPoint() {
				mr.Lat, mr.Lon = ptr(first.Lat), ptr(first.Lon)
			}
		}
	}
	return mr
}

func transformGeometry(g *demand.Geometry) *GeometryResult {
	out := &GeometryResult{
		Source:      g.Source,
		Fixes:       make([]string, 0, len(g.Points)),
		Coordinates: make([][2]float64, 0, len(g.Points)),
	}
	for _, p := range g.Points {
		out.Fixes = append(out.Fixes, p.Name)
		out.Coordinates = append(out.Coordinates, [2]float64{p.Lon, p.Lat})
	}
	return out
}

func transformDetails(m *demand.Monitor, minutesAhead int, details []demand.FlightDetail) DetailsResponse {
	out := DetailsResponse{
		MonitorID:    m.Key(),
		MonitorType:  string(m.Kind),
		MinutesAhead: minutesAhead,
		Flights:      make([]FlightResult, 0, len(details)),
		TotalCount:   len(details),
	}
	for _, d := range details {
		f := FlightResult{
			FlightUID:      d.FlightUID,
			Callsign:       d.Callsign,
			Departure:      d.Departure,
			Destination:    d.Destination,
			AircraftType:   d.AircraftType,
			ETAUTC:         formatUTC(d.EntryTime),
			MinutesUntil:   d.MinutesUntil,
			Phase:          d.Phase,
			PositionStatus: d.PositionStatus,
		}
		if d.ExitTime != nil {
			exit := formatUTC(*d.ExitTime)
			f.ExitUTC = &exit
		}
		out.Flights = append(out.Flights, f)
	}
	return out
}

func transformAirway(name string, a *navdata.Airway) AirwayResult {
	if a == nil || len(a.Segments) == 0 {
		return AirwayResult{
			Name:  name,
			Type:  demand.DetectAirwayType(name),
			Found: false,
			Error: "Airway not found in database",
		}
	}

	res := AirwayResult{
		Name:            a.Name,
		Type:            a.Type,
		Found:           true,
		SegmentCount:    len(a.Segments),
		TotalDistanceNM: a.TotalDistanceNM(),
		Segments:        make([]AirwaySegment, 0, len(a.Segments)),
	}
	points := a.Points()
	res.FixCount = len(points)

	coords := make([][2]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, [2]float64{p.Lon, p.Lat})
	}
	for _, s := range a.Segments {
		res.Segments = append(res.Segments, AirwaySegment{
			Seq:        s.Seq,
			From:       s.From,
			To:         s.To,
			DistanceNM: s.DistanceNM,
			CourseDeg:  s.CourseDeg,
		})
	}

	res.GeoJSON = &Feature{
		Type: "Feature",
		Properties: map[string]any{
			"airway":            a.Name,
			"type":              a.Type,
			"segment_count":     res.SegmentCount,
			"fix_count":         res.FixCount,
			"total_distance_nm": res.TotalDistanceNM,
		},
		Geometry: LineString{Type: "LineString", Coordinates: coords},
	}
	return res
}

func ptr(f float64) *float64 {
	return &f
}
