package demand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonitorKeys(t *testing.T) {
	tests := []struct {
		name  string
		spec  MonitorSpec
		key   string
		label string
	}{
		{
			name:  "fix",
			spec:  MonitorSpec{Type: "fix", Fix: " merit "},
			key:   "fix_MERIT",
			label: "MERIT",
		},
		{
			name:  "segment",
			spec:  MonitorSpec{Type: "segment", From: "CAM", To: "GDM"},
			key:   "segment_CAM_GDM",
			label: "CAM-GDM",
		},
		{
			name:  "airway",
			spec:  MonitorSpec{Type: "AIRWAY", Airway: "j60"},
			key:   "airway_J60",
			label: "J60",
		},
		{
			name:  "airway segment",
			spec:  MonitorSpec{Type: "airway_segment", Airway: "J60", From: "PSB", To: "HAR"},
			key:   "airway_J60_PSB_HAR",
			label: "PSB J60 HAR",
		},
		{
			name: "via fix defaults to both directions",
			spec: MonitorSpec{Type: "via_fix", Via: "MERIT",
				Filter: &LocationSpec{Type: "airport", Code: "KBOS"}},
			key:   "via_airport_KBOS_both_MERIT",
			label: "MERIT (KBOS)",
		},
		{
			name: "via airway with short direction",
			spec: MonitorSpec{Type: "via_fix", Via: "J60", ViaType: "airway",
				Filter: &LocationSpec{Type: "artcc", Code: "ZNY", Direction: "arr"}},
			key:   "via_artcc_ZNY_arrival_airway_J60",
			label: "J60 (ZNY)",
		},
		{
			name: "flight filter is part of the key",
			spec: MonitorSpec{Type: "fix", Fix: "MERIT",
				FlightFilter: &FlightFilter{Airline: StringList{"ual"}}},
			key:   "fix_MERIT~airline=UAL",
			label: "MERIT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMonitor(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.key, m.Key())
			assert.Equal(t, tt.label, m.Label())

			again, err := ParseMonitor(m.Spec())
			require.NoError(t, err)
			assert.Equal(t, m.Key(), again.Key(), "spec round trip must keep the key")
		})
	}
}

func TestParseMonitorErrors(t *testing.T) {
	tests := []struct {
		name    string
		spec    MonitorSpec
		wantErr string
	}{
		{"missing type", MonitorSpec{Fix: "MERIT"}, "missing 'type' field"},
		{"unknown type", MonitorSpec{Type: "sector"}, `unknown monitor type "sector"`},
		{"fix without fix", MonitorSpec{Type: "fix"}, "missing 'fix' field"},
		{"segment without to", MonitorSpec{Type: "segment", From: "CAM"}, "missing 'to' field"},
		{"airway segment without airway", MonitorSpec{Type: "airway_segment", From: "A", To: "B"}, "missing 'airway' field"},
		{"via without filter", MonitorSpec{Type: "via_fix", Via: "MERIT"}, "missing 'filter' field"},
		{"bad identifier", MonitorSpec{Type: "fix", Fix: "ME-RIT"}, "'fix' must be 2-12 letters or digits"},
		{
			"bad via type",
			MonitorSpec{Type: "via_fix", Via: "MERIT", ViaType: "sid", Filter: &LocationSpec{Type: "airport", Code: "KBOS"}},
			"via_type must be 'fix' or 'airway'",
		},
		{
			"bad location type",
			MonitorSpec{Type: "via_fix", Via: "MERIT", Filter: &LocationSpec{Type: "sector", Code: "ZBW"}},
			"filter.type must be airport, tracon or artcc",
		},
		{
			"bad direction",
			MonitorSpec{Type: "via_fix", Via: "MERIT", Filter: &LocationSpec{Type: "airport", Code: "KBOS", Direction: "up"}},
			"filter.direction must be arrival, departure or both",
		},
		{
			"bad category",
			MonitorSpec{Type: "fix", Fix: "MERIT", FlightFilter: &FlightFilter{AircraftCategory: StringList{"TINY"}}},
			"flight_filter: unknown aircraft_category",
		},
		{
			"separator in airline",
			MonitorSpec{Type: "fix", Fix: "MERIT", FlightFilter: &FlightFilter{Airline: StringList{"UAL,DAL"}}},
			`flight_filter: invalid airline value "UAL,DAL"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMonitor(tt.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseMonitorsIsAllOrNothing(t *testing.T) {
	specs := []MonitorSpec{
		{Type: "fix", Fix: "MERIT"},
		{Type: "segment", From: "CAM"},
		{Type: "fix", Fix: "GDM"},
	}
	monitors, err := ParseMonitors(specs, 50)
	assert.Nil(t, monitors)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, verr.Index)
	assert.Equal(t, "monitor at index 1: missing 'to' field", err.Error())
}

func TestParseMonitorsBounds(t *testing.T) {
	_, err := ParseMonitors(nil, 50)
	assert.EqualError(t, err, "missing required parameter: monitors")

	specs := make([]MonitorSpec, 3)
	for i := range specs {
		specs[i] = MonitorSpec{Type: "fix", Fix: "MERIT"}
	}
	_, err = ParseMonitors(specs, 2)
	assert.EqualError(t, err, "too many monitors; maximum is 2")
}

func TestLocationPredicate(t *testing.T) {
	into := fakeFlight{dep: "KORD", dest: "KBOS", depARTCC: "ZAU", destARTCC: "ZBW"}
	outOf := fakeFlight{dep: "KBOS", dest: "KORD", depARTCC: "ZBW", destARTCC: "ZAU"}

	tests := []struct {
		name      string
		loc       LocationSpec
		intoMatch bool
		outMatch  bool
	}{
		{"arrivals", LocationSpec{Type: "airport", Code: "KBOS", Direction: "arrival"}, true, false},
		{"departures", LocationSpec{Type: "airport", Code: "KBOS", Direction: "departures"}, false, true},
		{"both", LocationSpec{Type: "airport", Code: "KBOS"}, true, true},
		{"artcc arrivals", LocationSpec{Type: "artcc", Code: "ZBW", Direction: "arr"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := tt.loc
			m, err := ParseMonitor(MonitorSpec{Type: "via_fix", Via: "MERIT", Filter: &loc})
			require.NoError(t, err)
			p := m.Predicate()
			assert.Equal(t, tt.intoMatch, p.Match(into))
			assert.Equal(t, tt.outMatch, p.Match(outOf))
		})
	}
}
