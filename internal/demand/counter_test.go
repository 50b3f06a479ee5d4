package demand

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMonitor(t *testing.T, spec MonitorSpec) *Monitor {
	t.Helper()
	m, err := ParseMonitor(spec)
	require.NoError(t, err)
	return m
}

func countFixture() *fakeStore {
	return &fakeStore{flights: []fakeFlight{
		{
			uid: 1, callsign: "UAL1", phase: "enroute", dep: "KORD", dest: "KBOS", aircraftTyp: "B738",
			route: []fakeFix{
				{seq: 1, fix: "CAM", airway: "J60", eta: at(5)},
				{seq: 2, fix: "MERIT", airway: "J60", eta: at(10)},
				{seq: 3, fix: "GDM", eta: at(25)},
				{seq: 4, fix: "KBOS", procedure: "ROBUC3", eta: at(40)},
			},
		},
		{
			uid: 2, callsign: "DAL2", phase: "enroute", dep: "KATL", dest: "KBOS", aircraftTyp: "B77W",
			route: []fakeFix{
				{seq: 1, fix: "MERIT", airway: "J60", eta: at(20)},
				{seq: 2, fix: "CAM", eta: at(30)},
				{seq: 3, fix: "KBOS", procedure: "ROBUC4", eta: at(70)},
			},
		},
		{
			// Passes MERIT twice; only the first crossing counts.
			uid: 3, callsign: "JBU3", phase: "enroute", dep: "KJFK", dest: "KBOS", aircraftTyp: "A320",
			route: []fakeFix{
				{seq: 1, fix: "MERIT", eta: at(35)},
				{seq: 2, fix: "HFD", eta: at(40)},
				{seq: 3, fix: "MERIT", eta: at(50)},
			},
		},
		{
			uid: 4, callsign: "AAL4", phase: "arrived", dep: "KDFW", dest: "KBOS",
			route: []fakeFix{{seq: 1, fix: "MERIT", eta: at(1)}},
		},
		{
			uid: 5, callsign: "SWA5", phase: "disconnected", dep: "KBWI", dest: "KBOS",
			route: []fakeFix{{seq: 1, fix: "MERIT", eta: at(2)}},
		},
		{
			uid: 6, callsign: "N6", phase: "enroute", dep: "KBED", dest: "KPVD", aircraftTyp: "C172",
			route: []fakeFix{{seq: 1, fix: "MERIT", eta: at(75)}},
		},
		{
			// Already on J48 and past GONZZ; comes back over LENDY later.
			uid: 7, callsign: "RPA7", phase: "enroute", dep: "KPHL", dest: "KEWR", aircraftTyp: "E175",
			route: []fakeFix{
				{seq: 1, fix: "LENDY", airway: "J48", eta: at(-10)},
				{seq: 2, fix: "GONZZ", airway: "J48", eta: at(-5)},
				{seq: 3, fix: "CAM", eta: at(20)},
				{seq: 4, fix: "LENDY", eta: at(30)},
			},
		},
	}}
}

func TestCountPerKind(t *testing.T) {
	sched := NewSchedule(testNow, 15, 1)

	tests := []struct {
		name     string
		spec     MonitorSpec
		expected []int
	}{
		{
			name:     "fix counts distinct flights at first crossing, ignores terminal phases and the horizon",
			spec:     MonitorSpec{Type: "fix", Fix: "MERIT"},
			expected: []int{1, 1, 1, 0},
		},
		{
			name:     "segment in either order, bucketed by entry",
			spec:     MonitorSpec{Type: "segment", From: "CAM", To: "MERIT"},
			expected: []int{1, 0, 1, 0},
		},
		{
			name:     "segment needs both endpoints",
			spec:     MonitorSpec{Type: "segment", From: "HFD", To: "GDM"},
			expected: []int{0, 0, 0, 0},
		},
		{
			name:     "airway buckets at earliest tagged crossing",
			spec:     MonitorSpec{Type: "airway", Airway: "J60"},
			expected: []int{1, 1, 0, 0},
		},
		{
			name:     "airway entered before now is not counted at a later crossing",
			spec:     MonitorSpec{Type: "airway", Airway: "J48"},
			expected: []int{0, 0, 0, 0},
		},
		{
			name:     "reversed segment keeps an exit crossed before now",
			spec:     MonitorSpec{Type: "segment", From: "CAM", To: "GONZZ"},
			expected: []int{0, 1, 0, 0},
		},
		{
			name:     "fix first crossed before now is not counted on a revisit",
			spec:     MonitorSpec{Type: "fix", Fix: "LENDY"},
			expected: []int{0, 0, 0, 0},
		},
		{
			name:     "airway segment needs both endpoints on the airway",
			spec:     MonitorSpec{Type: "airway_segment", Airway: "J60", From: "CAM", To: "MERIT"},
			expected: []int{1, 0, 0, 0},
		},
		{
			name: "via fix with arrival filter",
			spec: MonitorSpec{Type: "via_fix", Via: "MERIT",
				Filter: &LocationSpec{Type: "airport", Code: "KBOS", Direction: "arrival"}},
			expected: []int{1, 1, 1, 0},
		},
		{
			name: "three letter via token is a navaid fix",
			spec: MonitorSpec{Type: "via_fix", Via: "RBC",
				Filter: &LocationSpec{Type: "airport", Code: "KBOS"}},
			expected: []int{0, 0, 0, 0},
		},
		{
			name: "via full procedure",
			spec: MonitorSpec{Type: "via_fix", Via: "ROBUC3",
				Filter: &LocationSpec{Type: "airport", Code: "KBOS"}},
			expected: []int{0, 0, 1, 0},
		},
		{
			name: "via airway",
			spec: MonitorSpec{Type: "via_fix", Via: "J60", ViaType: "airway",
				Filter: &LocationSpec{Type: "airport", Code: "KBOS", Direction: "arrival"}},
			expected: []int{1, 1, 0, 0},
		},
		{
			name: "flight filter",
			spec: MonitorSpec{Type: "fix", Fix: "MERIT",
				FlightFilter: &FlightFilter{AircraftCategory: StringList{"HEAVY"}}},
			expected: []int{0, 1, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCounter(countFixture(), nil, nil)
			series, err := c.Count(context.Background(), mustMonitor(t, tt.spec), sched)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, series.Counts)

			sum := 0
			for _, n := range series.Counts {
				sum += n
			}
			assert.Equal(t, sum, series.Total)
		})
	}
}

func TestCountProcedureBase(t *testing.T) {
	store := &fakeStore{flights: []fakeFlight{
		{uid: 1, phase: "enroute", dest: "KBOS", route: []fakeFix{{seq: 1, fix: "SNFLD", procedure: "SNFLD3", eta: at(5)}}},
		{uid: 2, phase: "enroute", dest: "KBOS", route: []fakeFix{{seq: 1, fix: "SNFLD", procedure: "SNFLD4", eta: at(20)}}},
		{uid: 3, phase: "enroute", dest: "KBOS", route: []fakeFix{{seq: 1, fix: "SNFLD", procedure: "SNFLDX", eta: at(20)}}},
	}}
	c := NewCounter(store, nil, nil)
	m := mustMonitor(t, MonitorSpec{Type: "via_fix", Via: "SNFLD", Filter: &LocationSpec{Type: "airport", Code: "KBOS"}})

	series, err := c.Count(context.Background(), m, NewSchedule(testNow, 15, 1))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 0, 0}, series.Counts)
}

func TestViaBaseDemotedToKnownFix(t *testing.T) {
	store := &fakeStore{flights: []fakeFlight{
		{uid: 1, phase: "enroute", dest: "KBOS", route: []fakeFix{{seq: 1, fix: "BRDJE", eta: at(5)}}},
	}}
	ref := &fakeRef{fixes: map[string]Coordinate{"BRDJE": {Lat: 41, Lon: -73}}}
	m := mustMonitor(t, MonitorSpec{Type: "via_fix", Via: "BRDJE", Filter: &LocationSpec{Type: "airport", Code: "KBOS"}})

	withoutRef, err := NewCounter(store, nil, nil).Count(context.Background(), m, NewSchedule(testNow, 15, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, withoutRef.Total)

	withRef, err := NewCounter(store, ref, nil).Count(context.Background(), m, NewSchedule(testNow, 15, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, withRef.Total)
}

func TestViaNameUnknownToReferenceIsProcedureBase(t *testing.T) {
	store := &fakeStore{flights: []fakeFlight{
		{uid: 1, phase: "enroute", dest: "KBOS", route: []fakeFix{{seq: 1, fix: "KBOS", procedure: "ROBUC3", eta: at(5)}}},
		{uid: 2, phase: "enroute", dest: "KBOS", route: []fakeFix{{seq: 1, fix: "KBOS", procedure: "ROBUC4", eta: at(35)}}},
		{uid: 3, phase: "enroute", dest: "KBOS", route: []fakeFix{{seq: 1, fix: "MERIT", eta: at(20)}}},
	}}
	ref := &fakeRef{fixes: map[string]Coordinate{"MERIT": {Lat: 41.38, Lon: -73.14}}}
	sched := NewSchedule(testNow, 15, 1)
	kbos := &LocationSpec{Type: "airport", Code: "KBOS"}

	tests := []struct {
		name     string
		via      string
		ref      ReferenceGeometry
		expected []int
	}{
		{"unknown name queries procedures", "ROBUC", ref, []int{1, 0, 1, 0}},
		{"known name stays a fix", "MERIT", ref, []int{0, 1, 0, 0}},
		{"heuristic alone reads ROBUC as a fix", "ROBUC", nil, []int{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustMonitor(t, MonitorSpec{Type: "via_fix", Via: tt.via, Filter: kbos})
			series, err := NewCounter(store, tt.ref, nil).Count(context.Background(), m, sched)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, series.Counts)
		})
	}
}

func TestCountStoreFailure(t *testing.T) {
	store := &fakeStore{fail: func(CrossingQuery) error { return errors.New("connection reset") }}
	c := NewCounter(store, nil, nil)

	_, err := c.Count(context.Background(), mustMonitor(t, MonitorSpec{Type: "fix", Fix: "MERIT"}), NewSchedule(testNow, 15, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fix_MERIT")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestDetails(t *testing.T) {
	store := &fakeStore{flights: []fakeFlight{
		{
			// Entered the segment ten minutes ago and leaves in ten.
			uid: 1, callsign: "UAL1", phase: "enroute", dest: "KBOS",
			route: []fakeFix{{seq: 1, fix: "CAM", eta: at(-10)}, {seq: 2, fix: "GDM", eta: at(10)}},
		},
		{
			// Already through the segment.
			uid: 2, callsign: "DAL2", phase: "enroute", dest: "KBOS",
			route: []fakeFix{{seq: 1, fix: "CAM", eta: at(-30)}, {seq: 2, fix: "GDM", eta: at(-5)}},
		},
		{
			uid: 3, callsign: "JBU3", phase: "enroute", dest: "KBOS",
			route: []fakeFix{{seq: 1, fix: "CAM", eta: at(20)}, {seq: 2, fix: "GDM", eta: at(45)}},
		},
		{
			// Beyond the look-ahead.
			uid: 4, callsign: "AAL4", phase: "enroute", dest: "KBOS",
			route: []fakeFix{{seq: 1, fix: "CAM", eta: at(90)}, {seq: 2, fix: "GDM", eta: at(100)}},
		},
	}}
	c := NewCounter(store, nil, nil)

	segment := mustMonitor(t, MonitorSpec{Type: "segment", From: "CAM", To: "GDM"})
	details, err := c.Details(context.Background(), segment, testNow, 60*time.Minute, 2*time.Hour)
	require.NoError(t, err)
	require.Len(t, details, 2)

	assert.Equal(t, "UAL1", details[0].Callsign)
	assert.Equal(t, StatusInSegment, details[0].PositionStatus)
	assert.Equal(t, -10, details[0].MinutesUntil)
	require.NotNil(t, details[0].ExitTime)
	assert.Equal(t, at(10), *details[0].ExitTime)

	assert.Equal(t, "JBU3", details[1].Callsign)
	assert.Equal(t, StatusApproaching, details[1].PositionStatus)
	assert.Equal(t, 20, details[1].MinutesUntil)

	fix := mustMonitor(t, MonitorSpec{Type: "fix", Fix: "GDM"})
	details, err = c.Details(context.Background(), fix, testNow, 60*time.Minute, 2*time.Hour)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "UAL1", details[0].Callsign)
	assert.Empty(t, details[0].PositionStatus)
	assert.Nil(t, details[0].ExitTime)
}
