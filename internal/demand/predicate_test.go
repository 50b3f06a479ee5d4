package demand

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func column(f Field) string { return "f." + string(f) }

func TestPredicateMatch(t *testing.T) {
	ual := fakeFlight{callsign: "UAL123", airline: "UAL", aircraftTyp: "B738", dep: "KORD", dest: "KBOS"}
	dal := fakeFlight{callsign: "DAL9", aircraftTyp: "B77W", dep: "KATL", dest: "KJFK"}
	ga := fakeFlight{callsign: "N123AB", aircraftTyp: "C172", dep: "KBED", dest: "KBOS"}
	unknown := fakeFlight{callsign: "XYZ1"}

	tests := []struct {
		name     string
		filter   *FlightFilter
		expected map[string]bool
	}{
		{
			name:     "no filter",
			filter:   nil,
			expected: map[string]bool{"UAL123": true, "DAL9": true, "N123AB": true, "XYZ1": true},
		},
		{
			name:     "airline by code or callsign prefix",
			filter:   &FlightFilter{Airline: StringList{"ual", "DAL"}},
			expected: map[string]bool{"UAL123": true, "DAL9": true, "N123AB": false, "XYZ1": false},
		},
		{
			name:     "heavy",
			filter:   &FlightFilter{AircraftCategory: StringList{"HEAVY"}},
			expected: map[string]bool{"UAL123": false, "DAL9": true, "N123AB": false, "XYZ1": false},
		},
		{
			name:     "small is the complement and includes unknown types",
			filter:   &FlightFilter{AircraftCategory: StringList{"SMALL"}},
			expected: map[string]bool{"UAL123": false, "DAL9": false, "N123AB": true, "XYZ1": true},
		},
		{
			name:     "categories are OR-ed",
			filter:   &FlightFilter{AircraftCategory: StringList{"HEAVY", "LARGE"}},
			expected: map[string]bool{"UAL123": true, "DAL9": true, "N123AB": false, "XYZ1": false},
		},
		{
			name:     "keys are AND-ed",
			filter:   &FlightFilter{Destination: StringList{"KBOS"}, AircraftType: StringList{"B738"}},
			expected: map[string]bool{"UAL123": true, "DAL9": false, "N123AB": false, "XYZ1": false},
		},
		{
			name:     "origin list",
			filter:   &FlightFilter{Origin: StringList{"KATL", "KBED"}},
			expected: map[string]bool{"UAL123": false, "DAL9": true, "N123AB": true, "XYZ1": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.filter.normalize()
			require.NoError(t, err)
			p := f.Predicate()
			for _, fl := range []fakeFlight{ual, dal, ga, unknown} {
				assert.Equal(t, tt.expected[fl.callsign], p.Match(fl), fl.callsign)
			}
		})
	}
}

func TestPredicateRender(t *testing.T) {
	tests := []struct {
		name     string
		pred     Predicate
		sql      string
		argCount int
	}{
		{"true", True(), "TRUE", 0},
		{"empty and", And(), "TRUE", 0},
		{"empty or", Or(), "FALSE", 0},
		{"eq", Eq(FieldDestination, "kbos"), "f.destination = ?", 1},
		{"in", In(FieldAircraftType, "B738", "A320"), "f.aircraft_type = ANY(?)", 1},
		{"not in", NotIn(FieldAircraftType, "B738"), "NOT (f.aircraft_type = ANY(?))", 1},
		{"prefix", HasPrefix(FieldCallsign, "UAL"), "f.callsign LIKE ?", 1},
		{"and drops true", And(True(), Eq(FieldDeparture, "KORD")), "f.departure = ?", 1},
		{
			"nested",
			And(Eq(FieldDeparture, "KORD"), Or(Eq(FieldAirline, "UAL"), HasPrefix(FieldCallsign, "UAL"))),
			"(f.departure = ? AND (f.airline = ? OR f.callsign LIKE ?))",
			3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.pred.Render(column)
			assert.Equal(t, tt.sql, sql)
			assert.Len(t, args, tt.argCount)
		})
	}
}

func TestPrefixRenderEscapesWildcards(t *testing.T) {
	_, args := HasPrefix(FieldCallsign, "A_B%").Render(column)
	require.Len(t, args, 1)
	assert.Equal(t, `A\_B\%%`, args[0])
}

func TestFlightFilterDecoding(t *testing.T) {
	var f FlightFilter
	err := json.Unmarshal([]byte(`{"airline":"ual","aircraft_type":["b738","B738","a320"],"unknown_key":1}`), &f)
	require.NoError(t, err)

	n, err := f.normalize()
	require.NoError(t, err)
	assert.Equal(t, StringList{"UAL"}, n.Airline)
	assert.Equal(t, StringList{"A320", "B738"}, n.AircraftType)
	assert.Equal(t, "aircraft_type=A320,B738;airline=UAL", n.canonical())
}

func TestFlightFilterRejectsUnknownCategory(t *testing.T) {
	_, err := (&FlightFilter{AircraftCategory: StringList{"jumbo"}}).normalize()
	assert.ErrorContains(t, err, "JUMBO")
}

func TestFlightFilterRejectsSeparatorsInValues(t *testing.T) {
	tests := []struct {
		name   string
		filter FlightFilter
		want   string
	}{
		{"comma in airline", FlightFilter{Airline: StringList{"A,B"}}, `invalid airline value "A,B"`},
		{"semicolon in origin", FlightFilter{Origin: StringList{"KBOS;airline=UAL"}}, "invalid origin value"},
		{"equals in destination", FlightFilter{Destination: StringList{"K=BOS"}}, "invalid destination value"},
		{"overlong type", FlightFilter{AircraftType: StringList{"B737MAX800"}}, "invalid aircraft_type value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.filter.normalize()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestFlightFilterCanonicalDistinguishesLists(t *testing.T) {
	split, err := (&FlightFilter{Airline: StringList{"A", "B"}}).normalize()
	require.NoError(t, err)
	single, err := (&FlightFilter{Airline: StringList{"AB"}}).normalize()
	require.NoError(t, err)
	assert.NotEqual(t, split.canonical(), single.canonical())
	assert.Equal(t, "airline=A,B", split.canonical())
}

func TestEmptyFlightFilterNormalizesToNil(t *testing.T) {
	n, err := (&FlightFilter{Airline: StringList{" "}}).normalize()
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryHeavy, CategoryOf("b77w"))
	assert.Equal(t, CategoryLarge, CategoryOf("A320"))
	assert.Equal(t, CategorySmall, CategoryOf("C172"))
	assert.Equal(t, CategorySmall, CategoryOf(""))
}
