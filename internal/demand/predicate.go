package demand

import (
	"strings"
)

// Field names a flight attribute that predicates can test. Stores map each
// field onto their own columns or struct members.
type Field string

const (
	FieldCallsign          Field = "callsign"
	FieldAirline           Field = "airline"
	FieldAircraftType      Field = "aircraft_type"
	FieldDeparture         Field = "departure"
	FieldDestination       Field = "destination"
	FieldDepartureTracon   Field = "departure_tracon"
	FieldDestinationTracon Field = "destination_tracon"
	FieldDepartureARTCC    Field = "departure_artcc"
	FieldDestinationARTCC  Field = "destination_artcc"
)

// Record is anything that exposes flight attributes by field.
type Record interface {
	Attr(f Field) string
}

// ColumnFunc maps a field to the SQL expression a store uses for it.
type ColumnFunc func(f Field) string

// Predicate is a composable flight match criterion. It can be evaluated in
// memory or rendered as a parameterized SQL fragment using '?' placeholders.
type Predicate interface {
	Match(r Record) bool
	Render(col ColumnFunc) (string, []any)
}

type truePredicate struct{}

// True returns the identity predicate.
func True() Predicate { return truePredicate{} }

func (truePredicate) Match(Record) bool                 { return true }
func (truePredicate) Render(ColumnFunc) (string, []any) { return "TRUE", nil }

type eqPredicate struct {
	field Field
	value string
}

// Eq matches when the field equals value (case-insensitive).
func Eq(f Field, value string) Predicate {
	return eqPredicate{field: f, value: strings.ToUpper(value)}
}

func (p eqPredicate) Match(r Record) bool {
	return strings.ToUpper(r.Attr(p.field)) == p.value
}

func (p eqPredicate) Render(col ColumnFunc) (string, []any) {
	return col(p.field) + " = ?", []any{p.value}
}

type inPredicate struct {
	field  Field
	values []string
	negate bool
}

// In matches when the field equals any of values.
func In(f Field, values ...string) Predicate {
	return inPredicate{field: f, values: upperAll(values)}
}

// NotIn matches when the field equals none of values. An empty attribute
// counts as "none of values".
func NotIn(f Field, values ...string) Predicate {
	return inPredicate{field: f, values: upperAll(values), negate: true}
}

func (p inPredicate) Match(r Record) bool {
	v := strings.ToUpper(r.Attr(p.field))
	found := false
	for _, candidate := range p.values {
		if candidate == v {
			found = true
			break
		}
	}
	return found != p.negate
}

func (p inPredicate) Render(col ColumnFunc) (string, []any) {
	if p.negate {
		return "NOT (" + col(p.field) + " = ANY(?))", []any{p.values}
	}
	return col(p.field) + " = ANY(?)", []any{p.values}
}

type prefixPredicate struct {
	field  Field
	prefix string
}

// HasPrefix matches when the field starts with prefix.
func HasPrefix(f Field, prefix string) Predicate {
	return prefixPredicate{field: f, prefix: strings.ToUpper(prefix)}
}

func (p prefixPredicate) Match(r Record) bool {
	return strings.HasPrefix(strings.ToUpper(r.Attr(p.field)), p.prefix)
}

func (p prefixPredicate) Render(col ColumnFunc) (string, []any) {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(p.prefix)
	return col(p.field) + " LIKE ?", []any{escaped + "%"}
}

type junction struct {
	op    string
	terms []Predicate
}

// And is the conjunction of terms. With no terms it is True.
func And(terms ...Predicate) Predicate {
	return newJunction("AND", terms)
}

// Or is the disjunction of terms. With no terms it matches nothing.
func Or(terms ...Predicate) Predicate {
	return newJunction("OR", terms)
}

func newJunction(op string, terms []Predicate) Predicate {
	flat := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		if t == nil {
			continue
		}
		if _, ok := t.(truePredicate); ok && op == "AND" {
			continue
		}
		flat = append(flat, t)
	}
	if op == "AND" && len(flat) == 0 {
		return True()
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return junction{op: op, terms: flat}
}

func (j junction) Match(r Record) bool {
	if j.op == "AND" {
		for _, t := range j.terms {
			if !t.Match(r) {
				return false
			}
		}
		return true
	}
	for _, t := range j.terms {
		if t.Match(r) {
			return true
		}
	}
	return false
}

func (j junction) Render(col ColumnFunc) (string, []any) {
	if len(j.terms) == 0 {
		return "FALSE", nil
	}
	parts := make([]string, 0, len(j.terms))
	var args []any
	for _, t := range j.terms {
		sql, a := t.Render(col)
		parts = append(parts, sql)
		args = append(args, a...)
	}
	return "(" + strings.Join(parts, " "+j.op+" ") + ")", args
}

func upperAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToUpper(strings.TrimSpace(v)))
	}
	return out
}
