package demand

import (
	"regexp"
	"strings"
)

// Classification tells a via_fix monitor which query strategy to use for
// its token.
type Classification int

const (
	ClassFix Classification = iota
	ClassProcedureFull
	ClassProcedureBase
)

func (c Classification) String() string {
	switch c {
	case ClassProcedureFull:
		return "PROCEDURE_FULL"
	case ClassProcedureBase:
		return "PROCEDURE_BASE"
	default:
		return "FIX"
	}
}

var (
	procedureFullPattern = regexp.MustCompile(`^[A-Z]{3,}[0-9][A-Z]?$`)
	procedureBasePattern = regexp.MustCompile(`^[A-Z]{3,6}$`)
	airwayPattern        = regexp.MustCompile(`^[JVQTYLMABGR][0-9]+$`)
	anyAirwayPattern     = regexp.MustCompile(`^(J|V|Q|T|Y|A|UL|UA|UB|UM|UN|L|M|N|AR|G|B|W|R)[0-9]+$`)
)

// Classify decides whether token names a plain fix, a full procedure
// identifier such as SNFLD3, or a procedure base name such as SNFLD.
//
// Published five-letter fix names are pronounceable codes (MERIT),
// while procedure base names are usually vowel-stripped contractions of a
// fix or place (SNFLD). A letters-only token of 4-6 characters is a base
// when it carries at most one vowel. Three-letter tokens are navaid
// identifiers and stay fixes.
func Classify(token string) Classification {
	t := strings.ToUpper(strings.TrimSpace(token))
	if procedureFullPattern.MatchString(t) {
		return ClassProcedureFull
	}
	if procedureBasePattern.MatchString(t) && !airwayPattern.MatchString(t) &&
		len(t) > 3 && vowelCount(t) <= 1 {
		return ClassProcedureBase
	}
	return ClassFix
}

// ambiguousName reports whether token is a 3-6 letter name that could be
// either a fix or a procedure base.
func ambiguousName(token string) bool {
	t := strings.ToUpper(strings.TrimSpace(token))
	return procedureBasePattern.MatchString(t) && !airwayPattern.MatchString(t)
}

func vowelCount(t string) int {
	n := 0
	for _, r := range t {
		switch r {
		case 'A', 'E', 'I', 'O', 'U':
			n++
		}
	}
	return n
}

var airwayFamilies = []struct {
	pattern *regexp.Regexp
	family  string
}{
	{regexp.MustCompile(`^J[0-9]+$`), "JET"},
	{regexp.MustCompile(`^V[0-9]+$`), "VICTOR"},
	{regexp.MustCompile(`^Q[0-9]+$`), "RNAV_HIGH"},
	{regexp.MustCompile(`^[TG][0-9]+$`), "RNAV_LOW"},
	{regexp.MustCompile(`^Y[0-9]+$`), "RNAV"},
	{regexp.MustCompile(`^A[0-9]+$`), "OCEANIC"},
	{regexp.MustCompile(`^UL[0-9]+$`), "UPPER_EUROPEAN"},
	{regexp.MustCompile(`^U[A-Z][0-9]+$`), "UPPER_AIRWAY"},
	{regexp.MustCompile(`^[LMN][0-9]+$`), "EUROPEAN"},
	{regexp.MustCompile(`^B[0-9]+$`), "CONTROL_AREA"},
	{regexp.MustCompile(`^AR[0-9]+$`), "AREA_NAV"},
	{regexp.MustCompile(`^[A-Z]{1,2}[0-9]+$`), "AIRWAY"},
}

// DetectAirwayType names the route family an airway identifier belongs to.
func DetectAirwayType(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	for _, f := range airwayFamilies {
		if f.pattern.MatchString(n) {
			return f.family
		}
	}
	return "OTHER"
}

// IsAirwayIdentifier reports whether name looks like any published airway.
func IsAirwayIdentifier(name string) bool {
	return anyAirwayPattern.MatchString(strings.ToUpper(strings.TrimSpace(name)))
}
