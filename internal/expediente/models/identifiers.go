package models

import (
	"regexp"
	"strings"
	"unicode"

	xstrings "expediente/pkg/platform/strings"
)

var (
	// Persona moral has 3 letters, persona física 4; then YYMMDD and a
	// 3-character homoclave.
	rfcPattern = regexp.MustCompile(`^[A-ZÑ&]{3,4}[0-9]{6}[A-Z0-9]{3}$`)
	vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)
)

// NormalizeRFC upper-cases an RFC and drops separators. Ñ and & are part of
// the alphabet and are kept.
func NormalizeRFC(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		if r == 'Ñ' || r == '&' || unicode.IsDigit(r) || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidRFC reports whether s is a well-formed normalized RFC.
func ValidRFC(s string) bool {
	return rfcPattern.MatchString(s)
}

// NormalizeVIN upper-cases a VIN and drops separators.
func NormalizeVIN(s string) string {
	return xstrings.Compact(s)
}

// ValidVIN reports whether s is a 17-character VIN without I, O or Q.
func ValidVIN(s string) bool {
	return vinPattern.MatchString(s)
}
