package strings

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripAccents removes combining marks ("Querétaro" -> "Queretaro"). The Ñ
// decomposes to N + tilde and is folded to N as well.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold is the comparison key for free text coming out of OCR: accents
// stripped, upper-cased, every run of non-alphanumerics collapsed to a single
// space, trimmed.
func Fold(s string) string {
	s = strings.ToUpper(StripAccents(s))
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// Tokens splits the folded form of s into words.
func Tokens(s string) []string {
	folded := Fold(s)
	if folded == "" {
		return nil
	}
	return strings.Fields(folded)
}

// Compact folds s and drops every separator ("abc-010101 aaa" ->
// "ABC010101AAA"). Used for identifiers such as RFC, VIN and folios.
func Compact(s string) string {
	return strings.ReplaceAll(Fold(s), " ", "")
}
