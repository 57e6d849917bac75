package strings

import "strings"

// UniqueKeys turns RFCs, VINs or plates into their identity form (trimmed,
// upper-cased) and drops blanks and repeats, keeping first-seen order. The
// result is never nil.
func UniqueKeys(values ...string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		k := strings.ToUpper(strings.TrimSpace(v))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
