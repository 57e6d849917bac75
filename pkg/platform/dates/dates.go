// Package dates parses the date strings found in OCR output and does
// calendar-day arithmetic. All returned values are midnight UTC so documents
// compare by calendar day regardless of the time of issuance.
package dates

import (
	"strconv"
	"strings"
	"time"
)

// dayFirstLayouts lists accepted formats. Mexican documents write dates day
// first, so 03/04/2022 is April 3rd.
var dayFirstLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02/01/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02-01-2006",
	"2/1/2006",
	"02.01.2006",
}

// spanishMonths maps full names and three-letter abbreviations, as printed on
// invoices and tarjetas ("17 de marzo de 2017", "17/MAR/2017").
var spanishMonths = map[string]time.Month{
	"enero": time.January, "ene": time.January,
	"febrero": time.February, "feb": time.February,
	"marzo": time.March, "mar": time.March,
	"abril": time.April, "abr": time.April,
	"mayo": time.May, "may": time.May,
	"junio": time.June, "jun": time.June,
	"julio": time.July, "jul": time.July,
	"agosto": time.August, "ago": time.August,
	"septiembre": time.September, "setiembre": time.September, "sep": time.September, "sept": time.September,
	"octubre": time.October, "oct": time.October,
	"noviembre": time.November, "nov": time.November,
	"diciembre": time.December, "dic": time.December,
}

// timestampLayouts keep the time of day; used for issuance timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// Parse returns the calendar day s denotes.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	return parseSpanish(s)
}

// parseSpanish reads day, month name and four-digit year, ignoring the
// connectives "de" and "del".
func parseSpanish(s string) (time.Time, bool) {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '/' || r == '-' || r == '.' || r == ','
	})
	parts := fields[:0]
	for _, f := range fields {
		if f != "de" && f != "del" {
			parts = append(parts, f)
		}
	}
	if len(parts) != 3 || len(parts[2]) != 4 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := spanishMonths[parts[1]]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}
	t := Date(year, month, day)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ParseTimestamp keeps the time of day when s carries one. Date-only values
// resolve to midnight.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return Parse(s)
}

// Day truncates t to midnight UTC of its own calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds midnight UTC for y-m-d.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween is the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// EndOfYear is December 31st of t's year.
func EndOfYear(t time.Time) time.Time {
	return Date(t.Year(), time.December, 31)
}

// Format renders a calendar day as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format("2006-01-02")
}
