package normalizer

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"expediente/pkg/platform/dates"
	xstrings "expediente/pkg/platform/strings"
)

// fields is an OCR bag keyed by folded field name, so "Año Modelo",
// "ano_modelo" and "AÑO-MODELO" are the same key.
type fields map[string]any

func foldKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(xstrings.Fold(k), " ", "_"))
}

// newFields folds every OCR key. When several raw keys fold to the same one,
// the first non-blank value in raw key order wins.
func newFields(ocr map[string]any) fields {
	f := make(fields, len(ocr))
	for _, k := range slices.Sorted(maps.Keys(ocr)) {
		key := foldKey(k)
		if key == "" {
			continue
		}
		if prev, dup := f[key]; dup && !isBlank(prev) {
			continue
		}
		f[key] = ocr[k]
	}
	return f
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// first returns the first non-blank value among keys, in priority order.
func (f fields) first(keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := f[k]; ok && !isBlank(v) {
			return v, true
		}
	}
	return nil, false
}

func (f fields) str(keys []string) *string {
	v, ok := f.first(keys)
	if !ok {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		s = t.String()
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		s = strings.TrimSpace(fmt.Sprint(t))
	}
	if s == "" {
		return nil
	}
	return &s
}

func (f fields) date(keys []string) *time.Time {
	for _, k := range keys {
		s := f.str([]string{k})
		if s == nil {
			continue
		}
		if t, ok := dates.Parse(*s); ok {
			return &t
		}
	}
	return nil
}

func (f fields) timestamp(keys []string) *time.Time {
	for _, k := range keys {
		s := f.str([]string{k})
		if s == nil {
			continue
		}
		if t, ok := dates.ParseTimestamp(*s); ok {
			return &t
		}
	}
	return nil
}

// amount parses monetary values such as "$ 1,234,500.00 MXN".
func (f fields) amount(keys []string) *float64 {
	v, ok := f.first(keys)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		x := float64(t)
		return &x
	case json.Number:
		if x, err := t.Float64(); err == nil {
			return &x
		}
		return nil
	}
	s := f.str(keys)
	if s == nil {
		return nil
	}
	var b strings.Builder
	for _, r := range *s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	x, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

// year accepts plain years and dates.
func (f fields) year(keys []string) *int {
	s := f.str(keys)
	if s == nil {
		return nil
	}
	if y, err := strconv.Atoi(*s); err == nil && y >= 1900 && y <= 2100 {
		return &y
	}
	if t, ok := dates.Parse(*s); ok {
		y := t.Year()
		return &y
	}
	return nil
}
