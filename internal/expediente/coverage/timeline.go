// Package coverage correlates ownership periods with certificate validity
// periods and cross-checks identities across document families.
package coverage

import (
	"fmt"
	"sort"
	"time"

	"expediente/internal/expediente/models"
	"expediente/pkg/platform/dates"
)

// OwnerInterval is the half-open period [From, To) an RFC held the vehicle.
// To is nil for the current holder.
type OwnerInterval struct {
	RFC         string     `json:"rfc"`
	Name        string     `json:"nombre,omitempty"`
	From        time.Time  `json:"desde"`
	To          *time.Time `json:"hasta"`
	Current     bool       `json:"actual"`
	DocumentIDs []string   `json:"documentIds"`
}

// CertificateInterval is the period a certificate covered, [From, To)
// where To is the day after its last valid day. To is nil when the
// certificate is not time-bounded.
type CertificateInterval struct {
	DocumentID string
	RFC        string
	From       time.Time
	To         *time.Time
}

// OwnerTimeline derives one interval per distinct receptor RFC of the placed
// chain: from its first acquisition to its last release. The current holder
// stays open.
func OwnerTimeline(chain []models.OwnershipLink) []OwnerInterval {
	placed := models.PlacedLinks(chain)
	current := models.CurrentHolder(chain)

	index := make(map[string]int)
	var out []OwnerInterval
	for i, l := range placed {
		d := l.Document
		r := d.Receptor()
		if r == "" || d.Date == nil {
			continue
		}
		if _, ok := index[r]; !ok {
			index[r] = len(out)
			out = append(out, OwnerInterval{RFC: r, Name: models.Str(d.ReceptorName), From: *d.Date, Current: r == current})
		}
		iv := &out[index[r]]
		iv.DocumentIDs = append(iv.DocumentIDs, d.ID)
		if r != current && i+1 < len(placed) {
			// Held at least until the next movement of the chain.
			if next := placed[i+1].Document.Date; next != nil && (iv.To == nil || next.After(*iv.To)) {
				to := *next
				iv.To = &to
			}
		}
	}
	for _, l := range placed {
		d := l.Document
		idx, ok := index[d.Emisor()]
		if !ok || d.Date == nil || out[idx].Current {
			continue
		}
		iv := &out[idx]
		if d.Date.Before(iv.From) {
			continue
		}
		if iv.To == nil || d.Date.After(*iv.To) {
			to := *d.Date
			iv.To = &to
		}
		iv.DocumentIDs = appendUnique(iv.DocumentIDs, d.ID)
	}
	return out
}

// CoverageGaps raises one PROPIETARIO_SIN_TARJETA_VIGENTE gap per owner
// interval not fully covered by the union of that RFC's certificate
// intervals. Open owner intervals are closed at asOf, inclusive.
func CoverageGaps(owners []OwnerInterval, certs []CertificateInterval, asOf time.Time) []models.Gap {
	byRFC := make(map[string][]CertificateInterval)
	for _, c := range certs {
		byRFC[c.RFC] = append(byRFC[c.RFC], c)
	}

	gaps := []models.Gap{}
	for _, o := range owners {
		end := dates.Day(asOf).AddDate(0, 0, 1)
		if o.To != nil {
			end = dates.Day(*o.To)
		}
		start := dates.Day(o.From)
		if !start.Before(end) {
			continue
		}
		uncovered, ok := firstUncovered(start, end, byRFC[o.RFC])
		if ok {
			continue
		}
		sev := models.SeverityMedium
		if o.Current {
			sev = models.SeverityHigh
		}
		ids := append([]string(nil), o.DocumentIDs...)
		for _, c := range byRFC[o.RFC] {
			ids = append(ids, c.DocumentID)
		}
		gaps = append(gaps, models.Gap{
			Kind:        models.GapCoverage,
			Code:        models.CodeOwnerWithoutCertificate,
			Severity:    sev,
			DocumentIDs: ids,
			RFCs:        []string{o.RFC},
			Description: fmt.Sprintf("%s fue propietario del %s al %s sin tarjeta de circulación vigente a partir del %s",
				o.RFC, dates.Format(start), dates.Format(end.AddDate(0, 0, -1)), dates.Format(uncovered)),
		})
	}
	return gaps
}

// firstUncovered sweeps the certificate intervals over [start, end). ok is
// true when the union covers it; otherwise uncovered is the first day left
// without a certificate.
func firstUncovered(start, end time.Time, certs []CertificateInterval) (uncovered time.Time, ok bool) {
	sorted := append([]CertificateInterval(nil), certs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From.Before(sorted[j].From) })

	cursor := start
	for _, c := range sorted {
		if c.From.After(cursor) {
			break
		}
		if c.To == nil {
			return time.Time{}, true
		}
		if c.To.After(cursor) {
			cursor = *c.To
		}
		if !cursor.Before(end) {
			return time.Time{}, true
		}
	}
	if !cursor.Before(end) {
		return time.Time{}, true
	}
	return cursor, false
}

func appendUnique(ids []string, id string) []string {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}
