package detect

import (
	"fmt"

	"expediente/internal/expediente/models"
	"expediente/pkg/platform/dates"
)

// IntegrityAnalysis lists data-quality findings. They are not failures; the
// chain is still built around them.
type IntegrityAnalysis struct {
	Valid  bool         `json:"valid"`
	Issues []models.Gap `json:"issues"`
}

// Integrity checks identifiers, dates and origin uniqueness.
func Integrity(in Input) IntegrityAnalysis {
	out := IntegrityAnalysis{Issues: []models.Gap{}}
	add := func(g models.Gap) { out.Issues = append(out.Issues, g) }

	for _, d := range in.Documents {
		if d.Kind.IsTransfer() {
			checkRFC(d, "emisor", d.Emisor(), add)
			checkRFC(d, "receptor", d.Receptor(), add)
		}
		if d.Kind == models.KindCertificate && d.OwnerRFC() != "" && !models.ValidRFC(d.OwnerRFC()) {
			add(gap(models.GapIntegrityInvalidRFC, models.SeverityMedium,
				fmt.Sprintf("RFC del propietario con formato inválido en %s: %s", d.ID, d.OwnerRFC()), d))
		}
		checkDate(d, in, add)
	}

	if len(in.Origins) > 1 {
		add(gap(models.GapIntegrityMultipleOrigins, models.SeverityHigh,
			fmt.Sprintf("%d facturas de origen (vehículo nuevo); se toma la más antigua, %s", len(in.Origins), in.Origins[0].ID),
			in.Origins...))
	}

	received := make(map[string]bool)
	for _, d := range transfers(in.Documents) {
		if d.Kind != models.KindReinvoice && d.Receptor() != "" {
			received[d.Receptor()] = true
		}
	}
	for _, d := range ofKind(in.Documents, models.KindReinvoice) {
		if e := d.Emisor(); e != "" && !received[e] {
			add(gap(models.GapIntegrityOrphanReinvoice, models.SeverityMedium,
				fmt.Sprintf("refactura %s emitida por %s sin documento previo que lo acredite como propietario", d.ID, e), d))
		}
	}

	out.Valid = true
	for _, g := range out.Issues {
		if g.Severity.Rank() >= models.SeverityHigh.Rank() {
			out.Valid = false
			break
		}
	}
	return out
}

func checkRFC(d models.NormalizedDocument, role, rfc string, add func(models.Gap)) {
	switch {
	case rfc == "":
		add(gap(models.GapIntegrityMissingRFC, models.SeverityHigh,
			fmt.Sprintf("%s sin RFC de %s", d.ID, role), d))
	case !models.ValidRFC(rfc):
		add(gap(models.GapIntegrityInvalidRFC, models.SeverityMedium,
			fmt.Sprintf("RFC de %s con formato inválido en %s: %s", role, d.ID, rfc), d))
	}
}

// checkDate flags dates in the future or before the vehicle could exist.
func checkDate(d models.NormalizedDocument, in Input, add func(models.Gap)) {
	if d.Date == nil {
		return
	}
	if !in.AsOf.IsZero() && d.Date.After(dates.Day(in.AsOf)) {
		add(gap(models.GapIntegrityImpossibleDate, models.SeverityHigh,
			fmt.Sprintf("%s tiene fecha futura %s", d.ID, dates.Format(*d.Date)), d))
		return
	}
	if d.Vehicle != nil && d.Vehicle.Year != nil && d.Date.Year() < *d.Vehicle.Year-1 {
		add(gap(models.GapIntegrityImpossibleDate, models.SeverityHigh,
			fmt.Sprintf("%s fechado en %d, antes del año modelo %d", d.ID, d.Date.Year(), *d.Vehicle.Year), d))
	}
}
