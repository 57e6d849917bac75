package coverage

import (
	"fmt"

	"expediente/internal/expediente/models"
	"expediente/pkg/platform/dates"
	xstrings "expediente/pkg/platform/strings"
)

const (
	nameSimilarityMin  = 0.7
	expeditionSlackDay = 30
)

// CrossValidation lists contradictions between the chain and the
// certificates.
type CrossValidation struct {
	Consistent      bool                   `json:"consistent"`
	Inconsistencies []models.Inconsistency `json:"inconsistencies"`
}

// Cross compares every certificate with the ownership chain: holder name,
// VIN, and expedition date against the holder's acquisition and release.
func Cross(in Input) CrossValidation {
	out := CrossValidation{Inconsistencies: []models.Inconsistency{}}
	certs := certificates(in.Documents)
	if len(certs) == 0 {
		out.Consistent = true
		return out
	}

	placed := models.PlacedLinks(in.Chain)
	chainRFCs := models.ChainRFCs(in.Chain)
	chainVIN := ""
	for _, l := range placed {
		if v := models.Str(l.Document.VIN); v != "" {
			chainVIN = v
			break
		}
	}
	owners := make(map[string]OwnerInterval)
	for _, o := range OwnerTimeline(in.Chain) {
		owners[o.RFC] = o
	}
	names := receptorNames(placed)

	firstCertVIN, firstCertID := "", ""
	for _, d := range certs {
		rfc := d.OwnerRFC()
		add := func(t models.InconsistencyType, sev models.Severity, desc string) *models.Inconsistency {
			out.Inconsistencies = append(out.Inconsistencies, models.Inconsistency{
				Type: t, Severity: sev, RFC: rfc, DocumentIDs: []string{d.ID}, Description: desc,
			})
			return &out.Inconsistencies[len(out.Inconsistencies)-1]
		}

		if vin := models.Str(d.VIN); vin != "" {
			switch {
			case chainVIN != "" && vin != chainVIN:
				add(models.InconsistencyVINMismatch, models.SeverityCritical,
					fmt.Sprintf("la tarjeta %s tiene VIN %s y la cadena %s", d.ID, vin, chainVIN))
			case firstCertVIN == "":
				firstCertVIN, firstCertID = vin, d.ID
			case vin != firstCertVIN:
				inc := add(models.InconsistencyVINMismatch, models.SeverityCritical,
					fmt.Sprintf("las tarjetas %s y %s tienen VIN distinto", firstCertID, d.ID))
				inc.DocumentIDs = []string{firstCertID, d.ID}
			}
		}

		if rfc == "" {
			continue
		}
		if !chainRFCs[rfc] {
			add(models.InconsistencyRFCOutsideChain, models.SeverityHigh,
				fmt.Sprintf("el titular %s de la tarjeta %s no aparece en la cadena de propiedad", rfc, d.ID))
			continue
		}

		certName := models.Str(d.Certificate.OwnerName)
		if chainName := names[rfc]; certName != "" && chainName != "" {
			if sim := xstrings.Similarity(certName, chainName); sim < nameSimilarityMin {
				inc := add(models.InconsistencyNameMismatch, models.SeverityMedium,
					fmt.Sprintf("el nombre %q de la tarjeta no coincide con %q", certName, chainName))
				inc.Similarity = &sim
			}
		}

		exp := d.Certificate.ExpeditionDate
		o, ok := owners[rfc]
		if exp == nil || !ok {
			continue
		}
		if exp.Before(o.From) {
			days := dates.DaysBetween(*exp, o.From)
			sev := models.SeverityLow
			if days > expeditionSlackDay {
				sev = models.SeverityHigh
			}
			inc := add(models.InconsistencyExpeditionBeforeOwner, sev,
				fmt.Sprintf("tarjeta expedida %d días antes de que %s adquiriera el vehículo", days, rfc))
			inc.Days = &days
		}
		if o.To != nil && exp.After(*o.To) {
			days := dates.DaysBetween(*o.To, *exp)
			sev := models.SeverityLow
			if days > expeditionSlackDay {
				sev = models.SeverityMedium
			}
			inc := add(models.InconsistencyExpeditionAfterOwner, sev,
				fmt.Sprintf("tarjeta expedida %d días después de que %s transfiriera el vehículo", days, rfc))
			inc.Days = &days
		}
	}
	out.Consistent = len(out.Inconsistencies) == 0
	return out
}

// receptorNames maps each receptor RFC to the first name the chain gives it.
func receptorNames(placed []models.OwnershipLink) map[string]string {
	out := make(map[string]string)
	for _, l := range placed {
		r, n := l.Document.Receptor(), models.Str(l.Document.ReceptorName)
		if r == "" || n == "" {
			continue
		}
		if _, ok := out[r]; !ok {
			out[r] = n
		}
	}
	return out
}
