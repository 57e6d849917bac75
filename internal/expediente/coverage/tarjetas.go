package coverage

import (
	"sort"
	"time"

	"expediente/internal/expediente/models"
	"expediente/internal/vigencia"
	dErrors "expediente/pkg/domain-errors"
	"expediente/pkg/platform/dates"
	"expediente/pkg/platform/sentinel"
)

// Certificate statuses reported in the tarjetas analysis.
const (
	StatusValid         = "vigente"
	StatusExpired       = "vencida"
	StatusIndeterminate = "indeterminada"
	StatusCancelled     = "cancelada"
)

// Input is everything the coverage stage reads. Engine may be nil, in which
// case the default rules table is used.
type Input struct {
	Chain     []models.OwnershipLink
	Documents []models.NormalizedDocument
	AsOf      time.Time
	Engine    *vigencia.Engine
}

func (in Input) engine() *vigencia.Engine {
	if in.Engine == nil {
		return vigencia.NewEngine()
	}
	return in.Engine
}

// CertificateStatus is one certificate with its verdict at AsOf.
type CertificateStatus struct {
	DocumentID     string           `json:"documentId"`
	OwnerRFC       string           `json:"rfc"`
	OwnerName      string           `json:"nombre,omitempty"`
	State          string           `json:"estado"`
	Plate          string           `json:"placa,omitempty"`
	Expedition     *time.Time       `json:"expedicion"`
	Verdict        vigencia.Verdict `json:"vigencia"`
	Status         string           `json:"status"`
	Cancelled      bool             `json:"cancelada"`
	CancellationID string           `json:"bajaId,omitempty"`

	cancelledOn *time.Time
}

// TarjetasAnalysis is the per-certificate view plus the owner/certificate
// coverage check.
type TarjetasAnalysis struct {
	Total         int                 `json:"total"`
	Valid         int                 `json:"vigentes"`
	Expired       int                 `json:"vencidas"`
	Indeterminate int                 `json:"indeterminadas"`
	Cancelled     int                 `json:"canceladas"`
	Certificates  []CertificateStatus `json:"tarjetas"`
	Owners        []OwnerInterval     `json:"propietarios"`
	Gaps          []models.Gap        `json:"gaps"`
}

// Tarjetas evaluates every certificate and checks that each owner interval
// is covered by that owner's certificates. It returns sentinel.ErrNoInput
// when there are no certificates.
func Tarjetas(in Input) (TarjetasAnalysis, error) {
	certs := certificates(in.Documents)
	if len(certs) == 0 {
		return TarjetasAnalysis{}, dErrors.Wrap(sentinel.ErrNoInput, dErrors.CodeValidation, "no vehicle certificates")
	}
	engine := in.engine()
	cancellations := ofKind(in.Documents, models.KindCancellation)

	out := TarjetasAnalysis{Certificates: make([]CertificateStatus, 0, len(certs))}
	intervals := make([]CertificateInterval, 0, len(certs))
	for _, d := range certs {
		st := evaluate(engine, d, in.AsOf, cancellations)
		out.Certificates = append(out.Certificates, st)
		switch st.Status {
		case StatusValid:
			out.Valid++
		case StatusExpired:
			out.Expired++
		case StatusCancelled:
			out.Cancelled++
		default:
			out.Indeterminate++
		}
		if iv, ok := certificateInterval(st); ok {
			intervals = append(intervals, iv)
		}
	}
	out.Total = len(out.Certificates)
	out.Owners = OwnerTimeline(in.Chain)
	if out.Owners == nil {
		out.Owners = []OwnerInterval{}
	}
	out.Gaps = CoverageGaps(out.Owners, intervals, in.AsOf)
	return out, nil
}

func evaluate(engine *vigencia.Engine, d models.NormalizedDocument, asOf time.Time, cancellations []models.NormalizedDocument) CertificateStatus {
	c := d.Certificate
	st := CertificateStatus{
		DocumentID: d.ID,
		OwnerRFC:   d.OwnerRFC(),
		OwnerName:  models.Str(c.OwnerName),
		State:      models.Str(c.State),
		Plate:      models.Str(c.Plate),
		Expedition: c.ExpeditionDate,
		Verdict:    engine.Evaluate(d, asOf),
	}
	if c.ExpirationSource != nil && *c.ExpirationSource == models.ExpirationFromDocument && c.ExpirationDate != nil {
		// A printed expiration wins over the computed one, including when the
		// jurisdiction rule alone cannot decide.
		notYetIssued := c.ExpeditionDate != nil && dates.Day(asOf).Before(dates.Day(*c.ExpeditionDate))
		st.Verdict.Expiration = c.ExpirationDate
		if !notYetIssued {
			if st.Verdict.IsIndeterminate() {
				st.Verdict.Reason = "vencimiento impreso en la tarjeta"
			}
			valid := !dates.Day(asOf).After(dates.Day(*c.ExpirationDate))
			st.Verdict.Valid = &valid
		}
	}

	switch {
	case st.Verdict.IsValid():
		st.Status = StatusValid
	case st.Verdict.IsExpired():
		st.Status = StatusExpired
	default:
		st.Status = StatusIndeterminate
	}

	if cancel, ok := findCancellation(st, cancellations, asOf); ok {
		st.Cancelled = true
		st.CancellationID = cancel.ID
		st.cancelledOn = cancel.Date
		st.Status = StatusCancelled
	}
	return st
}

// findCancellation matches a baja to the certificate by plate, or by owner
// RFC when the certificate carries no plate. The baja must be dated between
// the expedition and asOf.
func findCancellation(st CertificateStatus, cancellations []models.NormalizedDocument, asOf time.Time) (models.NormalizedDocument, bool) {
	for _, b := range cancellations {
		if b.Cancellation == nil || b.Date == nil {
			continue
		}
		matches := false
		if st.Plate != "" {
			matches = models.Str(b.Cancellation.Plate) == st.Plate
		} else if st.OwnerRFC != "" {
			matches = models.Str(b.Cancellation.OwnerRFC) == st.OwnerRFC
		}
		if !matches || b.Date.After(asOf) {
			continue
		}
		if st.Expedition != nil && b.Date.Before(*st.Expedition) {
			continue
		}
		return b, true
	}
	return models.NormalizedDocument{}, false
}

// certificateInterval is [expedition, expiration+1d). Certificates with no
// known expiration are open-ended; a cancellation closes the interval on its
// date.
func certificateInterval(st CertificateStatus) (CertificateInterval, bool) {
	if st.Expedition == nil || st.OwnerRFC == "" {
		return CertificateInterval{}, false
	}
	iv := CertificateInterval{DocumentID: st.DocumentID, RFC: st.OwnerRFC, From: dates.Day(*st.Expedition)}
	if st.Verdict.Expiration != nil {
		to := dates.Day(*st.Verdict.Expiration).AddDate(0, 0, 1)
		iv.To = &to
	}
	if st.cancelledOn != nil {
		c := dates.Day(*st.cancelledOn)
		if iv.To == nil || c.Before(*iv.To) {
			iv.To = &c
		}
	}
	return iv, true
}

func certificates(docs []models.NormalizedDocument) []models.NormalizedDocument {
	out := make([]models.NormalizedDocument, 0)
	for _, d := range docs {
		if d.Kind == models.KindCertificate && d.Certificate != nil {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Certificate.ExpeditionDate, out[j].Certificate.ExpeditionDate
		if a == nil || b == nil {
			return a != nil
		}
		return a.Before(*b)
	})
	return out
}

func ofKind(docs []models.NormalizedDocument, kind models.DocumentKind) []models.NormalizedDocument {
	var out []models.NormalizedDocument
	for _, d := range docs {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
