// Package vigencia decides whether a state-issued circulation certificate
// (tarjeta de circulación) is valid on a given date.
//
// Each of the 32 jurisdictions follows one validity Model with typed Params.
// Jurisdiction-specific deviations are declared as Override records
// (jurisdiction, condition, effect) in overrides.go; the Engine never branches
// on a state name.
//
// Domain purity: no I/O and no time.Now(). The query date is always a
// parameter, so Evaluate is a pure function of its inputs.
package vigencia

import (
	"time"

	"expediente/internal/expediente/models"
)

// Model is the renewal model a jurisdiction applies to its certificates.
type Model string

const (
	ModelAnnual         Model = "ANNUAL"
	ModelBiennial       Model = "BIENNIAL"
	ModelTriennial      Model = "TRIENNIAL"
	ModelIndefinite     Model = "INDEFINITE"
	ModelTemporalChange Model = "TEMPORAL_CHANGE"
	ModelNoTemporal     Model = "NO_TEMPORAL"
)

// Params are the per-model parameters of a Rule. Only the fields relevant to
// the rule's Model are read.
type Params struct {
	// PeriodDays is the BIENNIAL window, inclusive.
	PeriodDays int
	// PeriodYears is the TRIENNIAL window.
	PeriodYears int
	// Change describes a TEMPORAL_CHANGE cutover.
	Change *ModelChange
}

// ModelChange switches models at Cutover. Documents expedited before Cutover
// follow Before; the rest follow After. Before and After use their default
// params.
type ModelChange struct {
	Cutover time.Time
	Before  Model
	After   Model
}

// Facts are the certificate attributes the rules read.
type Facts struct {
	State       string
	Expedition  *time.Time
	VehicleYear *int
	PlatesDate  *time.Time
}

// FactsFrom extracts Facts from a normalized certificate.
func FactsFrom(doc models.NormalizedDocument) Facts {
	f := Facts{}
	if doc.Vehicle != nil {
		f.VehicleYear = doc.Vehicle.Year
	}
	if c := doc.Certificate; c != nil {
		f.State = models.Str(c.State)
		f.Expedition = c.ExpeditionDate
		f.PlatesDate = c.PlatesDate
	}
	return f
}

// Verdict is the engine's answer for one certificate at one query date.
//
// Valid is nil when the answer is indeterminate. Expiration is the last valid
// day, nil when the certificate is not time-bounded.
type Verdict struct {
	Valid            *bool      `json:"vigente"`
	Expiration       *time.Time `json:"vencimiento"`
	Reason           string     `json:"razon"`
	Model            Model      `json:"modelo"`
	EffectiveModel   Model      `json:"modelo_aplicado,omitempty"`
	DocumentationGap bool       `json:"hueco_documental"`
	RequiresRefrendo bool       `json:"requiere_refrendo"`
	State            string     `json:"estado"`
	Notes            []string   `json:"notas,omitempty"`
}

// IsValid reports a definite positive verdict.
func (v Verdict) IsValid() bool { return v.Valid != nil && *v.Valid }

// IsExpired reports a definite negative verdict.
func (v Verdict) IsExpired() bool { return v.Valid != nil && !*v.Valid }

// IsIndeterminate reports a nil verdict.
func (v Verdict) IsIndeterminate() bool { return v.Valid == nil }

func boolPtr(b bool) *bool { return &b }

func timePtr(t time.Time) *time.Time { return &t }
