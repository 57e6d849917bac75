package vigencia

import (
	"fmt"
	"time"

	"expediente/pkg/platform/dates"
)

// Override is a documented jurisdiction-specific deviation from the base
// model: when When holds for a certificate of State, Effect rewrites the
// verdict the model produced.
type Override struct {
	State  State
	Name   string
	When   Condition
	Effect Effect
}

// Condition selects the certificates an Override applies to.
type Condition interface {
	Holds(f Facts) bool
}

// Effect rewrites a verdict. Implementations must not mutate v's slices.
type Effect interface {
	Apply(f Facts, asOf time.Time, v Verdict) Verdict
}

// Always matches every certificate.
type Always struct{}

func (Always) Holds(Facts) bool { return true }

// IssuedBefore matches certificates expedited strictly before Date.
type IssuedBefore struct{ Date time.Time }

func (c IssuedBefore) Holds(f Facts) bool {
	return f.Expedition != nil && dates.Day(*f.Expedition).Before(c.Date)
}

// IssuedOnOrAfter matches certificates expedited on or after Date.
type IssuedOnOrAfter struct{ Date time.Time }

func (c IssuedOnOrAfter) Holds(f Facts) bool {
	return f.Expedition != nil && !dates.Day(*f.Expedition).Before(c.Date)
}

// IssuedInYear matches certificates expedited during Year.
type IssuedInYear struct{ Year int }

func (c IssuedInYear) Holds(f Facts) bool {
	return f.Expedition != nil && f.Expedition.Year() == c.Year
}

// AgeTier is a renewal deadline for vehicles at least MinAge years old.
type AgeTier struct {
	MinAge   int
	Month    time.Month
	Day      int
	NextYear bool
}

func (t AgeTier) deadline(expeditionYear int) time.Time {
	y := expeditionYear
	if t.NextYear {
		y++
	}
	return dates.Date(y, t.Month, t.Day)
}

// AgeTieredDeadline moves the annual deadline according to the vehicle's age
// at expedition. Tiers must be sorted by ascending MinAge.
type AgeTieredDeadline struct {
	Tiers []AgeTier
}

func (e AgeTieredDeadline) Apply(f Facts, asOf time.Time, v Verdict) Verdict {
	if f.Expedition == nil || len(e.Tiers) == 0 {
		return v
	}
	if f.VehicleYear == nil {
		return withNote(v, "año modelo desconocido; se aplica el plazo general")
	}
	age := f.Expedition.Year() - *f.VehicleYear
	tier := e.Tiers[0]
	for _, t := range e.Tiers {
		if age >= t.MinAge {
			tier = t
		}
	}
	exp := tier.deadline(f.Expedition.Year())
	v.Expiration = &exp
	v.Reason = fmt.Sprintf("refrendo anual con plazo por antigüedad (%d años): vence el %s", age, dates.Format(exp))
	return settle(v, asOf)
}

// ExtendTo pushes the expiration to Until when it is later than the base one.
type ExtendTo struct {
	Until time.Time
	Basis string
}

func (e ExtendTo) Apply(_ Facts, asOf time.Time, v Verdict) Verdict {
	if v.Expiration != nil && !e.Until.After(*v.Expiration) {
		return v
	}
	until := e.Until
	v.Expiration = &until
	v.Reason = fmt.Sprintf("prórroga: %s, vigente hasta el %s", e.Basis, dates.Format(until))
	return settle(v, asOf)
}

// DualPlates bounds the card by the plates period: the certificate expires at
// the earlier of both.
type DualPlates struct {
	PlatesYears int
}

func (e DualPlates) Apply(f Facts, asOf time.Time, v Verdict) Verdict {
	if f.PlatesDate == nil {
		return withNote(v, "sin fecha de placas; se evalúa solo la tarjeta")
	}
	plates := dates.Day(*f.PlatesDate).AddDate(e.PlatesYears, 0, -1)
	if v.Expiration != nil && !plates.Before(*v.Expiration) {
		return withNote(v, fmt.Sprintf("placas vigentes hasta el %s", dates.Format(plates)))
	}
	v.Expiration = &plates
	v.Reason = fmt.Sprintf("placas con vigencia de %d años vencen antes que la tarjeta: %s", e.PlatesYears, dates.Format(plates))
	return settle(v, asOf)
}

// PermanentWithSticker treats the card as permanent; validity is carried by
// an annual sticker the engine cannot see.
type PermanentWithSticker struct{}

func (PermanentWithSticker) Apply(_ Facts, _ time.Time, v Verdict) Verdict {
	v.Expiration = nil
	v.Valid = boolPtr(true)
	v.RequiresRefrendo = true
	v.Reason = "tarjeta permanente; la vigencia la acredita el engomado anual"
	return v
}

// Revision is one dated change to a jurisdiction's published text.
type Revision struct {
	Date time.Time
	Text string
}

// RevisionHistory attaches the revisions in force at asOf as notes. It never
// changes the decision.
type RevisionHistory struct {
	Revisions []Revision
}

func (e RevisionHistory) Apply(_ Facts, asOf time.Time, v Verdict) Verdict {
	for _, r := range e.Revisions {
		if r.Date.After(asOf) {
			continue
		}
		v = withNote(v, fmt.Sprintf("%s: %s", dates.Format(r.Date), r.Text))
	}
	return v
}

// Decree extends the certificates of FiscalYear up to ExtendsTo, from
// Published on.
type Decree struct {
	Name       string
	FiscalYear int
	Published  time.Time
	ExtendsTo  time.Time
}

// Decrees applies the latest-reaching decree that is in force at asOf and
// whose extension has not passed. With none applicable the base rule stands.
type Decrees struct {
	Decrees []Decree
}

func (e Decrees) Apply(f Facts, asOf time.Time, v Verdict) Verdict {
	if f.Expedition == nil {
		return v
	}
	var picked *Decree
	for i := range e.Decrees {
		d := e.Decrees[i]
		if d.FiscalYear != f.Expedition.Year() || asOf.Before(d.Published) || asOf.After(d.ExtendsTo) {
			continue
		}
		if picked == nil || d.ExtendsTo.After(picked.ExtendsTo) {
			picked = &d
		}
	}
	if picked == nil {
		return v
	}
	until := picked.ExtendsTo
	v.Expiration = &until
	v.Valid = boolPtr(true)
	v.Reason = fmt.Sprintf("%s: vigencia del ejercicio %d prorrogada hasta el %s", picked.Name, picked.FiscalYear, dates.Format(until))
	return v
}

// MassReissuance invalidates pre-cutover certificates once the exchange
// window closes.
type MassReissuance struct {
	WindowEnd time.Time
	Basis     string
}

func (e MassReissuance) Apply(_ Facts, asOf time.Time, v Verdict) Verdict {
	end := e.WindowEnd
	v.Expiration = &end
	v.Reason = fmt.Sprintf("%s: las tarjetas anteriores debían canjearse a más tardar el %s", e.Basis, dates.Format(end))
	return settle(v, asOf)
}

// Unresolved marks the decision as indeterminate because the jurisdiction's
// rules are ambiguous.
type Unresolved struct {
	Reason string
}

func (e Unresolved) Apply(_ Facts, _ time.Time, v Verdict) Verdict {
	v.Valid = nil
	v.Expiration = nil
	v.DocumentationGap = true
	v.Reason = e.Reason
	return v
}

// DefaultOverrides lists every documented deviation, in application order.
func DefaultOverrides() []Override {
	return []Override{
		{
			State: NuevoLeon,
			Name:  "plazo por antigüedad",
			When:  Always{},
			Effect: AgeTieredDeadline{Tiers: []AgeTier{
				{MinAge: 0, Month: time.December, Day: 31},
				{MinAge: 10, Month: time.March, Day: 31, NextYear: true},
				{MinAge: 20, Month: time.June, Day: 30, NextYear: true},
			}},
		},
		{
			State:  Sonora,
			Name:   "prórroga 2020",
			When:   IssuedInYear{Year: 2020},
			Effect: ExtendTo{Until: dates.Date(2021, time.June, 30), Basis: "decreto de prórroga de revalidación 2020"},
		},
		{
			State:  Puebla,
			Name:   "tarjeta y placas",
			When:   Always{},
			Effect: DualPlates{PlatesYears: 5},
		},
		{
			State:  QuintanaRoo,
			Name:   "engomado anual",
			When:   Always{},
			Effect: PermanentWithSticker{},
		},
		{
			State: EstadoDeMexico,
			Name:  "historial de redacción",
			When:  Always{},
			Effect: RevisionHistory{Revisions: []Revision{
				{Date: dates.Date(2015, time.January, 1), Text: "tarjeta de circulación sin vigencia impresa"},
				{Date: dates.Date(2019, time.January, 1), Text: "refrendo anual obligatorio para conservar la tarjeta"},
				{Date: dates.Date(2022, time.January, 1), Text: "tarjeta digital equivalente a la impresa"},
			}},
		},
		{
			State: Jalisco,
			Name:  "decretos de prórroga",
			When:  IssuedOnOrAfter{Date: dates.Date(2021, time.January, 1)},
			Effect: Decrees{Decrees: []Decree{
				{Name: "decreto 28501", FiscalYear: 2021, Published: dates.Date(2021, time.December, 15), ExtendsTo: dates.Date(2022, time.March, 31)},
				{Name: "decreto 28812", FiscalYear: 2022, Published: dates.Date(2022, time.December, 20), ExtendsTo: dates.Date(2023, time.February, 28)},
				{Name: "decreto 29040", FiscalYear: 2022, Published: dates.Date(2023, time.February, 20), ExtendsTo: dates.Date(2023, time.April, 30)},
			}},
		},
		{
			State:  Oaxaca,
			Name:   "reemplacamiento general",
			When:   IssuedBefore{Date: dates.Date(2022, time.January, 1)},
			Effect: MassReissuance{WindowEnd: dates.Date(2023, time.June, 30), Basis: "programa de reemplacamiento 2022"},
		},
		{
			State:  Tabasco,
			Name:   "clasificación ambigua",
			When:   Always{},
			Effect: Unresolved{Reason: "la normativa publicada no define si la tarjeta es permanente o de renovación periódica"},
		},
	}
}

// settle recomputes Valid from Expiration.
func settle(v Verdict, asOf time.Time) Verdict {
	if v.Expiration == nil {
		v.Valid = boolPtr(true)
		return v
	}
	v.Valid = boolPtr(!asOf.After(*v.Expiration))
	return v
}

func withNote(v Verdict, note string) Verdict {
	notes := make([]string, 0, len(v.Notes)+1)
	v.Notes = append(append(notes, v.Notes...), note)
	return v
}
