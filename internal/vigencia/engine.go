package vigencia

import (
	"fmt"
	"time"

	"expediente/internal/expediente/models"
	"expediente/pkg/platform/dates"
)

// Engine evaluates certificates against the rules table and its overrides.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	rules     map[State]Rule
	ordered   []Rule
	overrides map[State][]Override
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the rules table.
func WithRules(rules []Rule) Option {
	return func(e *Engine) {
		e.ordered = SortedRules(rules)
		e.rules = make(map[State]Rule, len(rules))
		for _, r := range rules {
			e.rules[r.State] = r
		}
	}
}

// WithOverrides replaces the override list.
func WithOverrides(overrides []Override) Option {
	return func(e *Engine) {
		e.overrides = make(map[State][]Override)
		for _, o := range overrides {
			e.overrides[o.State] = append(e.overrides[o.State], o)
		}
	}
}

// NewEngine builds an engine over DefaultRules and DefaultOverrides.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	WithRules(DefaultRules())(e)
	WithOverrides(DefaultOverrides())(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the table sorted by state.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.ordered...)
}

// Resolve finds the rule for a free-text jurisdiction name.
func (e *Engine) Resolve(name string) (Rule, bool) {
	state, ok := ResolveState(name)
	if !ok {
		state = State(name)
	}
	r, ok := e.rules[state]
	return r, ok
}

// Overrides returns the deviations declared for a state.
func (e *Engine) Overrides(state State) []Override {
	return append([]Override(nil), e.overrides[state]...)
}

// Evaluate returns the verdict for a normalized certificate at asOf.
func (e *Engine) Evaluate(cert models.NormalizedDocument, asOf time.Time) Verdict {
	return e.EvaluateFacts(FactsFrom(cert), asOf)
}

// Expiration is the expiration the rules derive for a certificate, as seen on
// its expedition day. It is nil for certificates that are not time-bounded or
// cannot be evaluated.
func (e *Engine) Expiration(f Facts) *time.Time {
	if f.Expedition == nil {
		return nil
	}
	return e.EvaluateFacts(f, *f.Expedition).Expiration
}

// EvaluateFacts is Evaluate over already extracted facts.
func (e *Engine) EvaluateFacts(f Facts, asOf time.Time) Verdict {
	asOf = dates.Day(asOf)
	rule, ok := e.Resolve(f.State)
	if !ok {
		return Verdict{
			Reason:           fmt.Sprintf("entidad desconocida: %q", f.State),
			DocumentationGap: true,
			State:            f.State,
		}
	}

	v := Verdict{
		Model:            rule.Model,
		State:            string(rule.State),
		DocumentationGap: rule.DocumentationGap,
		RequiresRefrendo: rule.RequiresRefrendo,
	}
	if f.Expedition == nil {
		v.Reason = "fecha de expedición ausente o ilegible"
		return v
	}
	expedition := dates.Day(*f.Expedition)
	f.Expedition = &expedition

	v = applyModel(rule.Model, rule.Params, expedition, asOf, v)
	for _, o := range e.overrides[rule.State] {
		if o.When != nil && o.Effect != nil && o.When.Holds(f) {
			v = o.Effect.Apply(f, asOf, v)
		}
	}

	if asOf.Before(expedition) {
		v.Valid = nil
		v.Reason = fmt.Sprintf("fecha de consulta %s anterior a la expedición %s; %s",
			dates.Format(asOf), dates.Format(expedition), v.Reason)
	}
	return v
}

func applyModel(m Model, p Params, expedition, asOf time.Time, v Verdict) Verdict {
	switch m {
	case ModelAnnual:
		exp := dates.EndOfYear(expedition)
		v.Expiration = &exp
		v.Reason = fmt.Sprintf("modelo anual: vigente hasta el 31 de diciembre de %d", expedition.Year())
		return settle(v, asOf)

	case ModelBiennial:
		days := p.PeriodDays
		if days == 0 {
			days = biennialDays
		}
		exp := expedition.AddDate(0, 0, days)
		v.Expiration = &exp
		v.Reason = fmt.Sprintf("modelo bianual: %d días desde la expedición, hasta el %s", days, dates.Format(exp))
		return settle(v, asOf)

	case ModelTriennial:
		years := p.PeriodYears
		if years == 0 {
			years = triennialYears
		}
		exp := expedition.AddDate(years, 0, -1)
		v.Expiration = &exp
		v.Reason = fmt.Sprintf("modelo trianual: vigente hasta el %s", dates.Format(exp))
		return settle(v, asOf)

	case ModelIndefinite:
		v.Expiration = nil
		v.Valid = boolPtr(true)
		v.RequiresRefrendo = true
		v.Reason = "tarjeta sin vencimiento; sujeta al pago del refrendo anual, que no consta en el expediente"
		return v

	case ModelNoTemporal:
		v.Expiration = nil
		v.Valid = boolPtr(true)
		v.Reason = "vigencia por evento: la tarjeta se mantiene hasta un cambio de propietario, placas o baja"
		return v

	case ModelTemporalChange:
		c := p.Change
		if c == nil {
			v.Valid = nil
			v.DocumentationGap = true
			v.Reason = "cambio de modelo sin fecha de corte registrada"
			return v
		}
		sub := c.After
		if expedition.Before(c.Cutover) {
			sub = c.Before
		}
		v.EffectiveModel = sub
		v = applyModel(sub, defaultParams(sub), expedition, asOf, v)
		v.Reason = fmt.Sprintf("cambio de modelo el %s (%s a %s): %s",
			dates.Format(c.Cutover), c.Before, c.After, v.Reason)
		return v

	default:
		v.Valid = nil
		v.DocumentationGap = true
		v.Reason = fmt.Sprintf("modelo de vigencia no soportado: %s", m)
		return v
	}
}
