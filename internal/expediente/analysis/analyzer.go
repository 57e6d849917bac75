// Package analysis is the top-level entry of the expediente engine: it
// normalizes the raw documents, builds the ownership chain and runs every
// sub-analysis over it.
//
// Analyze never fails as a whole except for structural preconditions (no
// files, no transfer documents, no origin invoice, VIN mismatch across
// transfers). Any other failure is confined to its sub-analysis, which is
// omitted from the result and listed in Metadata.Unavailable.
package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"expediente/internal/expediente/chain"
	"expediente/internal/expediente/coverage"
	"expediente/internal/expediente/detect"
	"expediente/internal/expediente/models"
	"expediente/internal/expediente/normalizer"
	"expediente/internal/expediente/summary"
	"expediente/internal/vigencia"
	dErrors "expediente/pkg/domain-errors"
	"expediente/pkg/platform/dates"
	"expediente/pkg/platform/sentinel"
)

// Sub-analysis names beyond the detector passes.
const (
	PassTarjetas = "tarjetas"
	PassCross    = "cross_validation"
	PassProperty = "property_validation"
	PassVigencia = "vigencia"
	PassSummary  = "executive_summary"
)

// Analyzer runs analyses. It holds no per-analysis state and is safe for
// concurrent use.
type Analyzer struct {
	engine     *vigencia.Engine
	normalizer *normalizer.Normalizer
	policy     chain.ReturnPolicy
	newID      func() string
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithEngine replaces the default vigencia engine.
func WithEngine(e *vigencia.Engine) AnalyzerOption {
	return func(a *Analyzer) {
		if e != nil {
			a.engine = e
		}
	}
}

// WithReturnPolicy sets the default return policy.
func WithReturnPolicy(p chain.ReturnPolicy) AnalyzerOption {
	return func(a *Analyzer) {
		a.policy = p
	}
}

// WithIDGenerator replaces uuid.NewString for analysis ids.
func WithIDGenerator(fn func() string) AnalyzerOption {
	return func(a *Analyzer) {
		if fn != nil {
			a.newID = fn
		}
	}
}

// NewAnalyzer builds an Analyzer over the default rules table.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		engine: vigencia.NewEngine(),
		policy: chain.AllowPingPong,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.normalizer = normalizer.New(a.engine)
	return a
}

// Engine exposes the rules engine the analyzer evaluates with.
func (a *Analyzer) Engine() *vigencia.Engine { return a.engine }

// Policy is the default return policy.
func (a *Analyzer) Policy() chain.ReturnPolicy { return a.policy }

// Analyze runs the whole pipeline. It is a pure function of req apart from
// the analysis id.
func (a *Analyzer) Analyze(req Request) *Result {
	asOf := dates.Day(req.AsOf)
	policy := req.ReturnPolicy
	if policy == "" {
		policy = a.policy
	}
	res := &Result{
		OwnershipChain: []models.OwnershipLink{},
		Metadata: Metadata{
			AnalysisID:      a.newID(),
			AsOf:            dates.Format(asOf),
			TotalFiles:      len(req.Files),
			DocumentsByKind: map[models.DocumentKind]int{},
			ReturnPolicy:    policy,
			Unavailable:     []string{},
		},
	}
	if len(req.Files) == 0 {
		return res.fail(dErrors.New(dErrors.CodeBadRequest, "no files to analyze"))
	}

	docs, skipped := a.normalizer.NormalizeAll(req.Files)
	res.Metadata.Skipped = skipped
	for _, d := range docs {
		res.Metadata.DocumentsByKind[d.Kind]++
	}

	transfers := make([]models.NormalizedDocument, 0, len(docs))
	for _, d := range docs {
		if d.Kind.IsTransfer() {
			transfers = append(transfers, d)
		}
	}
	if len(transfers) == 0 {
		return res.fail(dErrors.New(dErrors.CodeValidation, "no transfer documents (invoice, reinvoice, endorsement) found"))
	}
	vin, err := commonVIN(transfers)
	if err != nil {
		return res.fail(err)
	}
	res.VIN = vin

	origin, candidates, ok := chain.FindOrigin(transfers)
	res.Metadata.OriginCandidates = len(candidates)
	if !ok {
		return res.fail(dErrors.New(dErrors.CodeValidation, "no origin document: no invoice is marked as new"))
	}
	res.Success = true
	res.OriginDocument = &origin
	res.OwnershipChain = chain.NewBuilder(policy).Build(transfers, origin)

	report := detect.Run(detect.Input{
		Chain:     res.OwnershipChain,
		Documents: docs,
		Origins:   candidates,
		AsOf:      asOf,
	})
	res.SequenceAnalysis = track(res, report.Sequence).Get()
	res.IntegrityAnalysis = track(res, report.Integrity).Get()
	res.PatternDetection = track(res, report.Patterns).Get()
	res.TemporalAnalysis = track(res, report.Temporal).Get()
	res.DuplicateDetection = track(res, report.Duplicates).Get()

	cin := coverage.Input{Chain: res.OwnershipChain, Documents: docs, AsOf: asOf, Engine: a.engine}
	tarjetas := models.RunPass(PassTarjetas, func() (coverage.TarjetasAnalysis, error) { return coverage.Tarjetas(cin) })
	switch {
	case tarjetas.Available():
		t := tarjetas.Value
		res.TarjetasAnalysis = &t
		res.CrossValidation = track(res, models.RunPass(PassCross, func() (coverage.CrossValidation, error) {
			return coverage.Cross(cin), nil
		})).Get()
		res.PropertyValidation = track(res, models.RunPass(PassProperty, func() (coverage.PropertyValidation, error) {
			return coverage.Property(cin, t), nil
		})).Get()
		res.VigenciaAnalysis = track(res, models.RunPass(PassVigencia, func() (coverage.VigenciaAnalysis, error) {
			return coverage.Vigencia(cin, t), nil
		})).Get()
	case !errors.Is(tarjetas.Err, sentinel.ErrNoInput):
		track(res, tarjetas)
	}

	res.ExecutiveSummary = track(res, models.RunPass(PassSummary, func() (summary.Summary, error) {
		return summary.Summarize(res.summaryInput(report)), nil
	})).Get()
	return res
}

func (r *Result) fail(err error) *Result {
	r.Success = false
	r.Err = err
	r.Error = err.Error()
	return r
}

// track records a failed pass in metadata and passes the result through.
func track[T any](r *Result, p models.PassResult[T]) models.PassResult[T] {
	if !p.Available() {
		r.Metadata.Unavailable = append(r.Metadata.Unavailable, p.Pass)
		if r.passErrs == nil {
			r.passErrs = make(map[string]error)
		}
		r.passErrs[p.Pass] = p.Err
	}
	return p
}

func (r *Result) summaryInput(report detect.Report) summary.Input {
	in := summary.Input{Gaps: report.Findings()}
	if t := r.TarjetasAnalysis; t != nil {
		in.Gaps = append(in.Gaps, t.Gaps...)
		in.ExpiredCertificates = t.Expired
	}
	if c := r.CrossValidation; c != nil {
		in.Inconsistencies = c.Inconsistencies
	}
	if p := r.PropertyValidation; p != nil {
		without := p.OwnerWithoutValid
		in.CurrentOwnerWithoutValid = &without
	}
	return in
}

// commonVIN returns the VIN shared by the transfer documents. Documents
// without a VIN are ignored; two different VINs are a structural error.
func commonVIN(transfers []models.NormalizedDocument) (*string, error) {
	byVIN := make(map[string][]string)
	for _, d := range transfers {
		if v := models.Str(d.VIN); v != "" {
			byVIN[v] = append(byVIN[v], d.ID)
		}
	}
	switch len(byVIN) {
	case 0:
		return nil, nil
	case 1:
		for v := range byVIN {
			return models.Ptr(v), nil
		}
	}
	vins := make([]string, 0, len(byVIN))
	for v, ids := range byVIN {
		vins = append(vins, fmt.Sprintf("%s (%s)", v, strings.Join(ids, ", ")))
	}
	sort.Strings(vins)
	return nil, dErrors.New(dErrors.CodeValidation, "VIN mismatch across transfer documents: "+strings.Join(vins, "; "))
}
