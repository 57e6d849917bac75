// Package detect runs the gap and anomaly passes over a built ownership
// chain. Every pass is independent; a failing pass is reported as
// unavailable and never aborts the others.
package detect

import (
	"time"

	"expediente/internal/expediente/models"
	xstrings "expediente/pkg/platform/strings"
)

// Pass names, as reported in analysis metadata.
const (
	PassSequence   = "sequence"
	PassIntegrity  = "integrity"
	PassPatterns   = "patterns"
	PassTemporal   = "temporal"
	PassDuplicates = "duplicates"
)

// Input is everything the passes read. Nothing in it is mutated.
type Input struct {
	Chain     []models.OwnershipLink
	Documents []models.NormalizedDocument
	// Origins lists every first-sale invoice found, chosen origin first.
	Origins []models.NormalizedDocument
	AsOf    time.Time
}

// Report collects one result per pass.
type Report struct {
	Sequence   models.PassResult[SequenceAnalysis]
	Integrity  models.PassResult[IntegrityAnalysis]
	Patterns   models.PassResult[PatternDetection]
	Temporal   models.PassResult[TemporalAnalysis]
	Duplicates models.PassResult[DuplicateDetection]
}

// Unavailable names the passes that failed.
func (r Report) Unavailable() []string {
	var out []string
	for _, p := range []struct {
		name string
		ok   bool
	}{
		{r.Sequence.Pass, r.Sequence.Available()},
		{r.Integrity.Pass, r.Integrity.Available()},
		{r.Patterns.Pass, r.Patterns.Available()},
		{r.Temporal.Pass, r.Temporal.Available()},
		{r.Duplicates.Pass, r.Duplicates.Available()},
	} {
		if !p.ok {
			out = append(out, p.name)
		}
	}
	return out
}

// Findings returns every gap produced by the available passes.
func (r Report) Findings() []models.Gap {
	var out []models.Gap
	if v := r.Sequence.Get(); v != nil {
		out = append(out, v.Gaps...)
	}
	if v := r.Integrity.Get(); v != nil {
		out = append(out, v.Issues...)
	}
	if v := r.Patterns.Get(); v != nil {
		out = append(out, v.Patterns...)
	}
	if v := r.Temporal.Get(); v != nil {
		out = append(out, v.Anomalies...)
	}
	if v := r.Duplicates.Get(); v != nil {
		out = append(out, v.Duplicates...)
	}
	return out
}

// Run executes every pass.
func Run(in Input) Report {
	return Report{
		Sequence:   models.RunPass(PassSequence, func() (SequenceAnalysis, error) { return Sequence(in), nil }),
		Integrity:  models.RunPass(PassIntegrity, func() (IntegrityAnalysis, error) { return Integrity(in), nil }),
		Patterns:   models.RunPass(PassPatterns, func() (PatternDetection, error) { return Patterns(in), nil }),
		Temporal:   models.RunPass(PassTemporal, func() (TemporalAnalysis, error) { return Temporal(in), nil }),
		Duplicates: models.RunPass(PassDuplicates, func() (DuplicateDetection, error) { return Duplicates(in), nil }),
	}
}

func gap(kind models.GapKind, sev models.Severity, desc string, docs ...models.NormalizedDocument) models.Gap {
	g := models.Gap{
		Kind:        kind,
		Severity:    sev,
		DocumentIDs: make([]string, 0, len(docs)),
		Description: desc,
	}
	rfcs := make([]string, 0, 3*len(docs))
	for _, d := range docs {
		g.DocumentIDs = append(g.DocumentIDs, d.ID)
		rfcs = append(rfcs, d.Emisor(), d.Receptor(), d.OwnerRFC())
	}
	if keys := xstrings.UniqueKeys(rfcs...); len(keys) > 0 {
		g.RFCs = keys
	}
	return g
}

func transfers(docs []models.NormalizedDocument) []models.NormalizedDocument {
	out := make([]models.NormalizedDocument, 0, len(docs))
	for _, d := range docs {
		if d.Kind.IsTransfer() {
			out = append(out, d)
		}
	}
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
