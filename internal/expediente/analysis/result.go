package analysis

import (
	"time"

	"expediente/internal/expediente/chain"
	"expediente/internal/expediente/coverage"
	"expediente/internal/expediente/detect"
	"expediente/internal/expediente/models"
	"expediente/internal/expediente/summary"
)

// Request is one analysis over one vehicle's documents.
type Request struct {
	Files []models.RawDocument
	// AsOf is the reference date for every validity check.
	AsOf time.Time
	// ReturnPolicy overrides the analyzer default when set.
	ReturnPolicy chain.ReturnPolicy
}

// Result is the full analysis output. Optional sections are nil, and
// omitted from JSON, when their inputs are missing or their pass failed.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	VIN            *string                    `json:"vin"`
	OriginDocument *models.NormalizedDocument `json:"originDocument"`
	OwnershipChain []models.OwnershipLink     `json:"ownershipChain"`

	SequenceAnalysis   *detect.SequenceAnalysis     `json:"sequenceAnalysis"`
	IntegrityAnalysis  *detect.IntegrityAnalysis    `json:"integrityAnalysis,omitempty"`
	PatternDetection   *detect.PatternDetection     `json:"patternDetection,omitempty"`
	TemporalAnalysis   *detect.TemporalAnalysis     `json:"temporalAnalysis,omitempty"`
	DuplicateDetection *detect.DuplicateDetection   `json:"duplicateDetection,omitempty"`
	TarjetasAnalysis   *coverage.TarjetasAnalysis   `json:"tarjetasAnalysis,omitempty"`
	CrossValidation    *coverage.CrossValidation    `json:"crossValidation,omitempty"`
	ExecutiveSummary   *summary.Summary             `json:"executiveSummary,omitempty"`
	VigenciaAnalysis   *coverage.VigenciaAnalysis   `json:"vigenciaAnalysis,omitempty"`
	PropertyValidation *coverage.PropertyValidation `json:"propertyValidation,omitempty"`

	Metadata Metadata `json:"metadata"`

	// Err is the structural error behind Success=false.
	Err error `json:"-"`

	passErrs map[string]error
}

// PassError is the error that made a sub-analysis unavailable.
func (r *Result) PassError(pass string) error {
	return r.passErrs[pass]
}

// Metadata describes how the analysis was run.
type Metadata struct {
	AnalysisID       string                      `json:"analysisId"`
	AsOf             string                      `json:"asOf"`
	TotalFiles       int                         `json:"totalFiles"`
	Skipped          int                         `json:"skippedDocuments"`
	DocumentsByKind  map[models.DocumentKind]int `json:"documentsByKind"`
	OriginCandidates int                         `json:"originCandidates"`
	ReturnPolicy     chain.ReturnPolicy          `json:"returnPolicy"`
	Unavailable      []string                    `json:"unavailablePasses"`
	DurationMS       int64                       `json:"durationMs"`
}

// RiskLevel is the summary risk, or "" when the summary is absent.
func (r *Result) RiskLevel() models.Severity {
	if r == nil || r.ExecutiveSummary == nil {
		return ""
	}
	return r.ExecutiveSummary.RiskLevel
}

// Findings returns every gap and inconsistency kind with its count, for
// metrics.
func (r *Result) Findings() map[string]int {
	out := make(map[string]int)
	add := func(gaps []models.Gap) {
		for _, g := range gaps {
			out[string(g.Kind)]++
		}
	}
	if r.SequenceAnalysis != nil {
		add(r.SequenceAnalysis.Gaps)
	}
	if r.IntegrityAnalysis != nil {
		add(r.IntegrityAnalysis.Issues)
	}
	if r.PatternDetection != nil {
		add(r.PatternDetection.Patterns)
	}
	if r.TemporalAnalysis != nil {
		add(r.TemporalAnalysis.Anomalies)
	}
	if r.DuplicateDetection != nil {
		add(r.DuplicateDetection.Duplicates)
	}
	if r.TarjetasAnalysis != nil {
		add(r.TarjetasAnalysis.Gaps)
	}
	if r.CrossValidation != nil {
		for _, inc := range r.CrossValidation.Inconsistencies {
			out[string(inc.Type)]++
		}
	}
	return out
}
