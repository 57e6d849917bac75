package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for expediente analyses. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Analyses by outcome ("ok", "rejected") and risk level
	Analyses *prometheus.CounterVec

	// Sub-analyses that failed, by pass name
	PassFailures *prometheus.CounterVec

	// Findings by gap kind or inconsistency type
	Findings *prometheus.CounterVec

	// Documents received, by kind
	Documents *prometheus.CounterVec

	AnalyzeLatency prometheus.Histogram
}

// New registers the metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Analyses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "expediente_analyses_total",
			Help: "Total expediente analyses by outcome and risk level",
		}, []string{"outcome", "risk"}),

		PassFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "expediente_pass_failures_total",
			Help: "Sub-analyses omitted because they failed",
		}, []string{"pass"}),

		Findings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "expediente_findings_total",
			Help: "Findings reported by kind",
		}, []string{"kind"}),

		Documents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "expediente_documents_total",
			Help: "Documents received by kind",
		}, []string{"kind"}),

		AnalyzeLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "expediente_analyze_duration_seconds",
			Help:    "Duration of a full expediente analysis",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementAnalysis records a finished analysis. risk is empty for rejected
// inputs.
func (m *Metrics) IncrementAnalysis(outcome, risk string) {
	if m != nil {
		m.Analyses.WithLabelValues(outcome, risk).Inc()
	}
}

// IncrementPassFailure records an omitted sub-analysis.
func (m *Metrics) IncrementPassFailure(pass string) {
	if m != nil {
		m.PassFailures.WithLabelValues(pass).Inc()
	}
}

// AddFindings records n findings of a kind.
func (m *Metrics) AddFindings(kind string, n int) {
	if m != nil && n > 0 {
		m.Findings.WithLabelValues(kind).Add(float64(n))
	}
}

// AddDocuments records n received documents of a kind.
func (m *Metrics) AddDocuments(kind string, n int) {
	if m != nil && n > 0 {
		m.Documents.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveAnalyzeLatency records the total analysis duration.
func (m *Metrics) ObserveAnalyzeLatency(d time.Duration) {
	if m != nil {
		m.AnalyzeLatency.Observe(d.Seconds())
	}
}
