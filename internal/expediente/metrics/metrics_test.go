package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementAnalysis("ok", "low")
		m.IncrementPassFailure("patterns")
		m.AddFindings("sequence_gap", 2)
		m.AddDocuments("invoice", 1)
		m.ObserveAnalyzeLatency(time.Millisecond)
	})
}

func TestCounters(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.IncrementAnalysis("ok", "high")
	m.IncrementAnalysis("ok", "high")
	m.IncrementPassFailure("temporal")
	m.AddFindings("coverage_gap", 3)
	m.AddFindings("coverage_gap", 0)
	m.AddDocuments("invoice", 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Analyses.WithLabelValues("ok", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PassFailures.WithLabelValues("temporal")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Findings.WithLabelValues("coverage_gap")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Documents.WithLabelValues("invoice")))
}
