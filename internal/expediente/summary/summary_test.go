package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expediente/internal/expediente/models"
)

func gaps(kind models.GapKind, sev models.Severity, n int) []models.Gap {
	out := make([]models.Gap, n)
	for i := range out {
		out[i] = models.Gap{Kind: kind, Severity: sev}
	}
	return out
}

func TestRisk(t *testing.T) {
	tests := []struct {
		name    string
		counts  Counts
		expired int
		want    models.Severity
	}{
		{"nothing", Counts{}, 0, models.SeverityLow},
		{"only low", Counts{Low: 5}, 0, models.SeverityLow},
		{"one medium", Counts{Medium: 1}, 0, models.SeverityMedium},
		{"one high", Counts{High: 1}, 0, models.SeverityMedium},
		{"two high", Counts{High: 2}, 0, models.SeverityHigh},
		{"one expired", Counts{}, 1, models.SeverityMedium},
		{"two expired", Counts{}, 2, models.SeverityMedium},
		{"three expired", Counts{}, 3, models.SeverityHigh},
		{"critical wins", Counts{Critical: 1, Low: 3}, 5, models.SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Risk(tt.counts, tt.expired))
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Run("ranks by severity then count", func(t *testing.T) {
		in := Input{
			Gaps: append(append(
				gaps(models.GapTemporalSameDay, models.SeverityMedium, 1),
				gaps(models.GapDuplicateRFCPair, models.SeverityMedium, 3)...),
				gaps(models.GapSequence, models.SeverityHigh, 1)...),
			Inconsistencies: []models.Inconsistency{{Type: models.InconsistencyVINMismatch, Severity: models.SeverityCritical}},
		}
		out := Summarize(in)

		assert.Equal(t, models.SeverityCritical, out.RiskLevel)
		assert.Equal(t, Counts{Critical: 1, High: 1, Medium: 4}, out.Counts)
		assert.Equal(t, 6, out.TotalFindings)
		require.Len(t, out.Recommendations, 4)

		topics := make([]string, len(out.Recommendations))
		for i, r := range out.Recommendations {
			topics[i] = r.Topic
			assert.Equal(t, i+1, r.Priority)
		}
		assert.Equal(t, []string{
			string(models.InconsistencyVINMismatch),
			string(models.GapSequence),
			string(models.GapDuplicateRFCPair),
			string(models.GapTemporalSameDay),
		}, topics)
		assert.Contains(t, out.Recommendations[2].Text, "3 par(es)")
	})

	t.Run("group takes its worst severity", func(t *testing.T) {
		in := Input{Gaps: []models.Gap{
			{Kind: models.GapOrphan, Severity: models.SeverityMedium},
			{Kind: models.GapOrphan, Severity: models.SeverityHigh},
		}}
		out := Summarize(in)
		require.Len(t, out.Recommendations, 1)
		assert.Equal(t, models.SeverityHigh, out.Recommendations[0].Severity)
		assert.Equal(t, 2, out.Recommendations[0].Count)
	})

	t.Run("expired certificates and uncovered current owner", func(t *testing.T) {
		without := true
		out := Summarize(Input{ExpiredCertificates: 3, CurrentOwnerWithoutValid: &without})
		assert.Equal(t, models.SeverityHigh, out.RiskLevel)
		require.Len(t, out.Recommendations, 2)
		assert.Equal(t, topicExpired, out.Recommendations[0].Topic)
		assert.Equal(t, topicCurrentOwner, out.Recommendations[1].Topic)
	})

	t.Run("clean expediente", func(t *testing.T) {
		out := Summarize(Input{})
		assert.Equal(t, models.SeverityLow, out.RiskLevel)
		require.Len(t, out.Recommendations, 1)
		assert.Equal(t, topicClean, out.Recommendations[0].Topic)
	})

	t.Run("unknown kind falls back to a generic text", func(t *testing.T) {
		out := Summarize(Input{Gaps: []models.Gap{{Kind: "pattern_new", Severity: models.SeverityLow}}})
		assert.Equal(t, "Revisar 1 hallazgo(s) de tipo pattern_new.", out.Recommendations[0].Text)
	})
}

func TestEveryFindingKindHasATemplate(t *testing.T) {
	kinds := []string{
		string(models.GapSequence), string(models.GapOrphan), string(models.GapCoverage),
		string(models.GapPatternPingPong), string(models.GapPatternTriangulation),
		string(models.GapPatternEndorsementRun), string(models.GapPatternFrequentActor),
		string(models.GapPatternComplexCycle), string(models.GapTemporalBackwardJump),
		string(models.GapTemporalSameDay), string(models.GapTemporalLongGap),
		string(models.GapDuplicateNumber), string(models.GapDuplicateCrossKind),
		string(models.GapDuplicateRFCPair), string(models.GapIntegrityInvalidRFC),
		string(models.GapIntegrityMissingRFC), string(models.GapIntegrityImpossibleDate),
		string(models.GapIntegrityMultipleOrigins), string(models.GapIntegrityOrphanReinvoice),
		string(models.InconsistencyNameMismatch), string(models.InconsistencyVINMismatch),
		string(models.InconsistencyExpeditionBeforeOwner), string(models.InconsistencyExpeditionAfterOwner),
		string(models.InconsistencyRFCOutsideChain),
	}
	for _, k := range kinds {
		assert.Contains(t, templates, k)
	}
}
