package detect

import (
	"fmt"
	"sort"
	"time"

	"expediente/internal/expediente/models"
	"expediente/pkg/platform/dates"
)

const (
	backwardJumpMaxDays = 30
	sameDayClusterMin   = 3
	longGapYears        = 3
)

// TemporalAnalysis reports date contradictions along the placed chain.
type TemporalAnalysis struct {
	Anomalies []models.Gap `json:"anomalies"`
}

// Temporal flags backward jumps, same-day clusters and long silences
// between consecutive placed links.
func Temporal(in Input) TemporalAnalysis {
	out := TemporalAnalysis{Anomalies: []models.Gap{}}
	placed := models.PlacedLinks(in.Chain)

	for i := 0; i+1 < len(placed); i++ {
		cur, next := placed[i].Document, placed[i+1].Document
		if cur.Date == nil || next.Date == nil {
			continue
		}
		days := dates.DaysBetween(*cur.Date, *next.Date)
		if -days > backwardJumpMaxDays {
			out.Anomalies = append(out.Anomalies, gap(models.GapTemporalBackwardJump, models.SeverityHigh,
				fmt.Sprintf("%s (%s) es %d días anterior al eslabón previo %s (%s)",
					next.ID, dates.Format(*next.Date), -days, cur.ID, dates.Format(*cur.Date)),
				cur, next))
		}
		if next.Date.After(cur.Date.AddDate(longGapYears, 0, 0)) {
			out.Anomalies = append(out.Anomalies, gap(models.GapTemporalLongGap, models.SeverityLow,
				fmt.Sprintf("%d días sin movimientos entre %s y %s", days, cur.ID, next.ID),
				cur, next))
		}
	}

	byDay := make(map[time.Time][]models.NormalizedDocument)
	for _, l := range placed {
		if l.Document.Date != nil {
			d := dates.Day(*l.Document.Date)
			byDay[d] = append(byDay[d], l.Document)
		}
	}
	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	for _, d := range days {
		if docs := byDay[d]; len(docs) >= sameDayClusterMin {
			out.Anomalies = append(out.Anomalies, gap(models.GapTemporalSameDay, models.SeverityMedium,
				fmt.Sprintf("%d transferencias el mismo día %s", len(docs), dates.Format(d)), docs...))
		}
	}
	return out
}
