// Package summary folds every finding of an analysis into a risk level and a
// ranked list of recommendations.
package summary

import (
	"fmt"
	"sort"
	"strings"

	"expediente/internal/expediente/models"
)

const (
	highFindingsForHigh = 1
	expiredForHigh      = 2
)

// Input is what the summary reads from the other stages.
type Input struct {
	Gaps                []models.Gap
	Inconsistencies     []models.Inconsistency
	ExpiredCertificates int
	// CurrentOwnerWithoutValid is nil when no certificate was analyzed.
	CurrentOwnerWithoutValid *bool
}

// Counts tallies findings by severity.
type Counts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

func (c *Counts) add(s models.Severity) {
	switch s {
	case models.SeverityCritical:
		c.Critical++
	case models.SeverityHigh:
		c.High++
	case models.SeverityMedium:
		c.Medium++
	case models.SeverityLow:
		c.Low++
	}
}

// Total is the number of counted findings.
func (c Counts) Total() int { return c.Critical + c.High + c.Medium + c.Low }

// Recommendation is one templated action, ranked by Priority (1 first).
type Recommendation struct {
	Priority int             `json:"priority"`
	Severity models.Severity `json:"severity"`
	Topic    string          `json:"topic"`
	Count    int             `json:"count"`
	Text     string          `json:"text"`
}

// Summary is the executive view of an analysis.
type Summary struct {
	RiskLevel           models.Severity  `json:"riskLevel"`
	Counts              Counts           `json:"counts"`
	TotalFindings       int              `json:"totalFindings"`
	ExpiredCertificates int              `json:"expiredCertificates"`
	Recommendations     []Recommendation `json:"recommendations"`
}

// Summarize computes the risk level and recommendations.
func Summarize(in Input) Summary {
	var counts Counts
	found := make(groups)
	for _, g := range in.Gaps {
		counts.add(g.Severity)
		found.note(string(g.Kind), g.Severity)
	}
	for _, inc := range in.Inconsistencies {
		counts.add(inc.Severity)
		found.note(string(inc.Type), inc.Severity)
	}

	out := Summary{
		RiskLevel:           Risk(counts, in.ExpiredCertificates),
		Counts:              counts,
		TotalFindings:       counts.Total(),
		ExpiredCertificates: in.ExpiredCertificates,
	}

	recs := make([]Recommendation, 0, len(found)+2)
	for topic, g := range found {
		recs = append(recs, Recommendation{Severity: g.severity, Topic: topic, Count: g.count, Text: render(topic, g.count)})
	}
	if in.ExpiredCertificates > 0 {
		sev := models.SeverityMedium
		if in.ExpiredCertificates > expiredForHigh {
			sev = models.SeverityHigh
		}
		recs = append(recs, Recommendation{Severity: sev, Topic: topicExpired, Count: in.ExpiredCertificates,
			Text: render(topicExpired, in.ExpiredCertificates)})
	}
	if in.CurrentOwnerWithoutValid != nil && *in.CurrentOwnerWithoutValid {
		recs = append(recs, Recommendation{Severity: models.SeverityHigh, Topic: topicCurrentOwner, Count: 1,
			Text: render(topicCurrentOwner, 1)})
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Topic < b.Topic
	})
	for i := range recs {
		recs[i].Priority = i + 1
	}
	if len(recs) == 0 {
		recs = append(recs, Recommendation{Priority: 1, Severity: models.SeverityLow, Topic: topicClean, Text: render(topicClean, 0)})
	}
	out.Recommendations = recs
	return out
}

// Risk applies the fixed thresholds: any critical finding is critical; more
// than one high finding or more than two expired certificates is high; any
// high or medium finding or any expired certificate is medium.
func Risk(c Counts, expired int) models.Severity {
	switch {
	case c.Critical > 0:
		return models.SeverityCritical
	case c.High > highFindingsForHigh || expired > expiredForHigh:
		return models.SeverityHigh
	case c.High > 0 || c.Medium > 0 || expired > 0:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

type group struct {
	count    int
	severity models.Severity
}

// groups aggregates findings by kind; a group takes its worst severity.
type groups map[string]*group

func (gs groups) note(topic string, sev models.Severity) {
	g, ok := gs[topic]
	if !ok {
		g = &group{severity: sev}
		gs[topic] = g
	}
	g.count++
	if sev.Rank() > g.severity.Rank() {
		g.severity = sev
	}
}

func render(topic string, n int) string {
	if t, ok := templates[topic]; ok {
		return strings.ReplaceAll(t, "{n}", fmt.Sprint(n))
	}
	return fmt.Sprintf("Revisar %d hallazgo(s) de tipo %s.", n, topic)
}
