package handler

import (
	"time"

	"expediente/internal/expediente/session"
	"expediente/internal/vigencia"
)

// SessionResponse describes an expediente without echoing its OCR payloads.
type SessionResponse struct {
	ID             string         `json:"id"`
	TotalFiles     int            `json:"total_files"`
	FilesByType    map[string]int `json:"files_by_type"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	LastAnalysisID string         `json:"last_analysis_id,omitempty"`
	LastAnalyzedAt *time.Time     `json:"last_analyzed_at,omitempty"`
}

// FromSession converts a session to its HTTP response.
func FromSession(s *session.AnalysisSession) *SessionResponse {
	return &SessionResponse{
		ID:             s.ID.String(),
		TotalFiles:     len(s.Files),
		FilesByType:    s.FilesByType(),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		LastAnalysisID: s.LastAnalysisID,
		LastAnalyzedAt: s.LastAnalyzedAt,
	}
}

// StateRuleResponse is one row of the rules table with its override names.
type StateRuleResponse struct {
	vigencia.Rule
	Overrides []string `json:"excepciones"`
}

// StatesResponse is the body of GET /vigencia/states.
type StatesResponse struct {
	Total  int                 `json:"total"`
	States []StateRuleResponse `json:"estados"`
}

// FromRules lists the rules sorted by jurisdiction.
func FromRules(table RulesTable) *StatesResponse {
	rules := vigencia.SortedRules(table.Rules())
	out := &StatesResponse{Total: len(rules), States: make([]StateRuleResponse, 0, len(rules))}
	for _, rule := range rules {
		names := []string{}
		for _, o := range table.Overrides(rule.State) {
			names = append(names, o.Name)
		}
		out.States = append(out.States, StateRuleResponse{Rule: rule, Overrides: names})
	}
	return out
}
