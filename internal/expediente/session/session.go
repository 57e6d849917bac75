// Package session holds the "current expediente" of the route layer: the
// raw documents uploaded so far, waiting to be analyzed. The analysis core
// never reads it; handlers pass its files in explicitly.
package session

import (
	"fmt"
	"strings"
	"time"

	"expediente/internal/expediente/models"
	id "expediente/pkg/domain"
	dErrors "expediente/pkg/domain-errors"
)

// AnalysisSession is one expediente being assembled.
type AnalysisSession struct {
	ID             id.SessionID
	Files          []models.RawDocument
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastAnalysisID string
	LastAnalyzedAt *time.Time
}

// New starts a session with the given files.
func New(sessionID id.SessionID, files []models.RawDocument, now time.Time) (*AnalysisSession, error) {
	if err := validateFiles(files); err != nil {
		return nil, err
	}
	return &AnalysisSession{
		ID:        sessionID,
		Files:     append([]models.RawDocument(nil), files...),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AddFiles appends files to the session.
func (s *AnalysisSession) AddFiles(files []models.RawDocument, now time.Time) error {
	if len(files) == 0 {
		return dErrors.New(dErrors.CodeValidation, "files cannot be empty")
	}
	if err := validateFiles(files); err != nil {
		return err
	}
	s.Files = append(s.Files, files...)
	s.UpdatedAt = now
	return nil
}

// RecordAnalysis marks the session as analyzed.
func (s *AnalysisSession) RecordAnalysis(analysisID string, at time.Time) {
	s.LastAnalysisID = analysisID
	s.LastAnalyzedAt = &at
}

// Clone returns a deep copy of the session's slices.
func (s *AnalysisSession) Clone() *AnalysisSession {
	c := *s
	c.Files = append([]models.RawDocument(nil), s.Files...)
	if s.LastAnalyzedAt != nil {
		t := *s.LastAnalyzedAt
		c.LastAnalyzedAt = &t
	}
	return &c
}

// FilesByType counts files by their declared document_type.
func (s *AnalysisSession) FilesByType() map[string]int {
	out := make(map[string]int)
	for _, f := range s.Files {
		out[strings.ToLower(strings.TrimSpace(f.DocumentType))]++
	}
	return out
}

func validateFiles(files []models.RawDocument) error {
	for i, f := range files {
		if strings.TrimSpace(f.DocumentType) == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("file %d: document_type is required", i))
		}
	}
	return nil
}
