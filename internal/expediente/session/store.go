package session

import (
	"context"
	"fmt"
	"sync"

	id "expediente/pkg/domain"
	"expediente/pkg/platform/sentinel"
)

// InMemory keeps sessions for the lifetime of the process. Callers get
// copies; mutating a returned session does not change the store.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*AnalysisSession
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[id.SessionID]*AnalysisSession)}
}

func (s *InMemory) Create(_ context.Context, session *AnalysisSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrInvalidState)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, sessionID id.SessionID) (*AnalysisSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	return session.Clone(), nil
}

// Execute loads a session, applies fn and stores the result atomically. If
// fn fails nothing is stored.
func (s *InMemory) Execute(_ context.Context, sessionID id.SessionID, fn func(*AnalysisSession) error) (*AnalysisSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	working := session.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.sessions[sessionID] = working
	return working.Clone(), nil
}

func (s *InMemory) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
