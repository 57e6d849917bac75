package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"expediente/internal/expediente/models"
	id "expediente/pkg/domain"
	dErrors "expediente/pkg/domain-errors"
	"expediente/pkg/platform/sentinel"
)

var now = time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

func files(types ...string) []models.RawDocument {
	out := make([]models.RawDocument, len(types))
	for i, t := range types {
		out[i] = models.RawDocument{DocumentType: t, OCR: map[string]any{}}
	}
	return out
}

type SessionStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *SessionStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

func (s *SessionStoreSuite) newSession(types ...string) *AnalysisSession {
	session, err := New(id.NewSessionID(), files(types...), now)
	s.Require().NoError(err)
	return session
}

// TestCreationAndLookups verifies the store creates and returns sessions.
func (s *SessionStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds session by ID", func() {
		session := s.newSession("invoice")
		s.Require().NoError(s.store.Create(s.ctx, session))

		found, err := s.store.FindByID(s.ctx, session.ID)
		s.Require().NoError(err)
		s.Equal(session.ID, found.ID)
		s.Len(found.Files, 1)
		s.Equal(1, s.store.Count(s.ctx))
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewSessionID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects a second create with the same ID", func() {
		session := s.newSession("invoice")
		s.Require().NoError(s.store.Create(s.ctx, session))
		s.ErrorIs(s.store.Create(s.ctx, session), sentinel.ErrInvalidState)
	})

	s.Run("returned sessions are copies", func() {
		session := s.newSession("invoice")
		s.Require().NoError(s.store.Create(s.ctx, session))

		found, err := s.store.FindByID(s.ctx, session.ID)
		s.Require().NoError(err)
		found.Files = append(found.Files, files("endorsement")...)

		again, err := s.store.FindByID(s.ctx, session.ID)
		s.Require().NoError(err)
		s.Len(again.Files, 1)
	})
}

// TestExecute verifies atomic read-modify-write.
func (s *SessionStoreSuite) TestExecute() {
	s.Run("stores the mutation", func() {
		session := s.newSession("invoice")
		s.Require().NoError(s.store.Create(s.ctx, session))

		later := now.Add(time.Hour)
		updated, err := s.store.Execute(s.ctx, session.ID, func(a *AnalysisSession) error {
			return a.AddFiles(files("vehicle_certificate"), later)
		})
		s.Require().NoError(err)
		s.Len(updated.Files, 2)
		s.Equal(later, updated.UpdatedAt)
		s.Equal(map[string]int{"invoice": 1, "vehicle_certificate": 1}, updated.FilesByType())
	})

	s.Run("discards the mutation when fn fails", func() {
		session := s.newSession("invoice")
		s.Require().NoError(s.store.Create(s.ctx, session))

		boom := errors.New("boom")
		_, err := s.store.Execute(s.ctx, session.ID, func(a *AnalysisSession) error {
			a.Files = nil
			return boom
		})
		s.ErrorIs(err, boom)

		found, err := s.store.FindByID(s.ctx, session.ID)
		s.Require().NoError(err)
		s.Len(found.Files, 1)
	})

	s.Run("unknown session", func() {
		_, err := s.store.Execute(s.ctx, id.NewSessionID(), func(*AnalysisSession) error { return nil })
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *SessionStoreSuite) TestConcurrentAppends() {
	session := s.newSession("invoice")
	s.Require().NoError(s.store.Create(s.ctx, session))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, session.ID, func(a *AnalysisSession) error {
				return a.AddFiles(files("endorsement"), now)
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	found, err := s.store.FindByID(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Len(found.Files, 21)
}

func TestSessionValidation(t *testing.T) {
	_, err := New(id.NewSessionID(), files("invoice", " "), now)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	session, err := New(id.NewSessionID(), nil, now)
	require.NoError(t, err)
	err = session.AddFiles(nil, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	session.RecordAnalysis("a-1", now)
	assert.Equal(t, "a-1", session.LastAnalysisID)
	require.NotNil(t, session.LastAnalyzedAt)
	assert.Equal(t, now, *session.LastAnalyzedAt)
}
