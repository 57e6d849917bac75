// Package domain holds typed identifiers shared across bounded contexts.
package domain

import (
	"github.com/google/uuid"

	dErrors "expediente/pkg/domain-errors"
)

// SessionID identifies an expediente upload session held by the route layer.
type SessionID uuid.UUID

// AnalysisID identifies one analysis pass over an expediente.
type AnalysisID uuid.UUID

func (id SessionID) String() string  { return uuid.UUID(id).String() }
func (id AnalysisID) String() string { return uuid.UUID(id).String() }

// NewSessionID returns a random SessionID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewAnalysisID returns a random AnalysisID.
func NewAnalysisID() AnalysisID { return AnalysisID(uuid.New()) }

// MarshalText lets typed IDs render as plain UUID strings in JSON.
func (id SessionID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id AnalysisID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// ParseSessionID parses a SessionID at a trust boundary.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session id")
	return SessionID(u), err
}

// ParseAnalysisID parses an AnalysisID at a trust boundary.
func ParseAnalysisID(s string) (AnalysisID, error) {
	u, err := parseUUID(s, "analysis id")
	return AnalysisID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
