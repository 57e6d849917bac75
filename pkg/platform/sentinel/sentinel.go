package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrNoInput: a sub-analysis has nothing to analyze; its output is omitted
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrNoInput      = errors.New("no input")
)
