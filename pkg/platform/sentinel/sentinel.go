package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally wrapped) so
// services can translate them into domain errors:
//   - ErrNotFound: entity does not exist in the store
//   - ErrConflict: optimistic write lost a race and could not be applied
//   - ErrUnavailable: backing service temporarily unavailable
//
// For validation failures use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
