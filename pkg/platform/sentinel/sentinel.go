package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about stored resources, not validation
// failures:
//   - ErrNotFound: entity does not exist in the store
//   - ErrConflict: uniqueness violated (duplicate assignment, zone name taken)
//   - ErrInvalidState: operation requires state the caller did not establish
//     (e.g. an audit append outside the mutating transaction)
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)
