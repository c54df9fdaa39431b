package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and filesystem layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: record already exists (e.g. a drive already has a submission)
// - ErrInvalidState: resource in wrong state for the operation (e.g. a
//   directory that is not bag-shaped handed to a bag update)
//
// For validation errors (bad input, missing fields), use pkg/domainerrors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)
