package service

import "errors"

var (
	// ErrInvalidRequest rejects input before any store access.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound reports that the addressed table or event does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports that the table was not in the state the
	// transition requires.
	ErrConflict = errors.New("conflict")
	// ErrIdempotencyConflict reports a replayed ticket key with a
	// different payload.
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	// ErrStoreUnavailable aborts a request before any side effect.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrOutcomeUnknown reports a store call that hit its deadline; the
	// write may or may not have happened and must be re-queried.
	ErrOutcomeUnknown = errors.New("outcome unknown")
)
