// Package apperr defines the error taxonomy shared across the pipeline.
package apperr

import "errors"

var (
	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation failed")

	// ErrAccessDenied indicates an ownership or scope mismatch.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound indicates a missing conversation or knowledge base.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamTimeout indicates a retrieval or generation call timed out.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstream indicates a retrieval or generation call failed.
	ErrUpstream = errors.New("upstream failure")

	// ErrPersistence indicates a datastore write failed.
	ErrPersistence = errors.New("persistence failure")
)
