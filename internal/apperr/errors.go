// Package apperr defines the sentinel error kinds shared across layers.
package apperr

import "errors"

var (
	// ErrNotFound means an id or slug matched no node of any kind.
	ErrNotFound = errors.New("not found")
	// ErrValidation means an input was rejected before any write occurred
	// (unknown style name, unknown relation type).
	ErrValidation = errors.New("validation failed")
	// ErrIndexDegraded means a content node was durably stored but the
	// best-effort search index update failed. Recoverable via reindex.
	ErrIndexDegraded = errors.New("index degraded")
)
