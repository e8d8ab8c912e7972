// Package memory persists per-site structure and historical yield
// across search sessions.
package memory

import "errors"

// Sentinel errors for memory operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrCorruptState indicates the persisted state file exists but
	// cannot be decoded. Load degrades to an empty state and returns
	// this alongside it so callers can warn.
	ErrCorruptState = errors.New("corrupt memory state")

	// ErrUnknownVersion indicates a persisted schema version this
	// build does not understand.
	ErrUnknownVersion = errors.New("unknown memory schema version")
)
