package store

import "errors"

// Sentinel errors returned by lifecycle operations. Operations that hit one
// of these leave the state untouched; callers can detect non-effect without
// re-reading the store.
var (
	// ErrSessionNotFound means the referenced session id does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoActiveSession means the operation needs an active session and
	// none is set.
	ErrNoActiveSession = errors.New("no active session")

	// ErrDuplicateSessionID means a reconciliation would collide with an
	// existing session id.
	ErrDuplicateSessionID = errors.New("duplicate session id")
)
