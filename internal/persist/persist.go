// Package persist provides durable storage slots for the application state
// snapshot. A slot holds one JSON-serialized AppState and fails soft in both
// directions: missing or corrupt data loads as the default empty state (the
// corrupt slot is cleared), and save errors are reported but never fatal to
// the in-memory state.
package persist

import "github.com/sellerapp/shopchat/internal/models"

// Adapter reads and writes the application state snapshot.
//
// Load never fails on missing or corrupt data; it substitutes DefaultState
// and, for corrupt data, clears the slot. It returns an error only for
// infrastructure faults (unreadable file, unreachable database), and even
// then callers are expected to fall back to DefaultState.
type Adapter interface {
	Load() (models.AppState, error)
	Save(state models.AppState) error
	Close() error
}

// DefaultState is the empty aggregate used when no usable snapshot exists.
func DefaultState() models.AppState {
	return models.AppState{
		UserInfo:         nil,
		Sessions:         []models.ChatSession{},
		CurrentSessionID: nil,
	}
}
