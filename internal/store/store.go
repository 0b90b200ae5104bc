// Package store owns the canonical in-memory application state: one
// AppState value, mutated only through the lifecycle operations, published
// to subscribers on every change and persisted through a durable slot.
//
// Mutations are serialized by a single mutex, so an operation always runs
// snapshot-read → mutate → publish → persist without interleaving. Subscriber
// callbacks are invoked synchronously while that mutex is held and therefore
// must not call back into the store; forward the value to your own goroutine
// or event loop instead.
package store

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sellerapp/shopchat/internal/models"
	"github.com/sellerapp/shopchat/internal/persist"
)

// localIDPrefix marks session ids generated on this client before the
// backend has assigned one. Reconciliation renames these in place.
const localIDPrefix = "tmp-"

// NewLocalID generates a client-side session identifier.
func NewLocalID() string {
	return localIDPrefix + uuid.NewString()
}

// IsLocalID reports whether id was generated client-side and has not been
// reconciled to a server-assigned identifier yet.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// Unsubscribe detaches a subscriber. Calling it more than once is harmless.
type Unsubscribe func()

// Option customizes a Store, mainly for tests.
type Option func(*Store)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the session/message id source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// Store is the state container. All reads are projections of its latest
// published value; all writes go through the lifecycle operations.
type Store struct {
	adapter persist.Adapter
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	mu      sync.Mutex
	state   models.AppState
	subs    map[int]func(models.AppState)
	order   []int
	nextSub int
}

// New constructs the container, loading the initial state from the durable
// slot. If the loaded state has no sessions and no active id, a default
// "New Chat" session with a welcome message is synthesized, activated and
// persisted.
func New(adapter persist.Adapter, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		adapter: adapter,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
		subs:    make(map[int]func(models.AppState)),
	}
	for _, opt := range opts {
		opt(s)
	}

	state, err := adapter.Load()
	if err != nil {
		// Fail soft: an unreadable slot must never prevent startup.
		logger.Warn("loading persisted state failed, starting empty", "error", err)
		state = persist.DefaultState()
	}
	s.state = state

	// A snapshot may carry an active pointer to a session that no longer
	// exists; the pointer must always reference a real session.
	if s.state.CurrentSessionID != nil && s.state.ActiveSession() == nil {
		logger.Warn("persisted active session id references no session, clearing it",
			"session_id", *s.state.CurrentSessionID)
		s.state.CurrentSessionID = nil
		s.save(s.state)
	}

	if len(s.state.Sessions) == 0 && s.state.CurrentSessionID == nil {
		now := s.now()
		id := NewLocalID()
		s.state.Sessions = append(s.state.Sessions, models.ChatSession{
			ID:            id,
			Title:         defaultSessionTitle,
			Messages:      []models.ChatMessage{s.welcomeMessage(now)},
			CreatedAt:     now,
			LastUpdatedAt: now,
		})
		s.state.CurrentSessionID = &id
		s.save(s.state)
		logger.Info("created initial default session", "session_id", id)
	}

	return s
}

// Current returns a deep-copied snapshot of the latest state.
func (s *Store) Current() models.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn to receive every new state, and invokes it once
// immediately with the current state. Delivery is synchronous and in
// registration order; fn must not call back into the store.
func (s *Store) Subscribe(fn func(models.AppState)) Unsubscribe {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.order = append(s.order, id)
	// Replay under the lock so a concurrent mutation cannot slip its newer
	// state in front of the initial emission.
	fn(s.state.Clone())
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// apply runs one mutation: next = mutate(clone(current)), swap, persist,
// publish. The whole sequence holds the store lock, which is what makes two
// operations unable to observe each other's intermediate state.
func (s *Store) apply(mutate func(models.AppState) models.AppState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := mutate(s.state.Clone())
	s.state = next
	s.save(next)

	snapshot := next.Clone()
	for _, id := range s.order {
		if fn, ok := s.subs[id]; ok {
			fn(snapshot)
		}
	}
}

// save persists fail-soft: a failed save is logged and otherwise ignored so
// it never blocks or rolls back the in-memory mutation.
func (s *Store) save(state models.AppState) {
	if err := s.adapter.Save(state); err != nil {
		s.logger.Error("persisting state failed", "error", err)
	}
}

