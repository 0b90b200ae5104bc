package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sellerapp/shopchat/internal/models"
	"github.com/sellerapp/shopchat/internal/persist"
)

// memAdapter is an in-memory durable slot for tests.
type memAdapter struct {
	mu       sync.Mutex
	state    models.AppState
	loaded   bool
	saves    int
	failSave bool
}

func (m *memAdapter) Load() (models.AppState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return persist.DefaultState(), nil
	}
	return m.state.Clone(), nil
}

func (m *memAdapter) Save(state models.AppState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	m.state = state.Clone()
	m.loaded = true
	m.saves++
	return nil
}

func (m *memAdapter) Close() error { return nil }

func (m *memAdapter) saved() models.AppState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testClock hands out strictly increasing timestamps.
func testClock() func() time.Time {
	t := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func testIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestStore(t *testing.T) (*Store, *memAdapter) {
	t.Helper()
	adapter := &memAdapter{}
	s := New(adapter, testLogger(), WithClock(testClock()), WithIDGenerator(testIDs("msg")))
	return s, adapter
}

// Scenario: starting from empty durable storage yields exactly one active
// "New Chat" session holding the welcome message.
func TestNewSynthesizesDefaultSession(t *testing.T) {
	s, adapter := newTestStore(t)

	state := s.Current()
	if len(state.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(state.Sessions))
	}
	sess := state.Sessions[0]
	if sess.Title != "New Chat" {
		t.Errorf("default session title = %q, want %q", sess.Title, "New Chat")
	}
	if state.CurrentSessionID == nil || *state.CurrentSessionID != sess.ID {
		t.Errorf("default session is not active: current = %v", state.CurrentSessionID)
	}
	if !IsLocalID(sess.ID) {
		t.Errorf("default session id %q is not client-generated", sess.ID)
	}
	if len(sess.Messages) != 1 || sess.Messages[0].Role != models.RoleBot {
		t.Fatalf("default session messages = %+v, want one bot welcome", sess.Messages)
	}

	// The synthesized session is persisted immediately.
	if !adapter.saved().Equal(state) {
		t.Error("synthesized default session was not persisted")
	}
}

func TestNewRestoresPersistedState(t *testing.T) {
	adapter := &memAdapter{}
	first := New(adapter, testLogger())
	first.CreateSession("Chat 2")
	want := first.Current()

	second := New(adapter, testLogger())
	if got := second.Current(); !got.Equal(want) {
		t.Errorf("restored state mismatch:\n got: %+v\nwant: %+v", got, want)
	}
}

// A snapshot whose active pointer references no session is sanitized on load.
func TestNewClearsDanglingActiveSessionID(t *testing.T) {
	ghost := "ghost"

	t.Run("with remaining sessions", func(t *testing.T) {
		adapter := &memAdapter{loaded: true, state: models.AppState{
			Sessions:         []models.ChatSession{{ID: "s1", Title: "Chat 1"}},
			CurrentSessionID: &ghost,
		}}

		state := New(adapter, testLogger()).Current()
		if state.CurrentSessionID != nil {
			t.Errorf("active session = %q, want nil", *state.CurrentSessionID)
		}
		if len(state.Sessions) != 1 || state.Sessions[0].ID != "s1" {
			t.Errorf("sessions = %+v, want the persisted s1", state.Sessions)
		}
		if adapter.saved().CurrentSessionID != nil {
			t.Error("sanitized pointer was not persisted")
		}
	})

	t.Run("with no sessions", func(t *testing.T) {
		adapter := &memAdapter{loaded: true, state: models.AppState{
			Sessions:         []models.ChatSession{},
			CurrentSessionID: &ghost,
		}}

		// With nothing left to activate, the default session is synthesized.
		state := New(adapter, testLogger()).Current()
		if len(state.Sessions) != 1 || state.Sessions[0].Title != "New Chat" {
			t.Fatalf("sessions = %+v, want one default session", state.Sessions)
		}
		if state.CurrentSessionID == nil || *state.CurrentSessionID != state.Sessions[0].ID {
			t.Errorf("active session = %v, want the synthesized one", state.CurrentSessionID)
		}
	})
}

func TestNewFailSoftOnLoadError(t *testing.T) {
	// Adapter whose Load reports an infrastructure fault.
	s := New(failingLoadAdapter{}, testLogger())
	state := s.Current()
	if len(state.Sessions) != 1 || state.Sessions[0].Title != "New Chat" {
		t.Errorf("store did not fall back to default state: %+v", state)
	}
}

type failingLoadAdapter struct{}

func (failingLoadAdapter) Load() (models.AppState, error) {
	return persist.DefaultState(), errors.New("device unavailable")
}
func (failingLoadAdapter) Save(models.AppState) error { return nil }
func (failingLoadAdapter) Close() error               { return nil }

func TestSaveErrorDoesNotBlockMutation(t *testing.T) {
	s, adapter := newTestStore(t)
	adapter.mu.Lock()
	adapter.failSave = true
	adapter.mu.Unlock()

	id := s.CreateSession("unpersisted")
	state := s.Current()
	if state.Session(id) == nil {
		t.Error("mutation rolled back after failed save")
	}
}

func TestSubscribeReplayAndPush(t *testing.T) {
	s, _ := newTestStore(t)

	var got []models.AppState
	unsub := s.Subscribe(func(state models.AppState) {
		got = append(got, state)
	})

	if len(got) != 1 {
		t.Fatalf("subscriber received %d emissions on subscribe, want 1", len(got))
	}
	if !got[0].Equal(s.Current()) {
		t.Error("replayed state does not match current state")
	}

	s.CreateSession("Chat 2")
	if len(got) != 2 {
		t.Fatalf("subscriber received %d emissions after mutation, want 2", len(got))
	}
	if len(got[1].Sessions) != 2 {
		t.Errorf("pushed state has %d sessions, want 2", len(got[1].Sessions))
	}

	unsub()
	unsub() // idempotent
	s.CreateSession("Chat 3")
	if len(got) != 2 {
		t.Errorf("unsubscribed callback still received %d emissions", len(got)-2)
	}
}

func TestEveryMutationPersists(t *testing.T) {
	s, adapter := newTestStore(t)
	before := adapter.saves

	s.CreateSession("Chat 2")
	inFlight := true
	if _, err := s.AppendMessage(models.RoleUser, "hello", nil, &inFlight); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := s.ResolveInFlight(false); err != nil {
		t.Fatalf("ResolveInFlight: %v", err)
	}

	if adapter.saves != before+3 {
		t.Errorf("adapter saved %d times, want %d", adapter.saves-before, 3)
	}
	if !adapter.saved().Equal(s.Current()) {
		t.Error("persisted snapshot differs from current state")
	}
}

func TestCurrentReturnsIsolatedSnapshot(t *testing.T) {
	s, _ := newTestStore(t)

	snap := s.Current()
	snap.Sessions[0].Title = "tampered"
	snap.Sessions[0].Messages[0].Text = "tampered"

	if got := s.Current(); got.Sessions[0].Title == "tampered" || got.Sessions[0].Messages[0].Text == "tampered" {
		t.Error("mutating a snapshot leaked into the store")
	}
}
