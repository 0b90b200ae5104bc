package store

import (
	"sync"

	"github.com/sellerapp/shopchat/internal/models"
)

// stream is one multicast projection: it re-emits to its subscribers only
// when the projected value differs from the previous emission, compared with
// the stream's equality function. New subscribers immediately receive the
// latest value.
type stream[T any] struct {
	mu    sync.Mutex
	equal func(a, b T) bool
	subs  map[int]func(T)
	order []int
	next  int
	last  T
	has   bool
}

func newStream[T any](equal func(a, b T) bool) *stream[T] {
	return &stream[T]{
		equal: equal,
		subs:  make(map[int]func(T)),
	}
}

func (s *stream[T]) publish(v T) {
	s.mu.Lock()
	if s.has && s.equal(s.last, v) {
		s.mu.Unlock()
		return
	}
	s.last = v
	s.has = true
	fns := make([]func(T), 0, len(s.order))
	for _, id := range s.order {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (s *stream[T]) subscribe(fn func(T)) Unsubscribe {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.order = append(s.order, id)
	// Replay under the lock so a concurrent publish cannot deliver a newer
	// value before the initial one.
	if s.has {
		fn(s.last)
	}
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

// Streams bundles the derived views of the store's state: pure projections
// with structural-equality dedup, fed by one internal store subscription.
// Values delivered to subscribers are snapshots; treat them as read-only.
type Streams struct {
	userInfo        *stream[*models.UserInfo]
	sessions        *stream[[]models.ChatSession]
	currentID       *stream[*string]
	currentSession  *stream[*models.ChatSession]
	currentMessages *stream[[]models.ChatMessage]

	stop Unsubscribe
}

// NewStreams attaches the derived views to a store. Close detaches them.
func NewStreams(s *Store) *Streams {
	v := &Streams{
		userInfo: newStream(func(a, b *models.UserInfo) bool {
			if (a == nil) != (b == nil) {
				return false
			}
			return a == nil || *a == *b
		}),
		sessions: newStream(models.SessionsEqual),
		currentID: newStream(func(a, b *string) bool {
			if (a == nil) != (b == nil) {
				return false
			}
			return a == nil || *a == *b
		}),
		currentSession: newStream(func(a, b *models.ChatSession) bool {
			if (a == nil) != (b == nil) {
				return false
			}
			return a == nil || a.Equal(*b)
		}),
		currentMessages: newStream(models.MessagesEqual),
	}

	v.stop = s.Subscribe(func(state models.AppState) {
		v.userInfo.publish(state.UserInfo)
		v.sessions.publish(state.Sessions)
		v.currentID.publish(state.CurrentSessionID)

		active := state.ActiveSession()
		v.currentSession.publish(active)
		if active != nil {
			v.currentMessages.publish(active.Messages)
		} else {
			v.currentMessages.publish([]models.ChatMessage{})
		}
	})

	return v
}

// Close detaches the streams from the store. Existing subscribers receive no
// further emissions.
func (v *Streams) Close() {
	v.stop()
}

// UserInfo emits the authenticated identity, nil when logged out.
func (v *Streams) UserInfo(fn func(*models.UserInfo)) Unsubscribe {
	return v.userInfo.subscribe(fn)
}

// Sessions emits the full session list.
func (v *Streams) Sessions(fn func([]models.ChatSession)) Unsubscribe {
	return v.sessions.subscribe(fn)
}

// CurrentSessionID emits the active session id, nil when none is active.
func (v *Streams) CurrentSessionID(fn func(*string)) Unsubscribe {
	return v.currentID.subscribe(fn)
}

// CurrentSession emits the active session, nil when none is active.
func (v *Streams) CurrentSession(fn func(*models.ChatSession)) Unsubscribe {
	return v.currentSession.subscribe(fn)
}

// CurrentMessages emits the active session's history, empty when no session
// is active.
func (v *Streams) CurrentMessages(fn func([]models.ChatMessage)) Unsubscribe {
	return v.currentMessages.subscribe(fn)
}
