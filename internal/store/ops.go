package store

import (
	"time"

	"github.com/sellerapp/shopchat/internal/models"
)

const (
	defaultSessionTitle = "New Chat"
	welcomeText         = "Hello! Welcome to Sellerapp. Please type your query to search."
)

func (s *Store) welcomeMessage(now time.Time) models.ChatMessage {
	return models.ChatMessage{
		ID:        s.newID(),
		Role:      models.RoleBot,
		Text:      welcomeText,
		Timestamp: now,
	}
}

// touch refreshes a session's LastUpdatedAt, never moving it backwards.
func touch(sess *models.ChatSession, now time.Time) {
	if now.After(sess.LastUpdatedAt) {
		sess.LastUpdatedAt = now
	}
}

// CreateSession appends a new empty session and makes it active. When id is
// given it is used verbatim (a server-assigned identifier); otherwise a
// client-side identifier is generated. An empty title falls back to the
// default session title. If the explicit id already names a session, no
// second session is created; the existing one is activated instead. Returns
// the id used.
func (s *Store) CreateSession(title string, id ...string) string {
	sessionID := ""
	if len(id) > 0 && id[0] != "" {
		sessionID = id[0]
	} else {
		sessionID = NewLocalID()
	}
	if title == "" {
		title = defaultSessionTitle
	}

	existed := false
	s.apply(func(state models.AppState) models.AppState {
		if state.Session(sessionID) != nil {
			existed = true
			state.CurrentSessionID = &sessionID
			return state
		}

		now := s.now()
		state.Sessions = append(state.Sessions, models.ChatSession{
			ID:            sessionID,
			Title:         title,
			Messages:      []models.ChatMessage{},
			CreatedAt:     now,
			LastUpdatedAt: now,
		})
		state.CurrentSessionID = &sessionID
		return state
	})

	if existed {
		s.logger.Warn("session id already exists, activating existing session", "session_id", sessionID)
	} else {
		s.logger.Info("session created", "session_id", sessionID, "title", title)
	}
	return sessionID
}

// SetActiveSession switches the active session. Referencing an unknown id is
// a logged no-op: the active pointer is never set to a non-existent session.
func (s *Store) SetActiveSession(id string) error {
	found := false
	s.apply(func(state models.AppState) models.AppState {
		if state.Session(id) == nil {
			return state
		}
		found = true
		state.CurrentSessionID = &id
		return state
	})

	if !found {
		s.logger.Warn("cannot activate unknown session", "session_id", id)
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session. If it was active, the first remaining
// session becomes active, or none when the list is empty.
func (s *Store) DeleteSession(id string) {
	found := false
	s.apply(func(state models.AppState) models.AppState {
		if state.Session(id) == nil {
			return state
		}
		found = true

		kept := state.Sessions[:0]
		for _, sess := range state.Sessions {
			if sess.ID != id {
				kept = append(kept, sess)
			}
		}
		state.Sessions = kept

		if state.CurrentSessionID != nil && *state.CurrentSessionID == id {
			if len(state.Sessions) > 0 {
				next := state.Sessions[0].ID
				state.CurrentSessionID = &next
			} else {
				state.CurrentSessionID = nil
			}
		}
		return state
	})

	if !found {
		s.logger.Warn("cannot delete unknown session", "session_id", id)
		return
	}
	s.logger.Info("session deleted", "session_id", id)
}

// AppendMessage appends a message to the active session with a fresh id and
// the current timestamp, refreshing the session's LastUpdatedAt. Without an
// active session it is a logged no-op.
func (s *Store) AppendMessage(role models.Role, text string, results []models.SearchResult, inFlight *bool) (models.ChatMessage, error) {
	var appended models.ChatMessage
	ok := false

	s.apply(func(state models.AppState) models.AppState {
		sess := state.ActiveSession()
		if sess == nil {
			return state
		}
		ok = true

		var flight *bool
		if inFlight != nil {
			v := *inFlight
			flight = &v
		}

		now := s.now()
		msg := models.ChatMessage{
			ID:            s.newID(),
			Role:          role,
			Text:          text,
			Timestamp:     now,
			InFlight:      flight,
			SearchResults: results,
		}
		appended = msg.Clone()
		sess.Messages = append(sess.Messages, msg)
		touch(sess, now)
		return state
	})

	if !ok {
		s.logger.Warn("no active session to append message to", "role", role)
		return models.ChatMessage{}, ErrNoActiveSession
	}
	return appended, nil
}

// ResolveInFlight walks the active session's messages from the newest
// backwards and flips the first user message still marked in flight to the
// given value. No unresolved message is a silent no-op; no active session is
// a logged no-op.
func (s *Store) ResolveInFlight(inFlight bool) error {
	active := false
	resolved := false

	s.apply(func(state models.AppState) models.AppState {
		sess := state.ActiveSession()
		if sess == nil {
			return state
		}
		active = true

		for i := len(sess.Messages) - 1; i >= 0; i-- {
			msg := &sess.Messages[i]
			if msg.Role == models.RoleUser && msg.InFlight != nil && *msg.InFlight {
				v := inFlight
				msg.InFlight = &v
				resolved = true
				break
			}
		}
		return state
	})

	if !active {
		s.logger.Warn("no active session to resolve in-flight message in")
		return ErrNoActiveSession
	}
	if !resolved {
		s.logger.Debug("no in-flight user message to resolve")
	}
	return nil
}

// ReconcileSessionID renames the active session's id to the server-assigned
// one and repoints the active-session pointer, preserving every other field.
// Calling it again with the same id is a no-op; a rename that would collide
// with another existing session is refused.
func (s *Store) ReconcileSessionID(newID string) error {
	if newID == "" {
		return nil
	}

	var (
		active    = false
		collision = false
		oldID     string
	)

	s.apply(func(state models.AppState) models.AppState {
		if state.CurrentSessionID == nil {
			return state
		}
		active = true
		oldID = *state.CurrentSessionID
		if oldID == newID {
			return state
		}
		if state.Session(newID) != nil {
			collision = true
			return state
		}

		state.Session(oldID).ID = newID
		state.CurrentSessionID = &newID
		return state
	})

	switch {
	case !active:
		s.logger.Warn("no active session to reconcile id for", "new_id", newID)
		return ErrNoActiveSession
	case collision:
		s.logger.Warn("refusing session id reconciliation, id already in use",
			"old_id", oldID, "new_id", newID)
		return ErrDuplicateSessionID
	case oldID != newID:
		s.logger.Info("session id reconciled", "old_id", oldID, "new_id", newID)
	}
	return nil
}

// SetUserInfo replaces the authenticated identity wholesale.
func (s *Store) SetUserInfo(info models.UserInfo) {
	s.apply(func(state models.AppState) models.AppState {
		state.UserInfo = &info
		return state
	})
	s.logger.Info("user info updated", "email", info.Email)
}

// ClearUserInfo removes the authenticated identity (logout).
func (s *Store) ClearUserInfo() {
	s.apply(func(state models.AppState) models.AppState {
		state.UserInfo = nil
		return state
	})
	s.logger.Info("user info cleared")
}

// ResetActiveSessionMessages replaces the active session's history with a
// fresh welcome message. No active session is a logged no-op.
func (s *Store) ResetActiveSessionMessages() error {
	ok := false
	s.apply(func(state models.AppState) models.AppState {
		sess := state.ActiveSession()
		if sess == nil {
			return state
		}
		ok = true

		now := s.now()
		sess.Messages = []models.ChatMessage{s.welcomeMessage(now)}
		touch(sess, now)
		return state
	})

	if !ok {
		s.logger.Warn("no active session to reset")
		return ErrNoActiveSession
	}
	return nil
}

// ClearSessions removes every session and clears the active pointer.
func (s *Store) ClearSessions() {
	s.apply(func(state models.AppState) models.AppState {
		state.Sessions = []models.ChatSession{}
		state.CurrentSessionID = nil
		return state
	})
	s.logger.Info("all sessions cleared")
}
