package models

// UserInfo is the authenticated identity mirrored from the identity provider.
// It is replaced wholesale on login/logout, never partially mutated.
type UserInfo struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	PrefLanguage    string `json:"prefLanguage,omitempty"`
	Location        string `json:"location,omitempty"`
	UserID          string `json:"userId"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// AppState is the root aggregate: the single canonical value owned by the
// state container. CurrentSessionID, when non-nil, always references an
// existing session.
type AppState struct {
	UserInfo         *UserInfo     `json:"userInfo"`
	Sessions         []ChatSession `json:"sessions"`
	CurrentSessionID *string       `json:"currentSessionId"`
}

// Clone returns a deep copy of the state.
func (s AppState) Clone() AppState {
	out := s
	if s.UserInfo != nil {
		u := *s.UserInfo
		out.UserInfo = &u
	}
	if s.CurrentSessionID != nil {
		id := *s.CurrentSessionID
		out.CurrentSessionID = &id
	}
	if s.Sessions != nil {
		out.Sessions = make([]ChatSession, len(s.Sessions))
		for i, sess := range s.Sessions {
			out.Sessions[i] = sess.Clone()
		}
	}
	return out
}

// Equal reports whether two states are structurally identical.
func (s AppState) Equal(other AppState) bool {
	if (s.UserInfo == nil) != (other.UserInfo == nil) {
		return false
	}
	if s.UserInfo != nil && *s.UserInfo != *other.UserInfo {
		return false
	}
	if (s.CurrentSessionID == nil) != (other.CurrentSessionID == nil) {
		return false
	}
	if s.CurrentSessionID != nil && *s.CurrentSessionID != *other.CurrentSessionID {
		return false
	}
	return SessionsEqual(s.Sessions, other.Sessions)
}

// Session returns a pointer to the session with the given id, or nil. The
// pointer aliases the Sessions backing array.
func (s AppState) Session(id string) *ChatSession {
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			return &s.Sessions[i]
		}
	}
	return nil
}

// ActiveSession returns a pointer to the currently active session, or nil
// when no session is active.
func (s AppState) ActiveSession() *ChatSession {
	if s.CurrentSessionID == nil {
		return nil
	}
	return s.Session(*s.CurrentSessionID)
}
