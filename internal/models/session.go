// Package models defines the application state aggregate and its parts.
package models

import "time"

// Role identifies the sender of a chat message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Price is the currency/value pair attached to a search result.
type Price struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

// SearchResult is a product record returned by the backend. It is a pure
// value: once attached to a message it is never mutated.
type SearchResult struct {
	ItemID    string   `json:"Item_id"`
	Name      string   `json:"name"`
	Images    []string `json:"images"`
	Price     Price    `json:"price"`
	BrandName string   `json:"brand_name"`
}

// Equal reports whether two search results are structurally identical.
func (r SearchResult) Equal(other SearchResult) bool {
	if r.ItemID != other.ItemID || r.Name != other.Name ||
		r.Price != other.Price || r.BrandName != other.BrandName {
		return false
	}
	if len(r.Images) != len(other.Images) {
		return false
	}
	for i := range r.Images {
		if r.Images[i] != other.Images[i] {
			return false
		}
	}
	return true
}

// ChatMessage is one turn in a conversation. Messages are immutable once
// appended, except for InFlight which transitions from true to false exactly
// once (user messages awaiting a response).
type ChatMessage struct {
	ID            string         `json:"id"`
	Role          Role           `json:"type"`
	Text          string         `json:"text,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	InFlight      *bool          `json:"isSending,omitempty"`
	SearchResults []SearchResult `json:"searchResults,omitempty"`
}

// Clone returns a deep copy of the message.
func (m ChatMessage) Clone() ChatMessage {
	out := m
	if m.InFlight != nil {
		v := *m.InFlight
		out.InFlight = &v
	}
	if m.SearchResults != nil {
		out.SearchResults = make([]SearchResult, len(m.SearchResults))
		for i, r := range m.SearchResults {
			out.SearchResults[i] = r
			if r.Images != nil {
				out.SearchResults[i].Images = append([]string(nil), r.Images...)
			}
		}
	}
	return out
}

// Equal reports whether two messages are structurally identical. Timestamps
// are compared with time.Time.Equal so wall-clock representation does not
// matter.
func (m ChatMessage) Equal(other ChatMessage) bool {
	if m.ID != other.ID || m.Role != other.Role || m.Text != other.Text {
		return false
	}
	if !m.Timestamp.Equal(other.Timestamp) {
		return false
	}
	if (m.InFlight == nil) != (other.InFlight == nil) {
		return false
	}
	if m.InFlight != nil && *m.InFlight != *other.InFlight {
		return false
	}
	if len(m.SearchResults) != len(other.SearchResults) {
		return false
	}
	for i := range m.SearchResults {
		if !m.SearchResults[i].Equal(other.SearchResults[i]) {
			return false
		}
	}
	return true
}

// ChatSession is one conversation: an ordered, append-only message history
// plus metadata. The ID is the only field that may change identity after
// creation (client-generated ids are renamed to the server-assigned id once
// the backend responds).
type ChatSession struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Messages      []ChatMessage `json:"messages"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastUpdatedAt time.Time     `json:"lastUpdatedAt"`
}

// Clone returns a deep copy of the session.
func (s ChatSession) Clone() ChatSession {
	out := s
	if s.Messages != nil {
		out.Messages = make([]ChatMessage, len(s.Messages))
		for i, m := range s.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	return out
}

// Equal reports whether two sessions are structurally identical.
func (s ChatSession) Equal(other ChatSession) bool {
	if s.ID != other.ID || s.Title != other.Title {
		return false
	}
	if !s.CreatedAt.Equal(other.CreatedAt) || !s.LastUpdatedAt.Equal(other.LastUpdatedAt) {
		return false
	}
	return MessagesEqual(s.Messages, other.Messages)
}

// MessagesEqual reports whether two message histories are structurally
// identical, element by element.
func MessagesEqual(a, b []ChatMessage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// SessionsEqual reports whether two session lists are structurally identical.
func SessionsEqual(a, b []ChatSession) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
