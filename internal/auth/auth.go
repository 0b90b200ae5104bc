// Package auth provides the identity capability: verification of provider
// ID tokens into a user profile, and the bearer credential for outbound
// requests. The store only mirrors the resulting UserInfo; it never talks to
// the provider itself.
package auth

import (
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sellerapp/shopchat/internal/models"
)

// Claims are the ID-token claims the client cares about.
type Claims struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Locale string `json:"locale"`
	jwt.RegisteredClaims
}

// UserInfo converts verified claims into the store's identity value.
func (c *Claims) UserInfo() models.UserInfo {
	return models.UserInfo{
		Email:           c.Email,
		Name:            c.Name,
		PrefLanguage:    c.Locale,
		UserID:          c.Subject,
		IsAuthenticated: true,
	}
}

// Verifier validates an ID token and extracts its claims.
type Verifier interface {
	Verify(tokenString string) (*Claims, error)

	// Close releases resources held by the verifier (e.g. JWKS refresh).
	Close() error
}

// TokenStore is a mutable bearer-credential holder implementing the api
// package's TokenSource. Set on login, cleared on logout.
type TokenStore struct {
	mu    sync.Mutex
	token string
}

// Token returns the current bearer token, empty when logged out.
func (t *TokenStore) Token() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token, nil
}

// Set replaces the bearer token.
func (t *TokenStore) Set(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = token
}

// Clear drops the bearer token.
func (t *TokenStore) Clear() {
	t.Set("")
}
