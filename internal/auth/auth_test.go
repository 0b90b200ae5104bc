package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStore(t *testing.T) {
	var ts TokenStore

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Empty(t, tok)

	ts.Set("tok-1")
	tok, _ = ts.Token()
	assert.Equal(t, "tok-1", tok)

	ts.Clear()
	tok, _ = ts.Token()
	assert.Empty(t, tok)
}

func TestClaimsUserInfo(t *testing.T) {
	c := &Claims{
		Email:  "shopper@example.com",
		Name:   "Shopper",
		Locale: "en-IN",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "google-123",
		},
	}

	info := c.UserInfo()
	assert.Equal(t, "shopper@example.com", info.Email)
	assert.Equal(t, "Shopper", info.Name)
	assert.Equal(t, "en-IN", info.PrefLanguage)
	assert.Equal(t, "google-123", info.UserID)
	assert.True(t, info.IsAuthenticated)
}

// jwksServer serves a single-key JWKS for the given RSA key.
func jwksServer(t *testing.T, key *rsa.PrivateKey, kid string) *httptest.Server {
	t.Helper()
	b64 := func(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }
	jwks := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"use": "sig",
			"alg": "RS256",
			"kid": kid,
			"n":   b64(key.PublicKey.N.Bytes()),
			"e":   b64(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, &claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestJWKSVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, key, "k1")

	verifier, err := NewJWKSVerifier(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	defer verifier.Close()

	valid := Claims{
		Email: "shopper@example.com",
		Name:  "Shopper",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "google-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	t.Run("valid token", func(t *testing.T) {
		claims, err := verifier.Verify(signToken(t, key, "k1", valid))
		require.NoError(t, err)
		assert.Equal(t, "shopper@example.com", claims.Email)
		assert.Equal(t, "google-123", claims.Subject)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := valid
		expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		_, err := verifier.Verify(signToken(t, key, "k1", expired))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		anon := valid
		anon.Subject = ""
		_, err := verifier.Verify(signToken(t, key, "k1", anon))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing email", func(t *testing.T) {
		noEmail := valid
		noEmail.Email = ""
		_, err := verifier.Verify(signToken(t, key, "k1", noEmail))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = verifier.Verify(signToken(t, other, "k1", valid))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
