package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure; details stay in the
// logs so callers cannot leak them to the UI.
var ErrInvalidToken = errors.New("invalid identity token")

// JWKSVerifier validates ID tokens against the provider's published JWKS.
// Keys are cached and refreshed by the keyfunc library based on HTTP cache
// headers.
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	logger *slog.Logger
}

// NewJWKSVerifier creates a verifier fetching public keys from jwksURL
// (e.g. Google's https://www.googleapis.com/oauth2/v3/certs).
func NewJWKSVerifier(ctx context.Context, jwksURL string, logger *slog.Logger) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}

	logger.Info("identity verifier initialized", "jwks_url", jwksURL)
	return &JWKSVerifier{jwks: jwks, logger: logger}, nil
}

// Verify parses and validates an ID token and returns its claims.
func (v *JWKSVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.jwks.Keyfunc)
	if err != nil {
		v.logger.Warn("identity token rejected", "error", err)
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		v.logger.Warn("identity token invalid after parsing")
		return nil, ErrInvalidToken
	}

	// Only asymmetric signatures; rejects alg-confusion attempts.
	switch token.Method.Alg() {
	case "RS256", "ES256":
	default:
		v.logger.Warn("identity token uses unexpected algorithm", "algorithm", token.Method.Alg())
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		v.logger.Warn("identity token claims have unexpected shape")
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		v.logger.Warn("identity token missing subject claim")
		return nil, ErrInvalidToken
	}
	if claims.Email == "" {
		v.logger.Warn("identity token missing email claim", "subject", claims.Subject)
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Close releases verifier resources. keyfunc v3 manages its own refresh
// lifecycle, so nothing to do.
func (v *JWKSVerifier) Close() error { return nil }
