package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	userIdClaim = "user-id"
	expClaim    = "exp"
)

// SessionClaims is the client-relevant subset of the session token.
type SessionClaims struct {
	UserId    string
	ExpiresAt time.Time
}

// Expired reports whether the session needs re-authentication.
func (s SessionClaims) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// ParseSessionClaims extracts the user id and expiry from the session
// token without verifying the signature; verification is the server's
// job, the client only needs the claims.
func ParseSessionClaims(tokenString string) (SessionClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return SessionClaims{}, fmt.Errorf("parse session token: %w", err)
	}

	out := SessionClaims{}
	if id, ok := claims[userIdClaim].(string); ok {
		out.UserId = id
	}
	if out.UserId == "" {
		return SessionClaims{}, fmt.Errorf("session token missing %q claim", userIdClaim)
	}
	if exp, ok := claims[expClaim].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}
