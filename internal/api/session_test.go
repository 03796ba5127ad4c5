package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestParseSessionClaims(t *testing.T) {
	t.Run("extracts user id and expiry", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).Unix()
		token := signToken(t, jwt.MapClaims{
			userIdClaim: "u1",
			expClaim:    exp,
		})

		claims, err := ParseSessionClaims(token)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.UserId)
		assert.Equal(t, time.Unix(exp, 0), claims.ExpiresAt)
		assert.False(t, claims.Expired(time.Now()))
	})

	t.Run("missing user id claim fails", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"sub": "u1"})

		_, err := ParseSessionClaims(token)
		assert.Error(t, err)
	})

	t.Run("malformed token fails", func(t *testing.T) {
		_, err := ParseSessionClaims("not-a-token")
		assert.Error(t, err)
	})

	t.Run("no expiry never expires", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{userIdClaim: "u1"})

		claims, err := ParseSessionClaims(token)
		require.NoError(t, err)
		assert.False(t, claims.Expired(time.Now().Add(24 * time.Hour)))
	})

	t.Run("past expiry reports expired", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{
			userIdClaim: "u1",
			expClaim:    time.Now().Add(-time.Hour).Unix(),
		})

		claims, err := ParseSessionClaims(token)
		require.NoError(t, err)
		assert.True(t, claims.Expired(time.Now()))
	})
}
