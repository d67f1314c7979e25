package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestNewAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken(testSecret, 42, "clergy", 15)
	require.NoError(t, err)
	require.NotEmpty(t, at.Token)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), at.Exp, 5*time.Second)

	claims, err := VerifyAccessToken(testSecret, at.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "clergy", claims.Role)
}

func TestVerifyAccessTokenWrongSecret(t *testing.T) {
	at, err := NewAccessToken(testSecret, 1, "student", 15)
	require.NoError(t, err)

	_, err = VerifyAccessToken("other-secret", at.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	// Sign a token whose exp is already in the past.
	claims := jwt.MapClaims{
		"sub":  float64(7),
		"role": "student",
		"exp":  time.Now().UTC().Add(-time.Minute).Unix(),
		"iat":  time.Now().UTC().Add(-2 * time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = VerifyAccessToken(testSecret, signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyAccessTokenGarbage(t *testing.T) {
	_, err := VerifyAccessToken(testSecret, "not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyAccessTokenMissingRole(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": float64(7),
		"exp": time.Now().UTC().Add(time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = VerifyAccessToken(testSecret, signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
