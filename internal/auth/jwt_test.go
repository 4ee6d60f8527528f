package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidator_ValidToken(t *testing.T) {
	v := NewValidator(Config{Secret: testSecret})

	tokenStr := signToken(t, testSecret, jwt.MapClaims{
		"store_id": "store-1",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	store, err := v.ValidateToken(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "store-1", store.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), store.ExpiresAt, 5*time.Second)
}

func TestValidator_MissingToken(t *testing.T) {
	v := NewValidator(Config{Secret: testSecret})

	_, err := v.ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestValidator_WrongSecret(t *testing.T) {
	v := NewValidator(Config{Secret: testSecret})

	tokenStr := signToken(t, "other-secret", jwt.MapClaims{"store_id": "store-1"})

	_, err := v.ValidateToken(tokenStr)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidator_ExpiredToken(t *testing.T) {
	v := NewValidator(Config{Secret: testSecret})

	tokenStr := signToken(t, testSecret, jwt.MapClaims{
		"store_id": "store-1",
		"exp":      time.Now().Add(-time.Hour).Unix(),
	})

	_, err := v.ValidateToken(tokenStr)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidator_MissingStoreClaim(t *testing.T) {
	v := NewValidator(Config{Secret: testSecret})

	tokenStr := signToken(t, testSecret, jwt.MapClaims{"sub": "someone"})

	_, err := v.ValidateToken(tokenStr)
	assert.ErrorIs(t, err, ErrMissingStore)
}

func TestValidator_IssuerCheck(t *testing.T) {
	v := NewValidator(Config{Secret: testSecret, Issuer: "shopcore"})

	good := signToken(t, testSecret, jwt.MapClaims{"store_id": "store-1", "iss": "shopcore"})
	_, err := v.ValidateToken(good)
	assert.NoError(t, err)

	bad := signToken(t, testSecret, jwt.MapClaims{"store_id": "store-1", "iss": "someone-else"})
	_, err = v.ValidateToken(bad)
	assert.ErrorIs(t, err, ErrInvalidIssuer)
}
