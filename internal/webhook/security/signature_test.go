package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignPayload(t *testing.T) {
	secret := "my-secret-key"
	payload := []byte(`{"event":"order.created","timestamp":1704067200000,"data":{"order_id":"abc123"}}`)

	signature := SignPayload(secret, payload)

	assert.NotEmpty(t, signature)
	assert.Len(t, signature, 64) // SHA256 produces 32 bytes = 64 hex chars
}

func TestSignPayload_Deterministic(t *testing.T) {
	secret := "my-secret-key"
	payload := []byte(`{"event":"test"}`)

	sig1 := SignPayload(secret, payload)
	sig2 := SignPayload(secret, payload)

	assert.Equal(t, sig1, sig2)
}

func TestVerifySignature_Valid(t *testing.T) {
	secret := "my-secret-key"
	payload := []byte(`{"event":"stock.low"}`)

	signature := SignPayload(secret, payload)

	assert.True(t, VerifySignature(secret, payload, signature))
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	payload := []byte(`{"event":"stock.low"}`)
	signature := SignPayload("secret-1", payload)

	assert.False(t, VerifySignature("secret-2", payload, signature))
}

func TestVerifySignature_MutatedPayload(t *testing.T) {
	secret := "my-secret-key"
	payload := []byte(`{"event":"order.created"}`)
	signature := SignPayload(secret, payload)

	// Flip a single byte.
	mutated := append([]byte(nil), payload...)
	mutated[len(mutated)-2] = 'x'

	assert.False(t, VerifySignature(secret, mutated, signature))
}

func TestVerifySignature_NotHex(t *testing.T) {
	assert.False(t, VerifySignature("secret", []byte("payload"), "not-a-hex-signature"))
}

func TestGenerateSecret(t *testing.T) {
	s1, err := GenerateSecret()
	require.NoError(t, err)
	s2, err := GenerateSecret()
	require.NoError(t, err)

	assert.Len(t, s1, SecretLength*2)
	assert.NotEqual(t, s1, s2)
}

func TestGenerateSecret_SignsAndVerifies(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)

	payload := []byte(`{"event":"payment.received"}`)
	sig := SignPayload(secret, payload)

	assert.True(t, VerifySignature(secret, payload, sig))
}
