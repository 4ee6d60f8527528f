// Package security provides cryptographic utilities for webhook signing and verification.
package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Header names carried on every outbound delivery. Receivers recompute the
// HMAC over the raw request body and compare against SignatureHeader.
const (
	SignatureHeader = "X-Shopcore-Signature"
	TimestampHeader = "X-Shopcore-Timestamp"
	EventHeader     = "X-Shopcore-Event"
)

// SecretLength is the number of random bytes in a subscription secret.
// 32 bytes gives 256 bits of entropy, hex-encoded to 64 characters.
const SecretLength = 32

// SignPayload generates an HMAC-SHA256 signature for the given payload.
// The payload must be the exact bytes transmitted on the wire; signing a
// re-serialization of the logical object breaks receiver-side verification.
func SignPayload(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature verifies that the provided signature matches the expected
// signature. Uses constant-time comparison to prevent timing attacks.
func VerifySignature(secret string, payload []byte, signature string) bool {
	expected := SignPayload(secret, payload)
	return constantTimeEqual(expected, signature)
}

// GenerateSecret generates a cryptographically random signing secret,
// hex-encoded.
func GenerateSecret() (string, error) {
	buf := make([]byte, SecretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// constantTimeEqual performs a constant-time comparison of two hex strings.
func constantTimeEqual(a, b string) bool {
	aBytes, aErr := hex.DecodeString(a)
	bBytes, bErr := hex.DecodeString(b)

	if aErr != nil || bErr != nil {
		return false
	}

	return subtle.ConstantTimeCompare(aBytes, bBytes) == 1
}
