// Package auth validates tenant API tokens and scopes requests to a store.
package auth

import "errors"

var (
	// ErrMissingToken indicates no token was provided.
	ErrMissingToken = errors.New("missing authentication token")

	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired.
	ErrExpiredToken = errors.New("token has expired")

	// ErrInvalidIssuer indicates the token was issued by an unexpected issuer.
	ErrInvalidIssuer = errors.New("invalid token issuer")

	// ErrMissingStore indicates the token carries no store_id claim.
	ErrMissingStore = errors.New("token has no store_id claim")

	// ErrNoSecretConfigured indicates validation was attempted without a secret.
	ErrNoSecretConfigured = errors.New("no signing secret configured")

	// ErrUnsupportedAlgorithm indicates the token uses a signing algorithm
	// other than HMAC.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
)
