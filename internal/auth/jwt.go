package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Store represents the authenticated tenant extracted from a token.
type Store struct {
	ID        string
	Claims    jwt.MapClaims
	Token     string
	ExpiresAt time.Time
}

// Config holds token validation configuration.
type Config struct {
	Issuer string // Expected issuer (iss claim); empty skips the check
	Secret string // HMAC signing secret
}

// Validator validates tenant tokens signed with HS256.
type Validator struct {
	config Config
	logger *slog.Logger
}

// NewValidator creates a token validator.
func NewValidator(config Config) *Validator {
	return &Validator{
		config: config,
		logger: slog.Default().With("component", "auth"),
	}
}

// NewValidatorWithLogger creates a validator with a custom logger.
func NewValidatorWithLogger(config Config, logger *slog.Logger) *Validator {
	v := NewValidator(config)
	if logger != nil {
		v.logger = logger.With("component", "auth")
	}
	return v
}

// ValidateToken validates a token string and returns the tenant it belongs to.
func (v *Validator) ValidateToken(tokenStr string) (*Store, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, t.Method.Alg())
		}
		if v.config.Secret == "" {
			return nil, ErrNoSecretConfigured
		}
		return []byte(v.config.Secret), nil
	})
	if err != nil {
		v.logger.Debug("token validation failed", "error", err)
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if v.config.Issuer != "" {
		iss, _ := claims.GetIssuer()
		if iss != v.config.Issuer {
			return nil, ErrInvalidIssuer
		}
	}

	storeID, _ := claims["store_id"].(string)
	if storeID == "" {
		return nil, ErrMissingStore
	}

	store := &Store{
		ID:     storeID,
		Claims: claims,
		Token:  tokenStr,
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		store.ExpiresAt = exp.Time
	}
	return store, nil
}
