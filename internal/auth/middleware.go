package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const storeContextKey contextKey = "auth_store"

// StoreFromContext retrieves the authenticated store from the request
// context. Returns nil if no store is present.
func StoreFromContext(ctx context.Context) *Store {
	if store, ok := ctx.Value(storeContextKey).(*Store); ok {
		return store
	}
	return nil
}

// ContextWithStore returns a new context with the store attached.
func ContextWithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeContextKey, store)
}

// Middleware validates tenant tokens and attaches the store to the context.
type Middleware struct {
	validator *Validator
}

// NewMiddleware creates authentication middleware over the validator.
func NewMiddleware(validator *Validator) *Middleware {
	return &Middleware{validator: validator}
}

// RequireStore returns middleware that rejects requests without a valid
// tenant token.
func (m *Middleware) RequireStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			store, err := m.validator.ValidateToken(token)
			if err != nil {
				message := "invalid token"
				switch err {
				case ErrExpiredToken:
					message = "token has expired"
				case ErrInvalidIssuer:
					message = "invalid token issuer"
				case ErrMissingStore:
					message = "token is not scoped to a store"
				}
				writeJSONError(w, http.StatusUnauthorized, message)
				return
			}

			ctx := ContextWithStore(r.Context(), store)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken extracts the bearer token from a request.
func ExtractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// errorResponse represents a JSON error response.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}
