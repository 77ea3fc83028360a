// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/imagerepo/internal/models"
)

type ctxKey string

const (
	userKey  ctxKey = "user"
	tokenKey ctxKey = "token"
)

// Authenticator resolves a session token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (int64, error)
}

// TokenAuth is a middleware that requires a valid session token.
//
// The token is read from the "Authorization: Bearer <token>" header and resolved
// through auth. On success the user id and the token are stored in the request
// context for the handlers downstream. Failures other than a rejected token are
// logged to log and answered with 500.
func TokenAuth(auth Authenticator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				http.Error(w, "missing session token", http.StatusUnauthorized)
				return
			}

			userID, err := auth.Authenticate(r.Context(), token)
			if errors.Is(err, models.ErrUnauthorized) {
				http.Error(w, "invalid or expired session token", http.StatusUnauthorized)
				return
			}
			if err != nil {
				log.Error("failed to resolve session token", zap.Error(err))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, userID)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken returns the token of a bearer Authorization header, or "".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetUserIDFromContext extracts the authenticated user id from the request context.
// Returns 0 if not found.
func GetUserIDFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(userKey).(int64); ok {
		return id
	}
	return 0
}

// GetTokenFromContext returns the session token the request was authenticated with.
func GetTokenFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(tokenKey).(string); ok {
		return s
	}
	return ""
}
