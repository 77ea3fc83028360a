// Package http provides the HTTP handlers of the image repository API.
package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/imagerepo/internal/middleware"
	"github.com/atinyakov/imagerepo/internal/models"
)

// AuthService defines the authentication operations required by the HTTP handlers.
type AuthService interface {
	Login(ctx context.Context, email, secret string) (*models.Session, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (int64, error)
}

// AuthHandler handles HTTP requests for login and logout.
type AuthHandler struct {
	AuthService AuthService
	Log         *zap.Logger
}

// LoginRequest is the JSON payload of POST /login.
type LoginRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Token    string    `json:"token"`
	Validity time.Time `json:"validity"`
	UserID   int64     `json:"userId"`
}

// Login exchanges credentials for a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.AuthService.Login(r.Context(), req.Email, req.Secret)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:    session.Token,
		Validity: session.Validity,
		UserID:   session.UserID,
	})
}

// Logout revokes the token the request was authenticated with.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), middleware.GetTokenFromContext(r.Context())); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ping reports that the server is up.
func Ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
