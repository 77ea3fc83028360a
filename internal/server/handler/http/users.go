package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/imagerepo/internal/middleware"
	"github.com/atinyakov/imagerepo/internal/models"
)

// UserService defines the user operations required by the HTTP handlers.
type UserService interface {
	Register(ctx context.Context, u *models.User) error
	Update(ctx context.Context, requesterID int64, u *models.User) error
	Unregister(ctx context.Context, requesterID, userID int64) error
	Get(ctx context.Context, id int64) (*models.User, error)
	SearchByEmail(ctx context.Context, email string) ([]models.User, error)
	SearchByName(ctx context.Context, first, last string) ([]models.User, error)
}

// UserHandler handles HTTP requests for user registration and lookup.
// Users are always returned without their secret.
type UserHandler struct {
	UserService UserService
	Log         *zap.Logger
}

// Register creates a user from the JSON body.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var u models.User
	if !decodeJSON(w, r, &u) {
		return
	}
	if err := h.UserService.Register(r.Context(), &u); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, u.Redacted())
}

// Update overwrites the caller's profile. The body must carry the current revision.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var u models.User
	if !decodeJSON(w, r, &u) {
		return
	}
	requester := middleware.GetUserIDFromContext(r.Context())
	if u.ID == 0 {
		u.ID = requester
	}
	if err := h.UserService.Update(r.Context(), requester, &u); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Redacted())
}

// Unregister deletes the caller's account.
func (h *UserHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID int64 `json:"id"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	requester := middleware.GetUserIDFromContext(r.Context())
	if req.ID == 0 {
		req.ID = requester
	}
	if err := h.UserService.Unregister(r.Context(), requester, req.ID); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Get returns the user named by the {id} URL parameter.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	u, err := h.UserService.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Redacted())
}

// Search looks users up by ?email= or by ?first= and/or ?last=.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		users []models.User
		err   error
	)
	if email := q.Get("email"); email != "" {
		users, err = h.UserService.SearchByEmail(r.Context(), email)
	} else {
		users, err = h.UserService.SearchByName(r.Context(), q.Get("first"), q.Get("last"))
	}
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	redacted := make([]models.User, len(users))
	for i, u := range users {
		redacted[i] = u.Redacted()
	}
	writeJSON(w, http.StatusOK, redacted)
}
