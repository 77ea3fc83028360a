package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/imagerepo/internal/models"
)

// statusFor maps a core error to the HTTP status reported to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrLoginFailed):
		return http.StatusUnauthorized
	case models.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Storage errors are logged and hidden behind "internal error".
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return false
	}
	return true
}
