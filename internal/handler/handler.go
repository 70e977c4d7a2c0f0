// Package handler exposes the runtime's request helpers as a JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/kinboard/internal/app"
	"github.com/dukerupert/kinboard/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// fail maps a runtime error to a response.
func fail(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, app.ErrEmptyName), errors.Is(err, app.ErrInvalidTodo):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrSignInFailed):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrNoSuchGrocery), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrNotOnList), errors.Is(err, app.ErrNotLoaded),
		errors.Is(err, app.ErrNoFamily), errors.Is(err, storage.ErrNotConfigured):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
