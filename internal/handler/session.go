package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/kinboard/internal/app"
	"github.com/dukerupert/kinboard/internal/session"
)

// Sessions is the part of the runtime the session endpoints drive.
type Sessions interface {
	SignIn(email, password string) (session.State, error)
	SignOut() session.State
	CreateFamily(name string) (session.State, error)
	Snapshot() app.Snapshot
	SetVisible(visible bool)
}

type SessionHandler struct {
	sessions Sessions
	logger   *slog.Logger
}

func NewSessionHandler(s Sessions, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: s, logger: logger}
}

// State returns everything needed to render the current screen.
func (h *SessionHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Snapshot())
}

func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req session.Credentials
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	s, err := h.sessions.SignIn(req.Email, req.Password)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.SignOut())
}

func (h *SessionHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var req session.NewFamily
	if !decode(w, r, &req) {
		return
	}
	s, err := h.sessions.CreateFamily(req.Name)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

// Visibility reports the client moving to the foreground or background.
func (h *SessionHandler) Visibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if !decode(w, r, &req) {
		return
	}
	h.sessions.SetVisible(req.Visible)
	w.WriteHeader(http.StatusNoContent)
}
