package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/kinboard/internal/app"
	"github.com/dukerupert/kinboard/internal/handler"
	"github.com/dukerupert/kinboard/internal/middleware"
	"github.com/dukerupert/kinboard/internal/storage"
	ws "github.com/dukerupert/kinboard/internal/websocket"
)

type Server struct {
	hub      *ws.Hub
	sessionH *handler.SessionHandler
	groceryH *handler.GroceryHandler
	todoH    *handler.TodoHandler
	logger   *slog.Logger
}

func New(rt *app.Runtime, store *storage.Storage, hub *ws.Hub, now func() time.Time, logger *slog.Logger) *Server {
	return &Server{
		hub:      hub,
		sessionH: handler.NewSessionHandler(rt, logger.With("component", "session")),
		groceryH: handler.NewGroceryHandler(rt, store, logger.With("component", "grocery")),
		todoH:    handler.NewTodoHandler(rt, store, now, logger.With("component", "todo")),
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.Handler(s.hub))

	// Session
	mux.HandleFunc("GET /api/state", s.sessionH.State)
	mux.HandleFunc("POST /api/session", s.sessionH.SignIn)
	mux.HandleFunc("DELETE /api/session", s.sessionH.SignOut)
	mux.HandleFunc("POST /api/family", s.sessionH.CreateFamily)
	mux.HandleFunc("POST /api/visibility", s.sessionH.Visibility)

	// Groceries
	mux.HandleFunc("GET /api/groceries", s.groceryH.List)
	mux.HandleFunc("POST /api/groceries", s.groceryH.Create)
	mux.HandleFunc("POST /api/groceries/{name}/shop", s.groceryH.Shop)

	// Todos
	mux.HandleFunc("GET /api/todos", s.todoH.Week)
	mux.HandleFunc("POST /api/todos", s.todoH.Create)
	mux.HandleFunc("POST /api/todos/{id}/items/{item_id}/toggle", s.todoH.ToggleItem)

	httpLogger := s.logger.With("component", "http")
	return middleware.RequestLogger(httpLogger)(middleware.Recover(httpLogger)(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "clients": s.hub.ClientCount()})
}
