package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/kinboard/internal/app"
	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/selectors"
)

type Todos interface {
	AddTodo(d app.TodoDraft) (string, error)
	ToggleCheckListItem(todoID, itemID string) (model.CheckListItem, error)
}

type TodoReader interface {
	Todos() map[string]model.Todo
}

type TodoHandler struct {
	todos  Todos
	reader TodoReader
	now    func() time.Time
	logger *slog.Logger
}

func NewTodoHandler(t Todos, reader TodoReader, now func() time.Time, logger *slog.Logger) *TodoHandler {
	if now == nil {
		now = time.Now
	}
	return &TodoHandler{todos: t, reader: reader, now: now, logger: logger}
}

// Week returns this week's todos by weekday, Monday first. ?week=next
// selects the following week.
func (h *TodoHandler) Week(w http.ResponseWriter, r *http.Request) {
	weekID := selectors.WeekID(h.now())
	if r.URL.Query().Get("week") == "next" {
		weekID = selectors.NextWeekID(h.now())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"week":     weekID,
		"weekdays": selectors.TodosByWeekday(h.reader.Todos(), weekID),
	})
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req app.TodoDraft
	if !decode(w, r, &req) {
		return
	}
	id, err := h.todos.AddTodo(req)
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *TodoHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.todos.ToggleCheckListItem(r.PathValue("id"), r.PathValue("item_id"))
	if err != nil {
		fail(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
