package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/kinboard/internal/app"
	"github.com/dukerupert/kinboard/internal/grocery"
	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/session"
	"github.com/dukerupert/kinboard/internal/storage"
)

type fakeRuntime struct {
	groceries map[string]model.Grocery
	todos     map[string]model.Todo
	visible   *bool
	drafts    []app.TodoDraft
}

func newFake() *fakeRuntime {
	return &fakeRuntime{
		groceries: map[string]model.Grocery{},
		todos:     map[string]model.Todo{},
	}
}

func (f *fakeRuntime) SignIn(email, password string) (session.State, error) {
	if password != "pw" {
		return session.State{Name: session.Error}, fmt.Errorf("%w: wrong password", app.ErrSignInFailed)
	}
	return session.State{Name: session.SignedIn, User: model.User{Email: email}}, nil
}

func (f *fakeRuntime) SignOut() session.State { return session.State{Name: session.SignedOut} }

func (f *fakeRuntime) CreateFamily(name string) (session.State, error) {
	if strings.TrimSpace(name) == "" {
		return session.State{}, app.ErrEmptyName
	}
	return session.State{Name: session.SignedIn}, nil
}

func (f *fakeRuntime) Snapshot() app.Snapshot {
	return app.Snapshot{Session: session.State{Name: session.SignedOut}}
}

func (f *fakeRuntime) SetVisible(v bool) { f.visible = &v }

func (f *fakeRuntime) AddGrocery(name string) (model.Grocery, error) {
	g := model.Grocery{ID: "g-" + name, Name: name, ShopCount: 1}
	f.groceries[g.ID] = g
	return g, nil
}

func (f *fakeRuntime) ShopGrocery(name string) (model.Grocery, error) {
	for _, g := range f.groceries {
		if g.Name == name {
			if g.ShopCount == 0 {
				return g, app.ErrNotOnList
			}
			g.ShopCount = 0
			f.groceries[g.ID] = g
			return g, nil
		}
	}
	return model.Grocery{}, app.ErrNoSuchGrocery
}

func (f *fakeRuntime) Groceries() map[string]model.Grocery { return f.groceries }

func (f *fakeRuntime) AddTodo(d app.TodoDraft) (string, error) {
	if d.Description == "" {
		return "", app.ErrInvalidTodo
	}
	f.drafts = append(f.drafts, d)
	return "t1", nil
}

func (f *fakeRuntime) ToggleCheckListItem(todoID, itemID string) (model.CheckListItem, error) {
	if itemID != "i1" {
		return model.CheckListItem{}, storage.ErrNotFound
	}
	return model.CheckListItem{ID: itemID, TodoID: todoID, Completed: true}, nil
}

func (f *fakeRuntime) Todos() map[string]model.Todo { return f.todos }

func serve(t *testing.T, h http.HandlerFunc, method, pattern, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(method+" "+pattern, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSessionEndpoints(t *testing.T) {
	f := newFake()
	h := NewSessionHandler(f, slog.Default())

	rec := serve(t, h.SignIn, "POST", "/api/session", "/api/session", `{"email":"ann@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	var s session.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, session.SignedIn, s.Name)

	rec = serve(t, h.SignIn, "POST", "/api/session", "/api/session", `{"email":"ann@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, h.SignIn, "POST", "/api/session", "/api/session", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h.SignIn, "POST", "/api/session", "/api/session", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h.CreateFamily, "POST", "/api/family", "/api/family", `{"name":" "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = serve(t, h.CreateFamily, "POST", "/api/family", "/api/family", `{"name":"Smiths"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(t, h.Visibility, "POST", "/api/visibility", "/api/visibility", `{"visible":true}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, f.visible)
	assert.True(t, *f.visible)

	rec = serve(t, h.State, "GET", "/api/state", "/api/state", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), session.SignedOut)
}

func TestGroceryEndpoints(t *testing.T) {
	f := newFake()
	h := NewGroceryHandler(f, f, slog.Default())

	rec := serve(t, h.Create, "POST", "/api/groceries", "/api/groceries", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h.Create, "POST", "/api/groceries", "/api/groceries", `{"name":"Milk"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	f.groceries["g-Eggs"] = model.Grocery{ID: "g-Eggs", Name: "Eggs"}

	rec = serve(t, h.List, "GET", "/api/groceries", "/api/groceries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []shoppingItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1, "only groceries with a shop count are listed")
	assert.Equal(t, "Milk", list[0].Name)
	assert.Equal(t, 1.0, list[0].Priority)
	assert.Equal(t, grocery.Dairy, list[0].Aisle)

	rec = serve(t, h.List, "GET", "/api/groceries", "/api/groceries?q=Egg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var found []model.Grocery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "Eggs", found[0].Name)

	rec = serve(t, h.Shop, "POST", "/api/groceries/{name}/shop", "/api/groceries/Milk/shop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = serve(t, h.Shop, "POST", "/api/groceries/{name}/shop", "/api/groceries/Milk/shop", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = serve(t, h.Shop, "POST", "/api/groceries/{name}/shop", "/api/groceries/Cheese/shop", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTodoEndpoints(t *testing.T) {
	f := newFake()
	monday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	wednesday := model.Date{Year: 2026, Month: 3, Day: 4}
	f.todos["t0"] = model.Todo{ID: "t0", Description: "Bins", Date: &wednesday}
	h := NewTodoHandler(f, f, func() time.Time { return monday }, slog.Default())

	rec := serve(t, h.Create, "POST", "/api/todos", "/api/todos", `{"description":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h.Create, "POST", "/api/todos", "/api/todos",
		`{"description":"Camping","date":{"year":2026,"month":3,"day":6},"checklist":["Tent"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.drafts, 1)
	assert.Equal(t, &model.Date{Year: 2026, Month: 3, Day: 6}, f.drafts[0].Date)
	assert.Equal(t, []string{"Tent"}, f.drafts[0].CheckList)

	rec = serve(t, h.Week, "GET", "/api/todos", "/api/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var week struct {
		Week     string          `json:"week"`
		Weekdays [7][]model.Todo `json:"weekdays"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &week))
	assert.Equal(t, "20260302", week.Week)
	require.Len(t, week.Weekdays[2], 1)
	assert.Equal(t, "Bins", week.Weekdays[2][0].Description)

	rec = serve(t, h.ToggleItem, "POST", "/api/todos/{id}/items/{item_id}/toggle", "/api/todos/t0/items/i1/toggle", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = serve(t, h.ToggleItem, "POST", "/api/todos/{id}/items/{item_id}/toggle", "/api/todos/t0/items/i9/toggle", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
