package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/kinboard/internal/app"
	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/database"
	"github.com/dukerupert/kinboard/internal/docstore"
	"github.com/dukerupert/kinboard/internal/identity"
	"github.com/dukerupert/kinboard/internal/lifecycle"
	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/session"
	"github.com/dukerupert/kinboard/internal/storage"
	ws "github.com/dukerupert/kinboard/internal/websocket"
)

type memCache struct{ token string }

func (c *memCache) Load() (string, error)   { return c.token, nil }
func (c *memCache) Save(token string) error { c.token = token; return nil }
func (c *memCache) Clear() error            { c.token = ""; return nil }

func setupServer(t *testing.T) (*httptest.Server, *identity.Service) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.Default()
	b := bus.New(logger)
	docs := docstore.New(db, logger)
	ids := identity.New(db, docs, &memCache{}, b, logger, identity.Options{Secret: []byte("test-secret")})
	store := storage.New(docs.Client(), b, logger, storage.Options{})
	rt := app.New(app.Deps{
		Bus:        b,
		Storage:    store,
		Identity:   ids,
		Versions:   lifecycle.NewVersionChecker(lifecycle.VersionConfig{Current: "dev"}, b, logger),
		Visibility: lifecycle.NewVisibility(b),
	}, logger, app.Options{})
	t.Cleanup(rt.Close)

	hub := ws.NewHub(logger)
	t.Cleanup(hub.Attach(b))
	rt.Start()
	rt.Settle()

	srv := httptest.NewServer(New(rt, store, hub, time.Now, logger).Router())
	t.Cleanup(srv.Close)
	return srv, ids
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestGroceryFlowOverHTTP(t *testing.T) {
	srv, ids := setupServer(t)

	resp := post(t, srv.URL+"/api/groceries", `{"name":"Milk"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "no family loaded yet")

	_, err := ids.Register(context.Background(), "ann@example.com", "Ann", "pw")
	require.NoError(t, err)

	resp = post(t, srv.URL+"/api/family", `{"name":"Smiths"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var s session.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, session.SignedIn, s.Name)

	resp = post(t, srv.URL+"/api/groceries", `{"name":"Milk"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var g model.Grocery
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&g))
	assert.Equal(t, "Milk", g.Name)
	assert.Equal(t, 1, g.ShopCount)

	list, err := http.Get(srv.URL + "/api/groceries")
	require.NoError(t, err)
	defer list.Body.Close()
	var items []model.Grocery
	require.NoError(t, json.NewDecoder(list.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, g.ID, items[0].ID)

	resp = post(t, srv.URL+"/api/groceries/Milk/shop", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = post(t, srv.URL+"/api/groceries/Milk/shop", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	state, err := http.Get(srv.URL + "/api/state")
	require.NoError(t, err)
	defer state.Body.Close()
	var snap app.Snapshot
	require.NoError(t, json.NewDecoder(state.Body).Decode(&snap))
	assert.Equal(t, session.SignedIn, snap.Session.Name)
	assert.Contains(t, snap.Dashboard.Data.Groceries, g.ID)
}
