package docstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/kinboard/internal/database"
	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/storage"
)

func setupDocstoreTestDB(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, slog.Default())
}

type recorder struct {
	mu      sync.Mutex
	batches [][]storage.Change
}

func (r *recorder) fn(changes []storage.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, changes)
}

func (r *recorder) all() [][]storage.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]storage.Change(nil), r.batches...)
}

func TestClientRequiresPartition(t *testing.T) {
	c := setupDocstoreTestDB(t).Client()
	ctx := context.Background()

	_, err := c.Subscribe(ctx, model.KindGrocery, func([]storage.Change) {})
	assert.ErrorIs(t, err, ErrNoPartition)
	assert.ErrorIs(t, c.Store(ctx, model.KindGrocery, "g1", model.Grocery{}), ErrNoPartition)
	assert.ErrorIs(t, c.Delete(ctx, model.KindGrocery, "g1"), ErrNoPartition)
	assert.ErrorIs(t, c.SetSubfield(ctx, model.KindWeek, "w1", "dinners.0", "d1"), ErrNoPartition)
}

func TestSubscribeDeliversEmptyInitialBatch(t *testing.T) {
	c := setupDocstoreTestDB(t).Client()
	c.ConfigurePartition("fam1")

	var r recorder
	un, err := c.Subscribe(context.Background(), model.KindGrocery, r.fn)
	require.NoError(t, err)
	defer un()

	batches := r.all()
	require.Len(t, batches, 1)
	assert.Empty(t, batches[0])
}

func TestSubscribeDeliversExistingDocumentsAsAdded(t *testing.T) {
	c := setupDocstoreTestDB(t).Client()
	c.ConfigurePartition("fam1")
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, model.KindGrocery, "g1", model.Grocery{ID: "g1", Name: "Milk"}))
	require.NoError(t, c.Store(ctx, model.KindGrocery, "g2", model.Grocery{ID: "g2", Name: "Eggs"}))

	var r recorder
	un, err := c.Subscribe(ctx, model.KindGrocery, r.fn)
	require.NoError(t, err)
	defer un()

	batches := r.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	for _, ch := range batches[0] {
		assert.Equal(t, storage.Added, ch.Type)
	}
}

func TestChangesReachOtherClientsOfTheFamily(t *testing.T) {
	s := setupDocstoreTestDB(t)
	ctx := context.Background()

	writer := s.Client()
	writer.ConfigurePartition("fam1")
	reader := s.Client()
	reader.ConfigurePartition("fam1")
	stranger := s.Client()
	stranger.ConfigurePartition("fam2")

	var got, other recorder
	un, err := reader.Subscribe(ctx, model.KindGrocery, got.fn)
	require.NoError(t, err)
	defer un()
	un2, err := stranger.Subscribe(ctx, model.KindGrocery, other.fn)
	require.NoError(t, err)
	defer un2()

	require.NoError(t, writer.Store(ctx, model.KindGrocery, "g1", model.Grocery{ID: "g1", Name: "Milk"}))
	require.NoError(t, writer.Store(ctx, model.KindGrocery, "g1", model.Grocery{ID: "g1", Name: "Milk", ShopCount: 1}))
	require.NoError(t, writer.Delete(ctx, model.KindGrocery, "g1"))

	batches := got.all()
	require.Len(t, batches, 4)
	assert.Equal(t, storage.Added, batches[1][0].Type)
	assert.Equal(t, storage.Modified, batches[2][0].Type)
	assert.Equal(t, storage.Removed, batches[3][0].Type)

	var g model.Grocery
	require.NoError(t, json.Unmarshal(batches[2][0].Data, &g))
	assert.Equal(t, 1, g.ShopCount)

	assert.Len(t, other.all(), 1, "other families see only their initial batch")
}

func TestDeleteMissingDocumentIsQuiet(t *testing.T) {
	c := setupDocstoreTestDB(t).Client()
	c.ConfigurePartition("fam1")
	ctx := context.Background()

	var r recorder
	un, err := c.Subscribe(ctx, model.KindTodo, r.fn)
	require.NoError(t, err)
	defer un()

	require.NoError(t, c.Delete(ctx, model.KindTodo, "nope"))
	assert.Len(t, r.all(), 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	c := setupDocstoreTestDB(t).Client()
	c.ConfigurePartition("fam1")
	ctx := context.Background()

	var r recorder
	un, err := c.Subscribe(ctx, model.KindDinner, r.fn)
	require.NoError(t, err)
	un()
	un()

	require.NoError(t, c.Store(ctx, model.KindDinner, "d1", model.Dinner{ID: "d1", Name: "Tacos"}))
	assert.Len(t, r.all(), 1)
}

func TestCancelledContextStopsDelivery(t *testing.T) {
	c := setupDocstoreTestDB(t).Client()
	c.ConfigurePartition("fam1")

	ctx, cancel := context.WithCancel(context.Background())
	var r recorder
	_, err := c.Subscribe(ctx, model.KindDinner, r.fn)
	require.NoError(t, err)
	cancel()

	key := watchKey{familyID: "fam1", kind: model.KindDinner}
	assert.Eventually(t, func() bool {
		return len(c.store.watchersOf(key)) == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, c.Store(context.Background(), model.KindDinner, "d1", model.Dinner{ID: "d1"}))
	assert.Len(t, r.all(), 1)
}

func TestSetSubfieldCreatesDocumentWithID(t *testing.T) {
	c := setupDocstoreTestDB(t).Client()
	c.ConfigurePartition("fam1")
	ctx := context.Background()

	var r recorder
	un, err := c.Subscribe(ctx, model.KindWeek, r.fn)
	require.NoError(t, err)
	defer un()

	require.NoError(t, c.SetSubfield(ctx, model.KindWeek, "20260302", "dinners.3", "d1"))
	require.NoError(t, c.SetSubfield(ctx, model.KindWeek, "20260302", "todos.t1.u1", model.Activity{true, false, true}))
	require.NoError(t, c.SetSubfield(ctx, model.KindWeek, "20260302", "todos.t1.u2", model.Activity{false, true}))

	batches := r.all()
	require.Len(t, batches, 4)
	assert.Equal(t, storage.Added, batches[1][0].Type)
	assert.Equal(t, storage.Modified, batches[3][0].Type)

	var w model.Week
	require.NoError(t, json.Unmarshal(batches[3][0].Data, &w))
	assert.Equal(t, "20260302", w.ID)
	assert.Equal(t, "d1", w.Dinners[3])
	assert.Equal(t, "", w.Dinners[0])
	assert.Equal(t, model.Activity{true, false, true}, w.Activity("t1", "u1"))
	assert.Equal(t, model.Activity{false, true}, w.Activity("t1", "u2"))
}

func TestSetSubfieldKeepsSiblings(t *testing.T) {
	c := setupDocstoreTestDB(t).Client()
	c.ConfigurePartition("fam1")
	ctx := context.Background()

	var w model.Week
	w.ID = "w1"
	w.Dinners[0] = "d0"
	w.Dinners[6] = "d6"
	require.NoError(t, c.Store(ctx, model.KindWeek, "w1", w))
	require.NoError(t, c.SetSubfield(ctx, model.KindWeek, "w1", "dinners.2", "d2"))

	docs, err := c.store.Documents(ctx, "fam1", model.KindWeek)
	require.NoError(t, err)
	var got model.Week
	require.NoError(t, json.Unmarshal(docs["w1"], &got))
	assert.Equal(t, [7]string{"d0", "", "d2", "", "", "", "d6"}, got.Dinners)
}

func TestStoreInjectsID(t *testing.T) {
	c := setupDocstoreTestDB(t).Client()
	c.ConfigurePartition("fam1")
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, model.KindDinner, "d1", model.Dinner{Name: "Soup"}))

	docs, err := c.store.Documents(ctx, "fam1", model.KindDinner)
	require.NoError(t, err)
	var d model.Dinner
	require.NoError(t, json.Unmarshal(docs["d1"], &d))
	assert.Equal(t, "d1", d.ID)
	assert.Equal(t, "Soup", d.Name)
}

func TestCreateIDIsUnique(t *testing.T) {
	c := setupDocstoreTestDB(t).Client()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := c.CreateID(model.KindTodo)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestSetPath(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
		path string
		want string
	}{
		{"nested objects", map[string]any{}, "a.b.c", `{"a":{"b":{"c":1}}}`},
		{"array grows", map[string]any{"a": []any{"x"}}, "a.2", `{"a":["x",null,1]}`},
		{"replaces scalar", map[string]any{"a": "x"}, "a.b", `{"a":{"b":1}}`},
		{"object in array", map[string]any{}, "a.0.b", `{"a":[{"b":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, setPath(tt.doc, tt.path, float64(1)))
			got, err := json.Marshal(tt.doc)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}

	assert.Error(t, setPath(map[string]any{}, "a..b", 1))
	assert.Error(t, setPath(map[string]any{}, "id", 1))
	assert.Error(t, setPath(map[string]any{}, "0.a", 1))
}
