// Package docstore is the authoritative document store behind storage. It
// keeps one JSON document per (family, kind, id) in SQLite and pushes every
// change to the subscribers of that family and kind, across all clients.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/storage"
)

// ErrNoPartition is returned by client calls made before ConfigurePartition.
var ErrNoPartition = errors.New("docstore: no family partition configured")

type watchKey struct {
	familyID string
	kind     model.Kind
}

// Store is shared by every client of one database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// mu serializes writes so change batches reach watchers in commit order.
	mu sync.Mutex
	// deliverMu is taken before mu is released and held while watchers run.
	deliverMu sync.Mutex

	wmu      sync.Mutex
	watchers map[watchKey]map[int]func([]storage.Change)
	nextID   int
}

func New(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{
		db:       db,
		logger:   logger.With("component", "docstore"),
		watchers: make(map[watchKey]map[int]func([]storage.Change)),
	}
}

// Client returns a new client with no partition configured.
func (s *Store) Client() *Client {
	return &Client{store: s}
}

func (s *Store) watch(key watchKey, fn func([]storage.Change)) func() {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.nextID++
	id := s.nextID
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[int]func([]storage.Change))
	}
	s.watchers[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.wmu.Lock()
			defer s.wmu.Unlock()
			delete(s.watchers[key], id)
			if len(s.watchers[key]) == 0 {
				delete(s.watchers, key)
			}
		})
	}
}

func (s *Store) watchersOf(key watchKey) []func([]storage.Change) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	fns := make([]func([]storage.Change), 0, len(s.watchers[key]))
	for _, fn := range s.watchers[key] {
		fns = append(fns, fn)
	}
	return fns
}

// commit runs fn under the write lock and delivers the change it returns,
// if any, to the watchers of key. Watchers must not write synchronously.
func (s *Store) commit(key watchKey, fn func() (*storage.Change, error)) error {
	s.mu.Lock()
	change, err := fn()
	if err != nil || change == nil {
		s.mu.Unlock()
		return err
	}
	watchers := s.watchersOf(key)
	s.deliverMu.Lock()
	s.mu.Unlock()
	defer s.deliverMu.Unlock()

	batch := []storage.Change{*change}
	for _, w := range watchers {
		w(batch)
	}
	return nil
}

// Documents returns every document of kind in the family partition, keyed by id.
func (s *Store) Documents(ctx context.Context, familyID string, kind model.Kind) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE family_id = ? AND kind = ? ORDER BY id`,
		familyID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	docs := make(map[string]json.RawMessage)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		docs[id] = json.RawMessage(data)
	}
	return docs, rows.Err()
}

// Put stores a document in an explicit family partition. Services that act
// for several families, such as identity, use it instead of a Client.
func (s *Store) Put(ctx context.Context, familyID string, kind model.Kind, id string, doc any) error {
	return s.put(ctx, watchKey{familyID: familyID, kind: kind}, id, doc)
}

func (s *Store) exists(ctx context.Context, tx *sql.Tx, key watchKey, id string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE family_id = ? AND kind = ? AND id = ?`,
		key.familyID, string(key.kind), id).Scan(&n)
	return n > 0, err
}

func (s *Store) upsert(ctx context.Context, tx *sql.Tx, key watchKey, id string, data []byte) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO documents (family_id, kind, id, data, modified_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (family_id, kind, id) DO UPDATE SET data = excluded.data, modified_at = excluded.modified_at`,
		key.familyID, string(key.kind), id, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) put(ctx context.Context, key watchKey, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", key.kind, id, err)
	}
	data, err = withID(data, id)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", key.kind, id, err)
	}

	return s.commit(key, func() (*storage.Change, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		existed, err := s.exists(ctx, tx, key, id)
		if err != nil {
			return nil, fmt.Errorf("lookup %s %s: %w", key.kind, id, err)
		}
		if err := s.upsert(ctx, tx, key, id, data); err != nil {
			return nil, fmt.Errorf("store %s %s: %w", key.kind, id, err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		return &storage.Change{Type: changeType(existed), ID: id, Data: data}, nil
	})
}

func (s *Store) setSubfield(ctx context.Context, key watchKey, id, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return s.commit(key, func() (*storage.Change, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		doc := map[string]any{}
		var current string
		err = tx.QueryRowContext(ctx,
			`SELECT data FROM documents WHERE family_id = ? AND kind = ? AND id = ?`,
			key.familyID, string(key.kind), id).Scan(&current)
		existed := err == nil
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, fmt.Errorf("lookup %s %s: %w", key.kind, id, err)
		default:
			if err := json.Unmarshal([]byte(current), &doc); err != nil {
				return nil, fmt.Errorf("decode %s %s: %w", key.kind, id, err)
			}
		}

		doc["id"] = id
		if err := setPath(doc, path, v); err != nil {
			return nil, err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", key.kind, id, err)
		}
		if err := s.upsert(ctx, tx, key, id, data); err != nil {
			return nil, fmt.Errorf("store %s %s: %w", key.kind, id, err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		return &storage.Change{Type: changeType(existed), ID: id, Data: data}, nil
	})
}

func (s *Store) remove(ctx context.Context, key watchKey, id string) error {
	return s.commit(key, func() (*storage.Change, error) {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM documents WHERE family_id = ? AND kind = ? AND id = ?`,
			key.familyID, string(key.kind), id)
		if err != nil {
			return nil, fmt.Errorf("delete %s %s: %w", key.kind, id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return nil, nil
		}
		return &storage.Change{Type: storage.Removed, ID: id}, nil
	})
}

// subscribe registers fn and hands it the current documents as one batch.
// Holding mu keeps writes from slipping between the read and the
// registration.
func (s *Store) subscribe(ctx context.Context, key watchKey, fn func([]storage.Change)) (func(), error) {
	s.mu.Lock()
	docs, err := s.Documents(ctx, key.familyID, key.kind)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	unwatch := s.watch(key, fn)
	s.deliverMu.Lock()
	s.mu.Unlock()

	initial := make([]storage.Change, 0, len(docs))
	for id, data := range docs {
		initial = append(initial, storage.Change{Type: storage.Added, ID: id, Data: data})
	}
	fn(initial)
	s.deliverMu.Unlock()

	stop := context.AfterFunc(ctx, unwatch)
	return func() {
		stop()
		unwatch()
	}, nil
}

func changeType(existed bool) storage.ChangeType {
	if existed {
		return storage.Modified
	}
	return storage.Added
}

// withID makes sure the encoded document carries its id.
func withID(data []byte, id string) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if doc["id"] == id {
		return data, nil
	}
	doc["id"] = id
	return json.Marshal(doc)
}

// Client is one device's view of the store, scoped to a family partition.
type Client struct {
	store *Store

	mu       sync.Mutex
	familyID string
}

var _ storage.Persistence = (*Client)(nil)

func (c *Client) ConfigurePartition(familyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.familyID = familyID
}

func (c *Client) key(kind model.Kind) (watchKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.familyID == "" {
		return watchKey{}, ErrNoPartition
	}
	return watchKey{familyID: c.familyID, kind: kind}, nil
}

// CreateID returns a new sortable unique id.
func (c *Client) CreateID(model.Kind) string {
	return ulid.Make().String()
}

func (c *Client) Subscribe(ctx context.Context, kind model.Kind, fn func([]storage.Change)) (func(), error) {
	key, err := c.key(kind)
	if err != nil {
		return nil, err
	}
	return c.store.subscribe(ctx, key, fn)
}

func (c *Client) Store(ctx context.Context, kind model.Kind, id string, doc any) error {
	key, err := c.key(kind)
	if err != nil {
		return err
	}
	return c.store.put(ctx, key, id, doc)
}

// Delete removes the document. Deleting a missing document is not an error.
func (c *Client) Delete(ctx context.Context, kind model.Kind, id string) error {
	key, err := c.key(kind)
	if err != nil {
		return err
	}
	return c.store.remove(ctx, key, id)
}

// SetSubfield writes value at a dotted path inside the document, creating
// the document and any intermediate objects or arrays it needs. Numeric path
// segments index arrays.
func (c *Client) SetSubfield(ctx context.Context, kind model.Kind, id, path string, value any) error {
	key, err := c.key(kind)
	if err != nil {
		return err
	}
	return c.store.setSubfield(ctx, key, id, path, value)
}
