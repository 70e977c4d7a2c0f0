package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/kinboard/internal/model"
)

// ChangeType tags a per-document change delivered by the remote store.
type ChangeType string

const (
	Added    ChangeType = "added"
	Modified ChangeType = "modified"
	Removed  ChangeType = "removed"
)

// Change is one document change in a snapshot batch. Data is empty for
// removals.
type Change struct {
	Type ChangeType      `json:"type"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
}

// collection is the in-memory cache for one entity kind. items is what
// readers see; confirmed is the last state delivered by the remote store.
type collection[T any] struct {
	kind   model.Kind
	update string
	loaded bool

	items     map[string]T
	confirmed map[string]T

	// pending holds the Modified stamp of optimistic writes not yet echoed
	// back by the remote store.
	pending map[string]time.Time
	// deleting holds ids removed locally whose delete is not yet confirmed.
	deleting map[string]struct{}

	modified func(T) time.Time
	clone    func(T) T
}

func newCollection[T any](kind model.Kind, update string, modified func(T) time.Time, clone func(T) T) *collection[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	c := &collection[T]{
		kind:     kind,
		update:   update,
		modified: modified,
		clone:    clone,
	}
	c.reset()
	return c
}

func (c *collection[T]) reset() {
	c.loaded = false
	c.items = make(map[string]T)
	c.confirmed = make(map[string]T)
	c.pending = make(map[string]time.Time)
	c.deleting = make(map[string]struct{})
}

func (c *collection[T]) snapshot() map[string]T {
	out := make(map[string]T, len(c.items))
	for id, v := range c.items {
		out[id] = c.clone(v)
	}
	return out
}

func (c *collection[T]) get(id string) (T, bool) {
	v, ok := c.items[id]
	return v, ok
}

// put records an optimistic write.
func (c *collection[T]) put(id string, v T) {
	c.items[id] = v
	if c.modified != nil {
		c.pending[id] = c.modified(v)
	}
	delete(c.deleting, id)
}

// remove records an optimistic delete.
func (c *collection[T]) remove(id string) {
	delete(c.items, id)
	delete(c.pending, id)
	c.deleting[id] = struct{}{}
}

// storeFailed settles a rejected write. With rollback the last confirmed
// record is restored, otherwise the optimistic value stays visible.
func (c *collection[T]) storeFailed(id string, rollback bool) {
	delete(c.pending, id)
	if !rollback {
		return
	}
	if v, ok := c.confirmed[id]; ok {
		c.items[id] = v
	} else {
		delete(c.items, id)
	}
}

// deleteFailed settles a rejected delete.
func (c *collection[T]) deleteFailed(id string, rollback bool) {
	delete(c.deleting, id)
	if !rollback {
		return
	}
	if v, ok := c.confirmed[id]; ok {
		c.items[id] = v
	}
}

// apply merges a remote snapshot batch. merge, when set, combines the local
// and remote copies of a record instead of replacing the local one.
// Records that fail to decode are skipped and reported.
func (c *collection[T]) apply(changes []Change, merge func(id string, local T, hasLocal bool, remote T) T) error {
	var firstErr error
	for _, ch := range changes {
		switch ch.Type {
		case Removed:
			delete(c.confirmed, ch.ID)
			delete(c.deleting, ch.ID)
			if _, inFlight := c.pending[ch.ID]; inFlight {
				continue
			}
			delete(c.items, ch.ID)

		case Added, Modified:
			var remote T
			if err := json.Unmarshal(ch.Data, &remote); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("decode %s %s: %w", c.kind, ch.ID, err)
				}
				continue
			}
			c.confirmed[ch.ID] = remote

			if _, gone := c.deleting[ch.ID]; gone {
				continue
			}
			if stamp, ok := c.pending[ch.ID]; ok {
				if c.modified(remote).Before(stamp) {
					// Snapshot predates the local write.
					continue
				}
				delete(c.pending, ch.ID)
			}

			if merge != nil {
				local, has := c.items[ch.ID]
				c.items[ch.ID] = merge(ch.ID, local, has, remote)
			} else {
				c.items[ch.ID] = remote
			}
		}
	}
	c.loaded = true
	return firstErr
}
