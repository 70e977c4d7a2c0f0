// Package storage keeps the in-memory entity caches that feature machines
// render from. Local writes are applied and published immediately, then
// persisted asynchronously; realtime snapshots from the remote store are
// merged by id and republished as whole maps.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/model"
)

var (
	// ErrNotConfigured is returned by every operation called before Configure.
	ErrNotConfigured = errors.New("storage: family partition not configured")
	// ErrNotFound is returned when an operation references an unknown id.
	ErrNotFound = errors.New("storage: entity not found")
)

// Persistence is the remote authoritative store.
type Persistence interface {
	ConfigurePartition(familyID string)
	CreateID(kind model.Kind) string
	// Subscribe delivers the current documents of kind as one batch of
	// added changes, then every later change, until the returned function
	// is called or ctx ends.
	Subscribe(ctx context.Context, kind model.Kind, fn func([]Change)) (func(), error)
	Store(ctx context.Context, kind model.Kind, id string, doc any) error
	Delete(ctx context.Context, kind model.Kind, id string) error
	SetSubfield(ctx context.Context, kind model.Kind, id, key string, value any) error
}

// FailurePolicy decides what happens to an optimistic value whose write was
// rejected.
type FailurePolicy int

const (
	// Retain keeps the optimistic value until a later snapshot replaces it.
	Retain FailurePolicy = iota
	// Rollback restores the last value confirmed by the remote store.
	Rollback
)

// ParseFailurePolicy maps "retain" and "rollback" to a policy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "retain":
		return Retain, nil
	case "rollback":
		return Rollback, nil
	}
	return Retain, fmt.Errorf("unknown failure policy %q", s)
}

type Options struct {
	// Debounce is the window within which shop-count writes coalesce.
	// Zero writes every change at once.
	Debounce  time.Duration
	OnFailure FailurePolicy
	Now       func() time.Time
}

// Storage owns the entity caches. Nothing else mutates them.
type Storage struct {
	mu     sync.Mutex
	remote Persistence
	bus    *bus.Bus
	logger *slog.Logger
	opts   Options

	familyID   string
	userID     string
	configured bool

	groceries *collection[model.Grocery]
	todos     *collection[model.Todo]
	items     *collection[model.CheckListItem]
	dinners   *collection[model.Dinner]
	weeks     *collection[model.Week]
	family    *collection[model.Family]

	// week id -> sub-record key -> locally written value
	weekKeys map[string]map[string]any

	timers   map[string]*time.Timer
	timerGen map[string]int

	unsubs []func()
	// gen changes whenever subscriptions are dropped; batches from older
	// subscriptions are ignored.
	gen    int
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an unconfigured Storage.
func New(remote Persistence, b *bus.Bus, logger *slog.Logger, opts Options) *Storage {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Storage{
		remote: remote,
		bus:    b,
		logger: logger,
		opts:   opts,
		groceries: newCollection(model.KindGrocery, event.GroceriesUpdate,
			func(g model.Grocery) time.Time { return g.Modified }, cloneGrocery),
		todos: newCollection(model.KindTodo, event.TodosUpdate,
			func(t model.Todo) time.Time { return t.Modified }, nil),
		items: newCollection(model.KindCheckListItem, event.CheckListItemsUpdate,
			func(i model.CheckListItem) time.Time { return i.Modified }, nil),
		dinners: newCollection(model.KindDinner, event.DinnersUpdate,
			func(d model.Dinner) time.Time { return d.Modified }, model.Dinner.Clone),
		weeks: newCollection(model.KindWeek, event.WeeksUpdate,
			func(w model.Week) time.Time { return w.Modified }, model.Week.Clone),
		family: newCollection(model.KindFamily, event.FamilyUpdate,
			func(model.Family) time.Time { return time.Time{} }, nil),
		weekKeys: make(map[string]map[string]any),
		timers:   make(map[string]*time.Timer),
		timerGen: make(map[string]int),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Configure scopes every later operation to the family partition. Switching
// to another family drops the caches and subscriptions of the previous one.
func (s *Storage) Configure(familyID, userID string) {
	s.mu.Lock()
	if s.configured && s.familyID != familyID {
		s.resetLocked()
	}
	s.familyID = familyID
	s.userID = userID
	s.configured = true
	s.mu.Unlock()

	s.remote.ConfigurePartition(familyID)
}

// Reset forgets the family: caches are dropped, subscriptions released and
// every operation fails with ErrNotConfigured until the next Configure.
func (s *Storage) Reset() {
	s.mu.Lock()
	s.resetLocked()
	s.familyID, s.userID = "", ""
	s.configured = false
	s.mu.Unlock()
}

func (s *Storage) resetLocked() {
	for _, un := range s.unsubs {
		un()
	}
	s.unsubs = nil
	s.gen++
	s.groceries.reset()
	s.todos.reset()
	s.items.reset()
	s.dinners.reset()
	s.weeks.reset()
	s.family.reset()
	s.weekKeys = make(map[string]map[string]any)
}

// FamilyID returns the configured partition.
func (s *Storage) FamilyID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.familyID
}

// UserID returns the user the storage acts for.
func (s *Storage) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Storage) checkConfigured() error {
	if !s.configured {
		return ErrNotConfigured
	}
	return nil
}

// CreateID mints an id for a new entity before it is stored.
func (s *Storage) CreateID(kind model.Kind) (string, error) {
	s.mu.Lock()
	err := s.checkConfigured()
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return s.remote.CreateID(kind), nil
}

// FetchAll subscribes to every collection of the family. Each first snapshot
// publishes the matching update event; a failed subscription publishes
// FETCH_ERROR. Subscriptions from an earlier FetchAll are released first.
func (s *Storage) FetchAll() error {
	s.mu.Lock()
	err := s.checkConfigured()
	prev := s.unsubs
	if err == nil {
		s.unsubs = nil
		s.gen++
	}
	gen := s.gen
	s.mu.Unlock()
	if err != nil {
		return err
	}
	for _, un := range prev {
		un()
	}

	kinds := append(append([]model.Kind(nil), model.Collections...), model.KindFamily)
	for _, kind := range kinds {
		kind := kind
		un, err := s.remote.Subscribe(s.ctx, kind, func(changes []Change) {
			s.applyChanges(gen, kind, changes)
		})
		if err != nil {
			s.bus.Publish(event.New(event.FetchError, event.FetchFailure{
				Kind:    string(kind),
				Message: err.Error(),
			}))
			return fmt.Errorf("subscribe %s: %w", kind, err)
		}
		s.mu.Lock()
		s.unsubs = append(s.unsubs, un)
		s.mu.Unlock()
	}
	return nil
}

// applyChanges merges a remote snapshot batch and republishes the merged
// map. Batches from a subscription that has since been dropped are ignored.
func (s *Storage) applyChanges(gen int, kind model.Kind, changes []Change) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("drop stale snapshot", "kind", kind, "changes", len(changes))
		return
	}
	var err error
	switch kind {
	case model.KindGrocery:
		err = s.groceries.apply(changes, nil)
		postCollection(s.bus, s.groceries)
	case model.KindTodo:
		err = s.todos.apply(changes, nil)
		postCollection(s.bus, s.todos)
	case model.KindCheckListItem:
		err = s.items.apply(changes, nil)
		postCollection(s.bus, s.items)
	case model.KindDinner:
		err = s.dinners.apply(changes, nil)
		postCollection(s.bus, s.dinners)
	case model.KindWeek:
		err = s.weeks.apply(changes, func(id string, _ model.Week, _ bool, remote model.Week) model.Week {
			if remote.ID == "" {
				remote.ID = id
			}
			return mergeWeek(s.weekKeys[id], remote)
		})
		postCollection(s.bus, s.weeks)
	case model.KindFamily:
		err = s.family.apply(changes, nil)
		s.postFamilyLocked()
	}
	s.mu.Unlock()
	s.bus.Flush()

	if err != nil {
		s.logger.Warn("snapshot contained undecodable records", "kind", kind, "error", err)
	}
}

func postCollection[T any](b *bus.Bus, c *collection[T]) {
	b.Post(event.New(c.update, c.snapshot()))
}

func (s *Storage) postFamilyLocked() {
	f, _ := s.family.get(s.familyID)
	s.bus.Post(event.New(event.FamilyUpdate, f))
}

// write persists asynchronously. onFail runs under the lock before the
// error event is posted.
func (s *Storage) write(op string, kind model.Kind, id, key string, value any, call func(context.Context) error, onFail func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := call(s.ctx); err != nil {
			s.fail(op, kind, id, key, value, err, onFail)
		}
	}()
}

func (s *Storage) fail(op string, kind model.Kind, id, key string, value any, err error, onFail func()) {
	s.logger.Warn("write failed", "op", op, "kind", kind, "id", id, "error", err)

	s.mu.Lock()
	if onFail != nil {
		onFail()
	}
	s.bus.Post(event.New(event.OperationErrorType(op, string(kind)), event.OperationFailure{
		Op:      op,
		Kind:    string(kind),
		ID:      id,
		Key:     key,
		Value:   value,
		Message: err.Error(),
	}))
	s.mu.Unlock()
	s.bus.Flush()
}

func (s *Storage) rollback() bool {
	return s.opts.OnFailure == Rollback
}

// Wait blocks until every in-flight and debounced write has finished.
func (s *Storage) Wait() {
	s.wg.Wait()
}

// Close flushes debounced writes, waits for in-flight ones and releases the
// remote subscriptions.
func (s *Storage) Close() {
	s.mu.Lock()
	var flush []string
	for id, t := range s.timers {
		if t.Stop() {
			flush = append(flush, id)
		}
	}
	s.mu.Unlock()

	for _, id := range flush {
		s.mu.Lock()
		gen := s.timerGen[id]
		s.mu.Unlock()
		s.flushShopCount(id, gen)
	}
	s.wg.Wait()

	s.mu.Lock()
	for _, un := range s.unsubs {
		un()
	}
	s.unsubs = nil
	s.mu.Unlock()
	s.cancel()
}

// Readers. Each returns a copy the caller may keep.

func (s *Storage) Groceries() map[string]model.Grocery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groceries.snapshot()
}

func (s *Storage) Todos() map[string]model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.todos.snapshot()
}

func (s *Storage) CheckListItems() map[string]model.CheckListItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.snapshot()
}

func (s *Storage) Dinners() map[string]model.Dinner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dinners.snapshot()
}

func (s *Storage) Weeks() map[string]model.Week {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weeks.snapshot()
}

func (s *Storage) Family() model.Family {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, _ := s.family.get(s.familyID)
	return f
}

func cloneGrocery(g model.Grocery) model.Grocery {
	if g.ShopHistory != nil {
		h := make(map[int]int, len(g.ShopHistory))
		for k, v := range g.ShopHistory {
			h[k] = v
		}
		g.ShopHistory = h
	}
	return g
}
