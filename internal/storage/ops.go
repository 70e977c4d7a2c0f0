package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dukerupert/kinboard/internal/model"
)

// --- Groceries ---

// StoreGrocery writes the whole grocery record. Created is kept from the
// cached record when present.
func (s *Storage) StoreGrocery(g model.Grocery) error {
	s.mu.Lock()
	if err := s.checkConfigured(); err != nil {
		s.mu.Unlock()
		return err
	}
	g = cloneGrocery(g)
	now := s.opts.Now()
	if existing, ok := s.groceries.get(g.ID); ok {
		g.Created = existing.Created
	} else if g.Created.IsZero() {
		g.Created = now
	}
	g.Modified = now
	s.groceries.put(g.ID, g)
	s.cancelShopCountLocked(g.ID)
	postCollection(s.bus, s.groceries)
	s.mu.Unlock()
	s.bus.Flush()

	s.storeGroceryAsync(g)
	return nil
}

func (s *Storage) storeGroceryAsync(g model.Grocery) {
	s.write("store", model.KindGrocery, g.ID, "", g,
		func(ctx context.Context) error {
			return s.remote.Store(ctx, model.KindGrocery, g.ID, g)
		},
		func() {
			s.groceries.storeFailed(g.ID, s.rollback())
			postCollection(s.bus, s.groceries)
		})
}

// IncreaseShopCount queues the grocery for purchase once more.
func (s *Storage) IncreaseShopCount(id string) error {
	return s.changeShopCount(id, 1)
}

// DecreaseShopCount removes one queued purchase; it never goes below zero.
func (s *Storage) DecreaseShopCount(id string) error {
	return s.changeShopCount(id, -1)
}

func (s *Storage) changeShopCount(id string, delta int) error {
	s.mu.Lock()
	if err := s.checkConfigured(); err != nil {
		s.mu.Unlock()
		return err
	}
	g, ok := s.groceries.get(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("shop count %s: %w", id, ErrNotFound)
	}
	count := g.ShopCount + delta
	if count < 0 {
		s.mu.Unlock()
		return nil
	}
	g = cloneGrocery(g)
	g.ShopCount = count
	g.Modified = s.opts.Now()
	s.groceries.put(id, g)
	postCollection(s.bus, s.groceries)
	immediate := s.opts.Debounce <= 0
	if !immediate {
		s.scheduleShopCountLocked(id)
	}
	s.mu.Unlock()
	s.bus.Flush()

	if immediate {
		s.storeGroceryAsync(g)
	}
	return nil
}

// scheduleShopCountLocked (re)starts the debounce timer for id.
func (s *Storage) scheduleShopCountLocked(id string) {
	if t, ok := s.timers[id]; !ok || !t.Stop() {
		// A new timer owes a Done; a stopped one hands its slot over.
		s.wg.Add(1)
	}
	s.timerGen[id]++
	gen := s.timerGen[id]
	s.timers[id] = time.AfterFunc(s.opts.Debounce, func() { s.flushShopCount(id, gen) })
}

// cancelShopCountLocked drops a pending debounced write; the caller is about
// to write the full record anyway.
func (s *Storage) cancelShopCountLocked(id string) {
	if t, ok := s.timers[id]; ok {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
		s.timerGen[id]++
	}
}

func (s *Storage) flushShopCount(id string, gen int) {
	defer s.wg.Done()

	s.mu.Lock()
	if s.timerGen[id] == gen {
		delete(s.timers, id)
	}
	g, ok := s.groceries.get(id)
	s.mu.Unlock()
	if !ok {
		return
	}
	s.storeGroceryAsync(g)
}

// ShopGrocery marks the grocery as bought: its shop count resets and the
// position it had in a list of listLength entries is recorded for future
// ordering.
func (s *Storage) ShopGrocery(id string, listLength, position int) error {
	s.mu.Lock()
	if err := s.checkConfigured(); err != nil {
		s.mu.Unlock()
		return err
	}
	g, ok := s.groceries.get(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("shop grocery %s: %w", id, ErrNotFound)
	}
	g = cloneGrocery(g)
	g.ShopCount = 0
	if g.ShopHistory == nil {
		g.ShopHistory = make(map[int]int)
	}
	g.ShopHistory[listLength] = position
	g.Modified = s.opts.Now()
	s.groceries.put(id, g)
	s.cancelShopCountLocked(id)
	postCollection(s.bus, s.groceries)
	s.mu.Unlock()
	s.bus.Flush()

	s.storeGroceryAsync(g)
	return nil
}

func (s *Storage) DeleteGrocery(id string) error {
	s.mu.Lock()
	if err := s.checkConfigured(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.groceries.get(id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete grocery %s: %w", id, ErrNotFound)
	}
	s.cancelShopCountLocked(id)
	s.groceries.remove(id)
	postCollection(s.bus, s.groceries)
	s.mu.Unlock()
	s.bus.Flush()

	s.write("delete", model.KindGrocery, id, "", nil,
		func(ctx context.Context) error {
			return s.remote.Delete(ctx, model.KindGrocery, id)
		},
		func() {
			s.groceries.deleteFailed(id, s.rollback())
			postCollection(s.bus, s.groceries)
		})
	return nil
}

// --- Todos and checklists ---

// StoreTodo writes the todo and creates one checklist item per title. The
// todo is written before its items so they never reference a missing parent.
func (s *Storage) StoreTodo(t model.Todo, checkList []string) error {
	s.mu.Lock()
	if err := s.checkConfigured(); err != nil {
		s.mu.Unlock()
		return err
	}
	now := s.opts.Now()
	if existing, ok := s.todos.get(t.ID); ok {
		t.Created = existing.Created
	} else if t.Created.IsZero() {
		t.Created = now
	}
	t.Modified = now
	s.todos.put(t.ID, t)

	var items []model.CheckListItem
	for _, title := range checkList {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		item := model.CheckListItem{
			ID:       s.remote.CreateID(model.KindCheckListItem),
			TodoID:   t.ID,
			Title:    title,
			Created:  now,
			Modified: now,
		}
		s.items.put(item.ID, item)
		items = append(items, item)
	}
	postCollection(s.bus, s.todos)
	if len(items) > 0 {
		postCollection(s.bus, s.items)
	}
	s.mu.Unlock()
	s.bus.Flush()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.remote.Store(s.ctx, model.KindTodo, t.ID, t); err != nil {
			s.fail("store", model.KindTodo, t.ID, "", t, err, func() {
				s.todos.storeFailed(t.ID, s.rollback())
				postCollection(s.bus, s.todos)
				for _, item := range items {
					s.items.storeFailed(item.ID, s.rollback())
				}
				postCollection(s.bus, s.items)
			})
			return
		}
		for _, item := range items {
			item := item
			if err := s.remote.Store(s.ctx, model.KindCheckListItem, item.ID, item); err != nil {
				s.fail("store", model.KindCheckListItem, item.ID, "", item, err, func() {
					s.items.storeFailed(item.ID, s.rollback())
					postCollection(s.bus, s.items)
				})
			}
		}
	}()
	return nil
}

// ArchiveTodo deletes the todo and its checklist items. Items are deleted
// first; the todo is only deleted remotely once every item delete succeeded.
func (s *Storage) ArchiveTodo(id string) error {
	s.mu.Lock()
	if err := s.checkConfigured(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.todos.get(id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("archive todo %s: %w", id, ErrNotFound)
	}
	var children []string
	for itemID, item := range s.items.items {
		if item.TodoID == id {
			children = append(children, itemID)
		}
	}
	sort.Strings(children)
	for _, itemID := range children {
		s.items.remove(itemID)
	}
	s.todos.remove(id)
	if len(children) > 0 {
		postCollection(s.bus, s.items)
	}
	postCollection(s.bus, s.todos)
	s.mu.Unlock()
	s.bus.Flush()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for i, itemID := range children {
			err := s.remote.Delete(s.ctx, model.KindCheckListItem, itemID)
			if err == nil {
				continue
			}
			// Items after the failed one were never sent, so they are
			// restored whatever the failure policy.
			unsent := children[i+1:]
			s.fail("delete", model.KindCheckListItem, itemID, "", nil, err, func() {
				s.items.deleteFailed(itemID, s.rollback())
				for _, rest := range unsent {
					s.items.deleteFailed(rest, true)
				}
				postCollection(s.bus, s.items)
				s.todos.deleteFailed(id, s.rollback())
				postCollection(s.bus, s.todos)
			})
			return
		}
		if err := s.remote.Delete(s.ctx, model.KindTodo, id); err != nil {
			s.fail("delete", model.KindTodo, id, "", nil, err, func() {
				s.todos.deleteFailed(id, s.rollback())
				postCollection(s.bus, s.todos)
			})
		}
	}()
	return nil
}

// StoreCheckListItem writes the item. Its todo must exist.
func (s *Storage) StoreCheckListItem(item model.CheckListItem) error {
	s.mu.Lock()
	if err := s.checkConfigured(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.todos.get(item.TodoID); !ok {
		s.mu.Unlock()
		return fmt.Errorf("store checklist item %s: todo %s: %w", item.ID, item.TodoID, ErrNotFound)
	}
	now := s.opts.Now()
	if existing, ok := s.items.get(item.ID); ok {
		item.Created = existing.Created
	} else if item.Created.IsZero() {
		item.Created = now
	}
	if !item.Completed {
		item.CompletedBy = ""
	}
	item.Modified = now
	s.items.put(item.ID, item)
	postCollection(s.bus, s.items)
	s.mu.Unlock()
	s.bus.Flush()

	s.write("store", model.KindCheckListItem, item.ID, "", item,
		func(ctx context.Context) error {
			return s.remote.Store(ctx, model.KindCheckListItem, item.ID, item)
		},
		func() {
			s.items.storeFailed(item.ID, s.rollback())
			postCollection(s.bus, s.items)
		})
	return nil
}

func (s *Storage) DeleteCheckListItem(id string) error {
	s.mu.Lock()
	if err := s.checkConfigured(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.items.get(id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete checklist item %s: %w", id, ErrNotFound)
	}
	s.items.remove(id)
	postCollection(s.bus, s.items)
	s.mu.Unlock()
	s.bus.Flush()

	s.write("delete", model.KindCheckListItem, id, "", nil,
		func(ctx context.Context) error {
			return s.remote.Delete(ctx, model.KindCheckListItem, id)
		},
		func() {
			s.items.deleteFailed(id, s.rollback())
			postCollection(s.bus, s.items)
		})
	return nil
}

// --- Dinners ---

func (s *Storage) StoreDinner(d model.Dinner) error {
	s.mu.Lock()
	if err := s.checkConfigured(); err != nil {
		s.mu.Unlock()
		return err
	}
	d = d.Clone()
	now := s.opts.Now()
	if existing, ok := s.dinners.get(d.ID); ok {
		d.Created = existing.Created
	} else if d.Created.IsZero() {
		d.Created = now
	}
	d.Modified = now
	s.dinners.put(d.ID, d)
	postCollection(s.bus, s.dinners)
	s.mu.Unlock()
	s.bus.Flush()

	s.write("store", model.KindDinner, d.ID, "", d,
		func(ctx context.Context) error {
			return s.remote.Store(ctx, model.KindDinner, d.ID, d)
		},
		func() {
			s.dinners.storeFailed(d.ID, s.rollback())
			postCollection(s.bus, s.dinners)
		})
	return nil
}

func (s *Storage) DeleteDinner(id string) error {
	s.mu.Lock()
	if err := s.checkConfigured(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.dinners.get(id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete dinner %s: %w", id, ErrNotFound)
	}
	s.dinners.remove(id)
	postCollection(s.bus, s.dinners)
	s.mu.Unlock()
	s.bus.Flush()

	s.write("delete", model.KindDinner, id, "", nil,
		func(ctx context.Context) error {
			return s.remote.Delete(ctx, model.KindDinner, id)
		},
		func() {
			s.dinners.deleteFailed(id, s.rollback())
			postCollection(s.bus, s.dinners)
		})
	return nil
}

// --- Weeks ---

// SetWeekActivity assigns the current user to the todo on the weekdays set
// in activity.
func (s *Storage) SetWeekActivity(weekID, todoID string, activity model.Activity) error {
	s.mu.Lock()
	if err := s.checkConfigured(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.todos.get(todoID); !ok {
		s.mu.Unlock()
		return fmt.Errorf("set week activity %s: todo %s: %w", weekID, todoID, ErrNotFound)
	}
	key := activityKey(todoID, s.userID)
	s.setWeekKeyLocked(weekID, key, activity)
	s.mu.Unlock()
	s.bus.Flush()

	s.setWeekKeyAsync(weekID, key, activity)
	return nil
}

// SetWeekDinner plans a dinner on a weekday (0 is Monday). An empty dinnerID
// clears the slot.
func (s *Storage) SetWeekDinner(weekID string, weekday int, dinnerID string) error {
	s.mu.Lock()
	if err := s.checkConfigured(); err != nil {
		s.mu.Unlock()
		return err
	}
	if weekday < 0 || weekday > 6 {
		s.mu.Unlock()
		return fmt.Errorf("set week dinner %s: invalid weekday %d", weekID, weekday)
	}
	if dinnerID != "" {
		if _, ok := s.dinners.get(dinnerID); !ok {
			s.mu.Unlock()
			return fmt.Errorf("set week dinner %s: dinner %s: %w", weekID, dinnerID, ErrNotFound)
		}
	}
	key := dinnerKey(weekday)
	s.setWeekKeyLocked(weekID, key, dinnerID)
	s.mu.Unlock()
	s.bus.Flush()

	s.setWeekKeyAsync(weekID, key, dinnerID)
	return nil
}

func (s *Storage) setWeekKeyLocked(weekID, key string, value any) {
	w, ok := s.weeks.get(weekID)
	if ok {
		w = w.Clone()
	} else {
		w = model.Week{ID: weekID, Created: s.opts.Now()}
	}
	_ = setWeekValue(&w, key, value)
	w.Modified = s.opts.Now()
	s.weeks.items[weekID] = w

	if s.weekKeys[weekID] == nil {
		s.weekKeys[weekID] = make(map[string]any)
	}
	s.weekKeys[weekID][key] = value
	postCollection(s.bus, s.weeks)
}

func (s *Storage) setWeekKeyAsync(weekID, key string, value any) {
	s.write("set", model.KindWeek, weekID, key, value,
		func(ctx context.Context) error {
			return s.remote.SetSubfield(ctx, model.KindWeek, weekID, key, value)
		},
		func() {
			s.weekKeyFailedLocked(weekID, key, value)
			postCollection(s.bus, s.weeks)
		})
}

// weekKeyFailedLocked stops protecting the key. With rollback the confirmed
// value is restored; with retain the local value stays until the next
// snapshot.
func (s *Storage) weekKeyFailedLocked(weekID, key string, value any) {
	if keys := s.weekKeys[weekID]; keys != nil && keys[key] == value {
		delete(keys, key)
	}
	if !s.rollback() {
		return
	}
	w, ok := s.weeks.get(weekID)
	if !ok {
		return
	}
	w = w.Clone()
	confirmed, ok := s.weeks.confirmed[weekID]
	if !ok {
		confirmed = model.Week{}
	}
	prev, err := weekValue(confirmed, key)
	if err != nil {
		return
	}
	_ = setWeekValue(&w, key, prev)
	s.weeks.items[weekID] = w
}
