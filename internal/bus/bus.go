package bus

import (
	"log/slog"
	"sync"

	"github.com/dukerupert/kinboard/internal/event"
)

// Bus fans events out to every current subscriber. Events are delivered in
// the order they were posted, one at a time; an event published from inside
// a subscriber is delivered after the one currently being handled.
type Bus struct {
	mu       sync.Mutex
	subs     map[int]func(event.Event)
	order    []int
	nextID   int
	queue    []event.Event
	draining bool
	logger   *slog.Logger
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]func(event.Event)),
		logger: logger,
	}
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(fn func(event.Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[id]; !ok {
		return
	}
	delete(b.subs, id)
	for i, sid := range b.order {
		if sid == id {
			b.order = append(b.order[:i:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish posts ev and delivers the queue.
func (b *Bus) Publish(ev event.Event) {
	b.Post(ev)
	b.Flush()
}

// Post appends ev to the delivery queue without delivering it. Callers that
// must order events relative to their own locking post under that lock and
// Flush after releasing it.
func (b *Bus) Post(ev event.Event) {
	b.mu.Lock()
	b.queue = append(b.queue, ev)
	b.mu.Unlock()
}

// Flush delivers queued events. If another goroutine is already delivering,
// Flush returns at once and that goroutine delivers the rest.
func (b *Bus) Flush() {
	b.mu.Lock()
	if b.draining {
		b.mu.Unlock()
		return
	}
	b.draining = true

	for len(b.queue) > 0 {
		ev := b.queue[0]
		b.queue = b.queue[1:]
		ids := append([]int(nil), b.order...)
		b.mu.Unlock()

		b.logger.Debug("event", "type", ev.Type)
		for _, id := range ids {
			b.mu.Lock()
			fn, ok := b.subs[id]
			b.mu.Unlock()
			if ok {
				fn(ev)
			}
		}

		b.mu.Lock()
	}

	b.draining = false
	b.mu.Unlock()
}

// SubscriberCount returns the number of registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
