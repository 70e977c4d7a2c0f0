package lifecycle

import (
	"sync"

	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/event"
)

// Visibility publishes VISIBLE and HIDDEN as the app moves between the
// foreground and the background. Repeated reports of the same state are
// dropped.
type Visibility struct {
	mu      sync.Mutex
	visible bool
	known   bool
	bus     *bus.Bus
}

func NewVisibility(b *bus.Bus) *Visibility {
	return &Visibility{bus: b}
}

func (v *Visibility) Set(visible bool) {
	v.mu.Lock()
	if v.known && v.visible == visible {
		v.mu.Unlock()
		return
	}
	v.known = true
	v.visible = visible
	v.mu.Unlock()

	typ := event.Hidden
	if visible {
		typ = event.Visible
	}
	v.bus.Publish(event.New(typ, nil))
}

func (v *Visibility) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}
