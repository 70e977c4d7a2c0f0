// Package websocket streams every bus event to connected devtools clients.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/event"
)

const backlogSize = 64

// Message is one bus event as sent to clients.
type Message struct {
	Seq     int64           `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

type entry struct {
	typ  string
	data []byte
}

// Hub fans encoded events out to its clients and remembers the most recent
// ones so new clients start with some history.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	backlog []entry
	seq     int64
	logger  *slog.Logger
	now     func() time.Time
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "devtools"),
		now:     time.Now,
	}
}

// Attach feeds every event published on b to the hub until the returned
// function is called.
func (h *Hub) Attach(b *bus.Bus) func() {
	return b.Subscribe(h.Publish)
}

// Register adds a client and queues the part of the backlog it wants.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	for _, e := range h.backlog {
		if !c.Wants(e.typ) {
			continue
		}
		select {
		case c.send <- e.data:
		default:
		}
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish encodes ev and sends it to every client. Payloads that cannot be
// encoded are sent without a payload.
func (h *Hub) Publish(ev event.Event) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		h.logger.Warn("encode event payload", "type", ev.Type, "error", err)
		payload = nil
	} else if string(payload) == "null" {
		payload = nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	data, err := json.Marshal(Message{Seq: h.seq, Type: ev.Type, Payload: payload, At: h.now().UTC()})
	if err != nil {
		h.logger.Error("encode event", "type", ev.Type, "error", err)
		return
	}

	h.backlog = append(h.backlog, entry{typ: ev.Type, data: data})
	if len(h.backlog) > backlogSize {
		h.backlog = h.backlog[len(h.backlog)-backlogSize:]
	}

	for c := range h.clients {
		if !c.Wants(ev.Type) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow client; drop rather than stall the bus.
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
