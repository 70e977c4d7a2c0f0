package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = backlogSize + 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one devtools connection. It sees every event unless it has
// narrowed the feed to a set of event type prefixes.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte

	mu       sync.RWMutex
	prefixes []string
}

// filterRequest is what a peer sends to replace its prefixes. An empty
// list restores the full feed.
type filterRequest struct {
	Types []string `json:"types"`
}

func NewClient(hub *Hub, conn *ws.Conn, prefixes ...string) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	c.setFilter(prefixes)
	return c
}

func (c *Client) setFilter(prefixes []string) {
	var clean []string
	for _, p := range prefixes {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			clean = append(clean, p)
		}
	}
	c.mu.Lock()
	c.prefixes = clean
	c.mu.Unlock()
}

// Wants reports whether events of type typ pass the client's filter.
func (c *Client) Wants(typ string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.prefixes) == 0 {
		return true
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(typ, p) {
			return true
		}
	}
	return false
}

// Run blocks until the connection closes or ctx is done.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump applies filter requests from the peer and ignores anything
// else. It returns when the peer goes away.
func (c *Client) readPump(ctx context.Context) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != ws.MessageText {
			continue
		}
		var req filterRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.hub.logger.Debug("ignore client message", "error", err)
			continue
		}
		c.setFilter(req.Types)
		c.hub.logger.Debug("client filter", "types", req.Types)
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, msg); err != nil {
				c.hub.logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}
