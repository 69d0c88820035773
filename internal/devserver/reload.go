// Package devserver hosts the live-reload side channel of the dev
// orchestrator. A ReloadHub accepts websocket clients over HTTP and
// pushes a reload notice to every connected client after each
// successful watch cycle.
package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/Filipo11021/nitro/internal/hooks"
	"github.com/Filipo11021/nitro/internal/logging"
)

const (
	// Time allowed to write a message to a client.
	writeWait = 10 * time.Second

	// A client whose send queue stays full is dropped.
	sendQueueSize = 16
)

// ReloadMessage is the JSON payload pushed to clients on reload.
type ReloadMessage struct {
	Type  string `json:"type"`
	Entry string `json:"entry,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// ReloadHub fans reload notices out to connected websocket clients.
// It implements http.Handler for the upgrade endpoint.
type ReloadHub struct {
	logger logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewReloadHub creates an empty hub.
func NewReloadHub(logger logging.Logger) *ReloadHub {
	if logger == nil {
		logger = logging.NewLogger(logging.DefaultConfig())
	}
	return &ReloadHub{
		logger:  logger.WithComponent("devserver"),
		clients: make(map[*client]struct{}),
	}
}

// Attach registers the hub on the bus so every dev:reload dispatch is
// broadcast to connected clients.
func (h *ReloadHub) Attach(bus *hooks.Bus) {
	bus.Hook(hooks.HookDevReload, func(ctx context.Context, event any) error {
		reload, ok := event.(*hooks.DevReloadEvent)
		if !ok {
			return nil
		}
		h.Broadcast(ctx, reload.EntryPath)
		return nil
	})
}

// ServeHTTP upgrades the request to a websocket connection and keeps it
// registered until the peer disconnects or the hub closes.
func (h *ReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The dev server binds to loopback; cross-origin pages on
		// other local ports still need to connect.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug(r.Context(), "reload client connected", "total", total)

	go h.writePump(c)
	h.readPump(c)
}

// Broadcast pushes a reload message to every connected client. Clients
// with a full send queue are dropped rather than stalling the watch
// loop.
func (h *ReloadHub) Broadcast(ctx context.Context, entryPath string) {
	payload, err := json.Marshal(ReloadMessage{Type: "reload", Entry: entryPath})
	if err != nil {
		h.logger.Error(ctx, err, "failed to encode reload message")
		return
	}

	h.mu.Lock()
	var stalled []*client
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			stalled = append(stalled, c)
		}
	}
	for _, c := range stalled {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	for _, c := range stalled {
		c.conn.Close(websocket.StatusPolicyViolation, "send queue full")
	}

	h.logger.Debug(ctx, "reload broadcast", "clients", count)
}

// ClientCount returns the number of connected clients.
func (h *ReloadHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects future connections.
func (h *ReloadHub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.Close(websocket.StatusGoingAway, "shutting down")
	}
}

// readPump drains client frames until the peer disconnects, then
// unregisters the client. Inbound payloads are ignored; the channel is
// push-only.
func (h *ReloadHub) readPump(c *client) {
	defer h.drop(c)

	ctx := context.Background()
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (h *ReloadHub) writePump(c *client) {
	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err := c.conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			h.drop(c)
			return
		}
	}
	c.conn.Close(websocket.StatusNormalClosure, "")
}

func (h *ReloadHub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close(websocket.StatusNormalClosure, "")
}
