package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	pkglog "github.com/theroutercompany/routedoc/pkg/log"
)

const (
	// LiveReloadPath is where preview pages connect for reload notifications.
	LiveReloadPath = "/__livereload"

	writeWait    = 5 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 4
)

const reloadScript = `<script>(function(){var p=location.protocol==="https:"?"wss://":"ws://";` +
	`var ws=new WebSocket(p+location.host+"` + LiveReloadPath + `");` +
	`ws.onmessage=function(){location.reload();};})();</script>`

// ReloadEvent is pushed to connected pages after each regeneration.
type ReloadEvent struct {
	Type    string `json:"type"`
	Version uint64 `json:"version"`
	RunID   string `json:"runId,omitempty"`
}

// Hub fans reload events out to connected preview pages.
type Hub struct {
	upgrader websocket.Upgrader
	logger   pkglog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool

	onConnect func(delta int)
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub constructs an empty hub. Only same-origin pages may connect.
func NewHub(logger pkglog.Logger) *Hub {
	if logger == nil {
		logger = pkglog.NewNop()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
	}
}

// Clients reports the number of connected pages.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the connection until the page
// goes away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("live reload upgrade failed", "error", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

// Broadcast queues ev for every connected page and returns how many pages
// were notified. Pages whose buffer is full already have a reload pending
// and are skipped.
func (h *Hub) Broadcast(ev ReloadEvent) int {
	if ev.Type == "" {
		ev.Type = "reload"
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Errorw("encode reload event", "error", err)
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for c := range h.clients {
		select {
		case c.send <- payload:
			sent++
		default:
		}
	}
	return sent
}

// Close disconnects every page and refuses new connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) register(c *hubClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.onConnect != nil {
		h.onConnect(1)
	}
	return true
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if h.onConnect != nil {
		h.onConnect(-1)
	}
}

// readLoop discards incoming frames; it exists to observe the close.
func (h *Hub) readLoop(c *hubClient) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *hubClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// injectReloadScript inserts the reload client before the closing body tag.
func injectReloadScript(page []byte) []byte {
	out := make([]byte, 0, len(page)+len(reloadScript))
	idx := bytes.LastIndex(page, []byte("</body>"))
	if idx < 0 {
		out = append(out, page...)
		return append(out, reloadScript...)
	}
	out = append(out, page[:idx]...)
	out = append(out, reloadScript...)
	return append(out, page[idx:]...)
}
