package dashboard

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Event types pushed over /ws/events.
const (
	EventBlocked        = "blocked"
	EventSessionStarted = "session_started"
	EventSessionEnded   = "session_ended"
	EventTick           = "tick"
	EventSettings       = "settings_changed"
	EventSites          = "sites_changed"
	EventNotice         = "notice"
)

// Event is a message pushed to all connected websocket clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub fans events out to connected websocket clients. Clients are push-only;
// inbound messages are read and discarded to service control frames.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

// NewHub creates a hub that accepts connections from allowedOrigin or from
// clients that send no Origin header (extensions, CLI tools).
func NewHub(allowedOrigin string) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// handleEvents upgrades the connection and registers it for broadcasts.
func (h *Hub) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Drain inbound messages; the read loop also detects disconnects.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends the event to every connected client. Clients that fail to
// receive are dropped.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(ev); err != nil {
			fmt.Printf("[events] dropping client: %v\n", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects future connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.clients, conn)
}
