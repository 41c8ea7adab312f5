package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
)

// Event types broadcast on the table stream.
const (
	EventTableCreated  = "tableCreated"
	EventPlayerJoined  = "playerJoined"
	EventPlayerLeft    = "playerLeft"
	EventHandStarted   = "handStarted"
	EventCardsDealt    = "cardsDealt"
	EventPlayerActed   = "playerActed"
	EventStreetOpened  = "streetOpened"
	EventCardsRevealed = "cardsRevealed"
	EventHandCompleted = "handCompleted"
	EventPlayerTimeout = "playerTimeout"
	EventTableClosed   = "tableClosed"
)

// Event is one message on a table's event stream.
type Event struct {
	Type    string      `json:"type"`
	TableID string      `json:"tableId"`
	Payload interface{} `json:"payload,omitempty"`
}

const clientSendBuffer = 32

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans table events out to websocket subscribers. A subscriber
// that cannot keep up is dropped rather than blocking the table.
type Hub struct {
	log      slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]map[*client]struct{} // tableID -> clients
}

// NewHub returns an empty hub.
func NewHub(log slog.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]map[*client]struct{}),
	}
}

// ServeWS upgrades the request and subscribes it to a table's events.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	tableID := r.URL.Query().Get("table")
	if tableID == "" {
		http.Error(w, "missing table parameter", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan Event, clientSendBuffer)}
	h.mu.Lock()
	if h.clients[tableID] == nil {
		h.clients[tableID] = make(map[*client]struct{})
	}
	h.clients[tableID][c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(tableID, c)
	go h.readPump(tableID, c)
}

func (h *Hub) writePump(tableID string, c *client) {
	for ev := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteJSON(ev); err != nil {
			h.drop(tableID, c)
			return
		}
	}
}

// readPump discards inbound frames and notices disconnects.
func (h *Hub) readPump(tableID string, c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(tableID, c)
			return
		}
	}
}

func (h *Hub) drop(tableID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[tableID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
			c.conn.Close()
		}
		if len(set) == 0 {
			delete(h.clients, tableID)
		}
	}
}

// Broadcast sends an event to every subscriber of its table.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	var slow []*client
	for c := range h.clients[ev.TableID] {
		select {
		case c.send <- ev:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.log.Debugf("dropping slow event subscriber on table %s", ev.TableID)
		h.drop(ev.TableID, c)
	}
}
