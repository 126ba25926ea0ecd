// Package gateway streams per-cycle signal snapshots to WebSocket
// clients (the rule-authoring dashboard among them). The hub is
// broadcast-only: clients subscribe by connecting, slow clients drop
// messages rather than stall the pipeline.
package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub manages connected WebSocket clients and fans snapshots out.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	latest  map[string]json.RawMessage // symbol -> last snapshot payload
	seq     int64

	upgrader websocket.Upgrader
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		latest:  make(map[string]json.RawMessage),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Broadcast sends a snapshot payload for a symbol to every connected
// client, wrapped in an envelope with a monotonic sequence number.
// Sends happen under the lock so a concurrent remove can never close a
// channel mid-broadcast; the non-blocking send keeps slow clients from
// stalling the cycle.
func (h *Hub) Broadcast(symbol string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest[symbol] = data
	h.seq++
	msg := envelope(symbol, data, h.seq)
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow client: drop this message rather than block the cycle.
		}
	}
}

// envelope hand-crafts the wrapper JSON to avoid re-marshalling the
// payload on the broadcast path.
func envelope(symbol string, data []byte, seq int64) []byte {
	buf := make([]byte, 0, len(symbol)+len(data)+96)
	buf = append(buf, `{"symbol":"`...)
	buf = append(buf, symbol...)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = time.Now().UTC().AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, '}')
	return buf
}

// ServeWS upgrades an HTTP request to a WebSocket subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] upgrade failed: %v", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[gateway] client connected (%d total)", n)

	c.sendInitialState()
	go c.writePump()
	go c.readPump()
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}
