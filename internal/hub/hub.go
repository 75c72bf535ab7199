package hub

import (
	"sync"

	"go.uber.org/zap"
)

// Hub manages WebSocket clients and broadcasts messages. A client's send
// channel is only written and closed while holding mu, and only while the
// client is registered.
type Hub struct {
	clients map[*Client]bool
	closed  bool
	log     *zap.Logger
	mu      sync.RWMutex
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		log:     log.Named("hub"),
	}
}

// Register adds a new client to the hub. A client registered after the hub
// stopped is closed straight away.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(c.send)
		return
	}
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("Client connected", zap.Int("total", n))
}

// Unregister removes a client from the hub and closes its send channel.
// It is safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.log.Info("Client disconnected", zap.Int("total", n))
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendTo queues msg for one client. It reports false when the client is no
// longer registered or its buffer is full.
func (h *Hub) SendTo(c *Client, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[c] {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Broadcast sends a message to every client.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			// Client send buffer full, disconnect
			h.log.Warn("Evicting slow client")
			go h.Unregister(client)
		}
	}
}

// Run waits until done is closed, then closes every client and refuses new
// ones. Should be run in a goroutine.
func (h *Hub) Run(done <-chan struct{}) {
	<-done

	h.mu.Lock()
	h.closed = true
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}
