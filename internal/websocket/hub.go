package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"tuesdata/internal/operations"
)

// Message types pushed to clients.
const (
	TypeConnection      = "connection"
	TypeOperationStatus = "operation:status"
)

// Message is the envelope every broadcast is wrapped in.
type Message struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Hub maintains the set of active clients and broadcasts operation progress
// to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}

	mu      sync.Mutex
	running bool

	logger *slog.Logger
}

// NewHub creates a hub. A nil logger falls back to slog.Default.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start runs the hub loop on its own goroutine. Starting twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop shuts the hub loop down and disconnects every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.logger.Info("hub shut down")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("client connected",
				slog.String("client_id", client.id),
				slog.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("client disconnected",
					slog.String("client_id", client.id),
					slog.Int("clients", len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow client, drop it
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Broadcast wraps the payload in a Message envelope and queues it for every
// connected client.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	raw, err := json.Marshal(Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast", slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- raw:
	default:
		h.logger.Warn("broadcast queue full, dropping message",
			slog.String("type", msgType))
	}
}

// BroadcastOperation pushes an operation snapshot to every client. It has
// the operations.UpdateFunc signature, so it plugs straight into the
// manager.
func (h *Hub) BroadcastOperation(snapshot operations.Snapshot) {
	h.Broadcast(TypeOperationStatus, snapshot)
}
