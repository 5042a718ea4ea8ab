package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-escrow/internal/logger"
)

// ConnectionGauge tracks open connections. *metrics.Metrics satisfies it.
type ConnectionGauge interface {
	WSConnections(delta int)
}

// Hub fans events out to every connection a user has open.
// All client bookkeeping happens on the Run goroutine.
type Hub struct {
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	gauge      ConnectionGauge
}

type message struct {
	userID  uuid.UUID
	payload []byte
}

// Envelope is the frame sent to clients: type names the event, data carries the payload.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type noGauge struct{}

func (noGauge) WSConnections(int) {}

func NewHub(gauge ConnectionGauge) *Hub {
	if gauge == nil {
		gauge = noGauge{}
	}
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
		gauge:      gauge,
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg.userID, msg.payload)
		}
	}
}

// Register blocks until the hub accepts the client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToUser queues an event for every connection of userID.
// A user with no open connection simply misses the push.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	raw, err := json.Marshal(Envelope{Type: event, Data: data})
	if err != nil {
		return fmt.Errorf("ws: encode %s: %w", event, err)
	}

	select {
	case h.broadcast <- message{userID: userID, payload: raw}:
		return nil
	case <-h.done:
		return nil
	default:
		logger.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"event":   event,
		}).Warn("ws: broadcast queue full, dropping event")
		return nil
	}
}

// Connections reports how many sockets userID has open.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
	h.gauge.WSConnections(1)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client)
}

// dropLocked closes the client's send channel, which ends its write pump.
func (h *Hub) dropLocked(client *Client) {
	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}
	close(client.send)
	h.gauge.WSConnections(-1)
}

func (h *Hub) send(userID uuid.UUID, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
			// Slow consumer. Dropping it is better than stalling every other user.
			h.dropLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			h.dropLocked(client)
		}
	}
}
