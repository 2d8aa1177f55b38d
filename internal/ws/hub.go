package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrHubClosed is returned by Publish once Run has returned.
var ErrHubClosed = errors.New("websocket hub closed")

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// dapurEvent routes an event to one dapur's room
type dapurEvent struct {
	DapurID int64
	Event   Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by dapur ID
	rooms map[int64]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *dapurEvent

	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *dapurEvent, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled, closing
// every remaining client. Call it once, in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for dapurID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, dapurID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.dapurID] == nil {
				h.rooms[client.dapurID] = make(map[*Client]bool)
			}
			h.rooms[client.dapurID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				zap.L().Error("marshal websocket event", zap.String("type", event.Event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.DapurID] {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops client from its room and closes its send channel.
// Caller must hold h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.dapurID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.dapurID)
	}
}

// Register adds client to its dapur's room. It reports false if the hub
// has shut down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client from its room. It is a no-op after shutdown,
// when Run has already closed every client.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastToDapur sends an event to all clients subscribed to a dapur.
// It reports false if the hub has shut down.
func (h *Hub) BroadcastToDapur(dapurID int64, event Event) bool {
	// the buffer may still have room after shutdown; check done first
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- &dapurEvent{DapurID: dapurID, Event: event}:
		return true
	case <-h.done:
		return false
	}
}

// Publish marshals payload and broadcasts it as an event of the given type.
func (h *Hub) Publish(dapurID int64, eventType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if !h.BroadcastToDapur(dapurID, Event{Type: eventType, Payload: raw}) {
		return ErrHubClosed
	}
	return nil
}
