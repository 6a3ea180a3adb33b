package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"gallery-backend/internal/infrastructure/events"
	"gallery-backend/internal/shared"
	"gallery-backend/internal/shared/metrics"
)

// Hub keeps the connected change-feed clients and pushes changes to the ones allowed to see them.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan events.Change
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu    sync.RWMutex
	count int
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan events.Change, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.setCount(len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case change := <-h.broadcast:
			msg, err := json.Marshal(change)
			if err != nil {
				log.Error().Err(err).Msg("encode change for websocket")
				continue
			}
			for client := range h.clients {
				if !CanSee(client.actor, change) {
					continue
				}
				select {
				case client.send <- msg:
				default:
					// Slow consumer.
					h.drop(client)
				}
			}
		}
	}
}

// OnChange is the events.Handler feeding the hub. It never blocks the publisher.
func (h *Hub) OnChange(_ context.Context, c events.Change) {
	select {
	case h.broadcast <- c:
	default:
		log.Warn().Str("kind", string(c.Kind)).Msg("websocket broadcast buffer full, change dropped")
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount is the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount(len(h.clients))
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(n))
}

// CanSee applies the gallery visibility rule to a change.
func CanSee(actor shared.Actor, c events.Change) bool {
	return actor.IsAdmin() || actor.Owns(c.OwnerID) || c.Public
}
