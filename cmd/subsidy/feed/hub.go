// Package feed pushes decision events to dashboard clients over WebSocket.
package feed

import (
	"context"
	"sync"

	"github.com/efarmer/subsidy/common/logger"
)

// AllFarmers is the watch key of clients that receive every event
const AllFarmers = ""

// Message is one encoded event for the clients watching FarmerID
type Message struct {
	FarmerID string
	Data     []byte
}

// Hub maintains active WebSocket clients and broadcasts messages to them
type Hub struct {
	// Map: watched efn (or AllFarmers) → clients
	connections map[string][]*Client
	mutex       sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}

	log *logger.Logger
}

// NewHub creates a new Hub instance
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		connections: make(map[string][]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		done:        make(chan struct{}),
		log:         log,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Broadcast queues data for clients watching efn and clients watching everything.
// Messages are dropped when the hub is backed up.
func (h *Hub) Broadcast(efn string, data []byte) {
	select {
	case h.broadcast <- &Message{FarmerID: efn, Data: data}:
	default:
		h.log.Warn("event feed backlog full, dropping message", "efn", efn)
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.connections[client.watch] = append(h.connections[client.watch], client)
	h.log.Debug("feed client registered", "watch", client.watch, "clients", len(h.connections[client.watch]))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(client)
}

// removeLocked drops client and closes its send channel once
func (h *Hub) removeLocked(client *Client) {
	clients := h.connections[client.watch]
	for i, c := range clients {
		if c == client {
			h.connections[client.watch] = append(clients[:i:i], clients[i+1:]...)
			close(client.send)
			if len(h.connections[client.watch]) == 0 {
				delete(h.connections, client.watch)
			}
			return
		}
	}
}

func (h *Hub) deliver(message *Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	targets := append([]*Client(nil), h.connections[AllFarmers]...)
	if message.FarmerID != AllFarmers {
		targets = append(targets, h.connections[message.FarmerID]...)
	}

	for _, client := range targets {
		select {
		case client.send <- message.Data:
		default:
			// Slow client, disconnect it
			h.log.Warn("feed client send buffer full, closing connection", "watch", client.watch)
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, clients := range h.connections {
		for _, c := range clients {
			close(c.send)
		}
	}
	h.connections = make(map[string][]*Client)
}

// ConnectionCount returns the number of active clients
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for _, clients := range h.connections {
		count += len(clients)
	}
	return count
}
