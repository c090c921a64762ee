package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ifcoins/quizroom/internal/metrics"
	"ifcoins/quizroom/internal/models"
)

// Hub tracks the WebSocket clients connected to this instance, per room.
// It holds no room state; every snapshot it forwards comes from the bus.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{rooms: make(map[string]map[*Client]struct{}), logger: logger}
}

func (h *Hub) Join(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[roomID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[roomID] = clients
	}
	if _, exists := clients[c]; !exists {
		clients[c] = struct{}{}
		metrics.ConnectedClients.Inc()
	}
}

// Leave removes the client and returns how many remain in the room.
func (h *Hub) Leave(roomID string, c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[roomID]
	if !ok {
		return 0
	}
	if _, exists := clients[c]; exists {
		delete(clients, c)
		metrics.ConnectedClients.Dec()
	}
	if len(clients) == 0 {
		delete(h.rooms, roomID)
	}
	return len(clients)
}

func (h *Hub) ClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Broadcast sends the snapshot to every local client of its room.
func (h *Hub) Broadcast(snapshot models.RoomSnapshot) {
	roomID := snapshot.Room.ID
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.Send(snapshot); err != nil {
			h.logger.Debug("websocket write failed",
				zap.String("roomId", roomID), zap.String("userId", c.UserID), zap.Error(err))
		}
	}
}

// Run forwards snapshots from feed until it closes or ctx ends.
func (h *Hub) Run(ctx context.Context, feed <-chan models.RoomSnapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-feed:
			if !ok {
				return
			}
			h.Broadcast(snapshot)
		}
	}
}
