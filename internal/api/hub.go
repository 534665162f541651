package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/nerrad567/homio-core/internal/datapoint"
	"github.com/nerrad567/homio-core/internal/infrastructure/config"
	"github.com/nerrad567/homio-core/internal/infrastructure/logging"
)

// Hub fans broadcast events out to connected WebSocket clients.
//
// Hub satisfies datapoint.Broadcaster. It is safe for concurrent use and
// never blocks the caller: a client whose send buffer is full misses the
// event and the drop is counted.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	dropped atomic.Uint64
}

// NewHub creates a hub with no clients.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

// Register adds a client.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client and closes its send channel. Calling it more
// than once for the same client is harmless.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	if existed {
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// Broadcast delivers payload to every client subscribed to channel. When
// payload is a datapoint.Event, clients that narrowed their subscription to
// specific datapoints only receive events for those.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "channel", channel, "error", err)
		return
	}
	id := eventDatapoint(payload)

	h.mu.RLock()
	recipients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(channel, id) {
			recipients = append(recipients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range recipients {
		if !c.trySend(data) {
			h.dropped.Add(1)
			h.logger.Debug("websocket client too slow, event dropped", "channel", channel)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many events were discarded because a client's send
// buffer was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// eventDatapoint returns the datapoint ID carried by payload, or "" for
// payloads that are not datapoint events.
func eventDatapoint(payload any) string {
	switch ev := payload.(type) {
	case datapoint.Event:
		return ev.DatapointID
	case *datapoint.Event:
		if ev != nil {
			return ev.DatapointID
		}
	}
	return ""
}
