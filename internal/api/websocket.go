package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/homio-core/internal/infrastructure/config"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// wsSendBufferSize is the per-client outbound queue length.
	wsSendBufferSize = 256

	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
)

// WSMessage is the envelope for every frame exchanged with a client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe requests.
//
// Datapoints narrows datapoint.changed events to the listed IDs; an empty
// list means every datapoint.
type WSSubscribePayload struct {
	Channels   []string `json:"channels"`
	Datapoints []string `json:"datapoints,omitempty"`
}

// wsRequest is an inbound frame. The payload is decoded per message type.
type wsRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSClient is one connected WebSocket peer.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu            sync.RWMutex
	subscriptions map[string]struct{}
	datapoints    map[string]struct{}
	closed        bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are restricted by the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebSocket upgrades the request and starts the client pumps.
//
// Clients subscribe with {"type":"subscribe","payload":{"channels":[...]}}.
// The channels and datapoints query parameters (comma separated) subscribe
// at connect time.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	hub := s.Hub()
	client := newWSClient(hub, conn)
	q := r.URL.Query()
	client.subscribe(WSSubscribePayload{
		Channels:   splitList(q.Get("channels")),
		Datapoints: splitList(q.Get("datapoints")),
	})
	hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

func newWSClient(hub *Hub, conn *websocket.Conn) *WSClient {
	return &WSClient{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// readPump reads client frames until the connection fails or closes.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	}
	pingInterval, pongWait := keepalive(cfg)
	extend := func() error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	}
	extend() //nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Browsers do not always answer protocol pings; any frame counts.
		extend() //nolint:errcheck // a failed deadline surfaces as a read error
		c.handleMessage(data)
	}
}

// writePump drains the send queue and pings the peer on an interval.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval, writeWait := keepalive(cfg)
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		var (
			kind = websocket.PingMessage
			data []byte
		)
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // connection is going away
				return
			}
			kind, data = websocket.TextMessage, msg
		case <-ticker.C:
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // write below reports failure
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

// keepalive returns the ping interval and pong wait for cfg, using the
// defaults for unset values.
func keepalive(cfg config.WebSocketConfig) (ping, pong time.Duration) {
	ping = time.Duration(cfg.PingInterval) * time.Second
	if ping <= 0 {
		ping = defaultPingInterval
	}
	pong = time.Duration(cfg.PongTimeout) * time.Second
	if pong <= 0 {
		pong = defaultPongTimeout
	}
	return ping, pong
}

func (c *WSClient) handleMessage(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch req.Type {
	case WSTypePing:
		c.reply(req.ID, WSTypePong, nil)
	case WSTypeSubscribe, WSTypeUnsubscribe:
		var sub WSSubscribePayload
		if len(req.Payload) > 0 {
			if err := json.Unmarshal(req.Payload, &sub); err != nil {
				c.sendError(req.ID, "invalid "+req.Type+" payload")
				return
			}
		}
		if req.Type == WSTypeSubscribe {
			c.subscribe(sub)
			c.hub.logger.Debug("websocket client subscribed", "channels", sub.Channels, "datapoints", sub.Datapoints)
			c.reply(req.ID, WSTypeResponse, map[string]any{"subscribed": sub.Channels})
			return
		}
		c.unsubscribe(sub)
		c.reply(req.ID, WSTypeResponse, map[string]any{"unsubscribed": sub.Channels})
	default:
		c.sendError(req.ID, "unknown message type: "+req.Type)
	}
}

func (c *WSClient) subscribe(sub WSSubscribePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range sub.Channels {
		c.subscriptions[ch] = struct{}{}
	}
	if len(sub.Datapoints) > 0 && c.datapoints == nil {
		c.datapoints = make(map[string]struct{}, len(sub.Datapoints))
	}
	for _, id := range sub.Datapoints {
		c.datapoints[id] = struct{}{}
	}
}

// unsubscribe removes channels and datapoint filters. Removing the last
// datapoint filter widens the subscription back to every datapoint.
func (c *WSClient) unsubscribe(sub WSSubscribePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range sub.Channels {
		delete(c.subscriptions, ch)
	}
	for _, id := range sub.Datapoints {
		delete(c.datapoints, id)
	}
	if len(c.datapoints) == 0 {
		c.datapoints = nil
	}
}

// wants reports whether an event on channel about datapoint id should be
// delivered. An empty id bypasses the datapoint filter.
func (c *WSClient) wants(channel, id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.subscriptions[channel]; !ok {
		return false
	}
	if id == "" || c.datapoints == nil {
		return true
	}
	_, ok := c.datapoints[id]
	return ok
}

// trySend queues data without blocking. It returns false when the client is
// closed or its queue is full.
func (c *WSClient) trySend(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close closes the send queue once; writePump then exits.
func (c *WSClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) sendError(id, message string) {
	c.reply(id, WSTypeError, map[string]string{"message": message})
}
