package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/homio-core/internal/infrastructure/config"
)

// Client is the broker connection shared by the ingest pipeline (source
// readings in) and the canonical publisher (datapoint state out).
//
// All methods are safe for concurrent use. Subscriptions made through the
// client are replayed on every reconnect because sessions are clean.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	subMu         sync.RWMutex
	subscriptions map[string]subscription

	connected atomic.Bool

	hookMu       sync.RWMutex
	logger       Logger
	onConnect    func()
	onDisconnect func(err error)

	stats counters
}

// Logger is the subset of logging.Logger the client writes to.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MessageHandler receives one message. topic is the concrete topic the
// message arrived on, never the filter. An error is logged and counted;
// the message is acknowledged regardless.
//
// Handlers run on paho's delivery goroutines and should return quickly.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	filter  string
	qos     byte
	handler MessageHandler
}

type counters struct {
	received      atomic.Uint64
	handlerErrors atomic.Uint64
	panics        atomic.Uint64
	published     atomic.Uint64
	reconnects    atomic.Uint64
	sessions      atomic.Uint64
}

// Stats is a snapshot of message traffic since Connect.
type Stats struct {
	Received      uint64 // messages delivered to handlers
	HandlerErrors uint64 // handlers that returned an error
	Panics        uint64 // handlers that panicked
	Published     uint64 // acknowledged publishes
	Reconnects    uint64 // sessions re-established after a loss
	Subscriptions int
}

// Connect dials the broker and waits for the first session.
//
// The Last Will marks Core offline on homio/system/status if the process
// dies; a retained "online" status is published on every (re)connect.
// Reconnection with backoff is handled by paho once the first session is
// up.
//
// Returns:
//   - *Client: connected client
//   - error: ErrConnectionFailed when no session is established within the
//     connect timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		if log := c.getLogger(); log != nil {
			log.Warn("MQTT reconnecting", "broker", brokerURL(cfg))
		}
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		// Stop the background retry loop started by ConnectRetry.
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: no session after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously; mark the client usable now.
	c.connected.Store(true)
	return c, nil
}

// handleConnect runs on every session start, including the first.
func (c *Client) handleConnect() {
	c.connected.Store(true)
	if c.stats.sessions.Add(1) > 1 {
		c.stats.reconnects.Add(1)
	}

	restored := c.restoreSubscriptions()
	c.publishStatus(statusOnline, "")

	if log := c.getLogger(); log != nil {
		log.Info("MQTT connected", "broker", brokerURL(c.cfg), "subscriptions", restored)
	}

	c.hookMu.RLock()
	hook := c.onConnect
	c.hookMu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)

	c.hookMu.RLock()
	hook := c.onDisconnect
	c.hookMu.RUnlock()
	if hook != nil {
		hook(err)
	}
}

// restoreSubscriptions replays tracked filters and returns how many were
// requested. Acknowledgements are awaited off the connect callback.
func (c *Client) restoreSubscriptions() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		token := c.client.Subscribe(sub.filter, sub.qos, c.wrapHandler(sub.handler))
		go func(filter string) {
			if token.WaitTimeout(defaultPublishTimeout) && token.Error() == nil {
				return
			}
			if log := c.getLogger(); log != nil {
				log.Warn("MQTT subscription not restored", "filter", filter, "error", token.Error())
			}
		}(sub.filter)
	}
	return len(c.subscriptions)
}

// Stats returns a snapshot of the traffic counters.
func (c *Client) Stats() Stats {
	c.subMu.RLock()
	subs := len(c.subscriptions)
	c.subMu.RUnlock()

	return Stats{
		Received:      c.stats.received.Load(),
		HandlerErrors: c.stats.handlerErrors.Load(),
		Panics:        c.stats.panics.Load(),
		Published:     c.stats.published.Load(),
		Reconnects:    c.stats.reconnects.Load(),
		Subscriptions: subs,
	}
}

func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	payload := statusPayload(c.cfg.Broker.ClientID, status, reason)
	return c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
}

// Close publishes a graceful offline status, which replaces the Last Will,
// and disconnects. Closing an unconnected client is a no-op.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		c.publishStatus(statusOffline, reasonGracefulShutdown).WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck returns ErrNotConnected while no session is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether a session is currently up. It is safe to
// call on a nil client.
func (c *Client) IsConnected() bool {
	if c == nil || c.client == nil {
		return false
	}
	return c.connected.Load() && c.client.IsConnected()
}

// SetOnConnect registers fn to run after every session start.
func (c *Client) SetOnConnect(fn func()) {
	c.hookMu.Lock()
	c.onConnect = fn
	c.hookMu.Unlock()
}

// SetOnDisconnect registers fn to run when the connection is lost.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.hookMu.Lock()
	c.onDisconnect = fn
	c.hookMu.Unlock()
}

// SetLogger sets the logger for connection events and handler failures.
// Without one they are only counted.
func (c *Client) SetLogger(logger Logger) {
	c.hookMu.Lock()
	c.logger = logger
	c.hookMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.hookMu.RLock()
	defer c.hookMu.RUnlock()
	return c.logger
}

// wrapHandler adapts handler to paho, counting deliveries and containing
// errors and panics so one bad message cannot stop delivery.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.stats.received.Add(1)
		defer func() {
			if r := recover(); r != nil {
				c.stats.panics.Add(1)
				if log := c.getLogger(); log != nil {
					log.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.stats.handlerErrors.Add(1)
			if log := c.getLogger(); log != nil {
				log.Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
			}
		}
	}
}
