package mqtt

import (
	"fmt"
	"sort"
)

// Subscribe registers a handler for messages matching a topic filter.
//
// Filters can include MQTT wildcards:
//   - + (single-level): "homio/state/+/+" matches any source and address
//   - # (multi-level): "homio/#" matches all Homio topics
//
// The handler runs on paho's delivery goroutine. Subscriptions are tracked
// and restored after a reconnect.
//
// Parameters:
//   - filter: The topic filter to subscribe to
//   - qos: Maximum QoS level for received messages (0, 1, or 2)
//   - handler: Callback function invoked for each message
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
//
// Example:
//
//	err := client.Subscribe(mqtt.Topics{}.AllSourceStates(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	return c.SubscribeMultiple([]string{filter}, qos, handler)
}

// SubscribeMultiple registers one handler for several filters with a single
// SUBSCRIBE packet. Either every filter is tracked or none is.
func (c *Client) SubscribeMultiple(filters []string, qos byte, handler MessageHandler) error {
	if len(filters) == 0 {
		return fmt.Errorf("%w: no filters", ErrInvalidFilter)
	}
	for _, filter := range filters {
		if err := ValidateFilter(filter); err != nil {
			return err
		}
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	req := make(map[string]byte, len(filters))
	for _, filter := range filters {
		req[filter] = qos
	}

	// Track before subscribing so a reconnect during the round trip restores them.
	c.subMu.Lock()
	for _, filter := range filters {
		c.subscriptions[filter] = subscription{filter: filter, qos: qos, handler: handler}
	}
	c.subMu.Unlock()

	token := c.client.SubscribeMultiple(req, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		c.untrack(filters)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		c.untrack(filters)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}

func (c *Client) untrack(filters []string) {
	c.subMu.Lock()
	for _, filter := range filters {
		delete(c.subscriptions, filter)
	}
	c.subMu.Unlock()
}

// Subscriptions returns the tracked filters in sorted order.
func (c *Client) Subscriptions() []string {
	c.subMu.RLock()
	out := make([]string, 0, len(c.subscriptions))
	for filter := range c.subscriptions {
		out = append(out, filter)
	}
	c.subMu.RUnlock()

	sort.Strings(out)
	return out
}
