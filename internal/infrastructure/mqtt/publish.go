package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outgoing payloads (1MB), the usual broker default.
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: Concrete topic (no wildcards), e.g. "homio/core/datapoint/living-temp/state"
//   - payload: The message payload (max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker keeps the message for new subscribers
//
// Canonical datapoint state and system status are retained.
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
//
// Example:
//
//	topic := mqtt.Topics{}.CoreDatapointState("living-temp")
//	err := client.Publish(topic, []byte("21.5"), 1, true)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := ValidateTopic(topic); err != nil {
		return err
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	c.stats.published.Add(1)
	return nil
}

// PublishRetained publishes a retained message with the configured QoS.
//
// Core publishes canonical datapoint state this way so a new subscriber
// immediately receives the last value of every datapoint.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true) //nolint:gosec // QoS validated by config
}
