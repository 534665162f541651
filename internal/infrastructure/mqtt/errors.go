package mqtt

import "errors"

// Sentinel errors returned by the MQTT client. Callers match them with
// errors.Is; the client wraps them with broker detail where available.
var (
	// ErrNotConnected means the client has no live broker session.
	ErrNotConnected = errors.New("mqtt: not connected")

	// ErrConnectionFailed means the initial connect did not succeed in time.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed means the broker did not acknowledge a publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed means the broker rejected or timed out a SUBSCRIBE.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS is returned for QoS levels other than 0, 1 and 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty publish topic or one that
	// contains wildcards.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrInvalidFilter is returned for a malformed subscription filter,
	// e.g. "homio/#/state" or "homio/sta+e".
	ErrInvalidFilter = errors.New("mqtt: invalid topic filter")

	// ErrPayloadTooLarge is returned when a payload exceeds maxPayloadSize.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)
