package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes of the Homio MQTT hierarchy.
//
// Device sources publish readings on homio/state/{source}/{address}. Core
// republishes the normalised value on homio/core/datapoint/{id}/state.
const (
	// TopicPrefix is the root of every Homio topic.
	TopicPrefix = "homio"

	// TopicPrefixCore is the base for topics published by Core.
	TopicPrefixCore = "homio/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "homio/system"
)

// Topics provides builders for Homio MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.SourceState("zigbee", "living-temp")
//	// Returns: "homio/state/zigbee/living-temp"
type Topics struct{}

// SourceState returns the topic a device source publishes readings on.
//
// Example: homio/state/zigbee/living-temp
func (Topics) SourceState(source, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, source, address)
}

// CoreDatapointState returns the canonical state topic of a datapoint.
// Core publishes it retained after every change.
//
// Example: homio/core/datapoint/living-temp/state
func (Topics) CoreDatapointState(datapointID string) string {
	return fmt.Sprintf("%s/datapoint/%s/state", TopicPrefixCore, datapointID)
}

// SystemStatus returns the system status topic carrying the online/offline
// payloads and the Last Will.
//
// Example: homio/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllSourceStates returns a pattern matching every source reading.
//
// Pattern: homio/state/+/+
func (Topics) AllSourceStates() string {
	return TopicPrefix + "/state/+/+"
}

// ParseSourceState splits a source reading topic into its source and
// address. ok is false for any other topic.
//
// Example: "homio/state/zigbee/living-temp" → "zigbee", "living-temp", true
func ParseSourceState(topic string) (source, address string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[1] != "state" {
		return "", "", false
	}
	if parts[2] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}
