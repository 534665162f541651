// Package datapoint tracks the last known value of every datapoint the
// core listens to.
//
// A datapoint is a single readable quantity of a device: a temperature,
// a relay position, a camera snapshot. Bridges publish raw payloads to
// homio/state/{source}/{address}; the Ingestor resolves each topic to a
// Definition, parses the payload into a state.Value and feeds the Store.
// Changed values are persisted, recorded as history, written to InfluxDB
// when numeric and re-published as canonical JSON on
// homio/core/datapoint/{id}/state.
//
// # Components
//
//   - Definition: configured datapoint (topic, kind, default, unit)
//   - Resolver: topic → Definition, payload → state.Value
//   - Store: thread-safe last-value cache producing state.Transition
//   - Repository: SQLite persistence of latest values and history
//   - Ingestor: the MQTT message pipeline tying the above together
//
// # Thread Safety
//
// Store, Resolver and Ingestor are safe for concurrent use.
package datapoint
