// Package state provides the typed value abstraction for Homio Core.
//
// A Value is the current reading of a device datapoint, independent of where
// it came from (an MQTT payload, a configured default, a persisted row).
// Every variant supports the same coercion accessors so that consumers can
// compare, format and convert values without inspecting their concrete type.
//
// # Variants
//
//   - OnOff: discrete boolean state with the process-wide singletons On and Off
//   - Decimal: arbitrary precision number (shopspring/decimal)
//   - StringValue: raw text
//   - JSON: structured document (object, array or scalar)
//   - Raw: opaque bytes with a MIME content type
//   - Object: escape hatch for payloads without a defined conversion
//
// # Construction
//
// Of classifies an untyped input in a fixed order (document, number, boolean,
// string, bytes, fallback). Optional rebuilds a value of the same variant
// from text, returning the receiver untouched when the text is empty.
//
// # Errors
//
// Accessors that cannot produce a sensible result return ErrNotConvertible
// or ErrOutOfRange. FloatOr, IntOr and Int64Or swallow those failures and
// return the supplied default instead.
//
// # Thread Safety
//
// Values are immutable once constructed and safe to share between goroutines
// without locking.
package state
