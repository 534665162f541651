package state

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Value is the current value of a device datapoint.
//
// Implementations must be immutable: a new reading replaces a Value rather
// than mutating it.
type Value interface {
	// Kind returns the variant tag.
	Kind() Kind

	// Float returns the value as a float64.
	// Returns ErrNotConvertible when the variant has no numeric form.
	Float() (float64, error)

	// Int returns the value as an int, truncating towards zero.
	// Returns ErrNotConvertible or ErrOutOfRange on failure.
	Int() (int, error)

	// Int64 returns the value as an int64, truncating towards zero.
	Int64() (int64, error)

	// String returns the canonical text form of the value.
	String() string

	// FullString returns the human-readable form. For most variants this is
	// identical to String; OnOff renders ON/OFF.
	FullString() string

	// Bool returns the boolean interpretation of the value.
	Bool() bool

	// Bytes returns the wire form of the value. The returned slice is a copy.
	Bytes() []byte

	// Native returns the underlying Go representation.
	Native() any

	// Equal reports whether other holds the same value.
	Equal(other Value) bool

	// MarshalJSON returns the JSON node form of the value.
	MarshalJSON() ([]byte, error)
}

// Parser is implemented by variants that can be rebuilt from text.
// Optional uses it to construct a value of the receiver's own variant.
type Parser interface {
	Parse(s string) (Value, error)
}

// coercer is implemented by variants with explicit cross-variant
// conversions. target is the zero value of the requested type.
type coercer interface {
	coerce(target Value) (Value, bool)
}

// noder is implemented by variants that can describe themselves as a JSON
// document node without a marshal round trip.
type noder interface {
	node() any
}

// defaultBool is the boolean rule shared by all variants except OnOff:
// the string form equals "1" or, case-insensitively, "true".
func defaultBool(s string) bool {
	return s == "1" || strings.EqualFold(s, "true")
}

// FloatOr returns v.Float(), or def when v is nil or the conversion fails.
func FloatOr(v Value, def float64) float64 {
	if v == nil {
		return def
	}
	f, err := v.Float()
	if err != nil {
		return def
	}
	return f
}

// IntOr returns v.Int(), or def when v is nil or the conversion fails.
func IntOr(v Value, def int) int {
	if v == nil {
		return def
	}
	i, err := v.Int()
	if err != nil {
		return def
	}
	return i
}

// Int64Or returns v.Int64(), or def when v is nil or the conversion fails.
func Int64Or(v Value, def int64) int64 {
	if v == nil {
		return def
	}
	i, err := v.Int64()
	if err != nil {
		return def
	}
	return i
}

// BoolString returns on when v is true and off otherwise.
// A nil value renders as off.
func BoolString(v Value, on, off string) string {
	if v != nil && v.Bool() {
		return on
	}
	return off
}

// As returns v as the variant T.
//
// It is a safe downcast: when v is not a T the result is the zero T and
// false. OnOff additionally converts to *Decimal (On is 1, Off is 0); no
// other cross-variant conversion exists.
//
// Example:
//
//	d, ok := state.As[*state.Decimal](state.On)
//	// d.Int() == 1, ok == true
func As[T Value](v Value) (T, bool) {
	var zero T
	if v == nil {
		return zero, false
	}
	if t, ok := v.(T); ok {
		return t, true
	}
	if c, ok := v.(coercer); ok {
		if out, ok := c.coerce(zero); ok {
			if t, ok := out.(T); ok {
				return t, true
			}
		}
	}
	return zero, false
}

// Optional returns v unchanged when s is empty, otherwise a new value of the
// same variant parsed from s.
//
// This supports "default unless overridden" parsing: a configured default
// value is reused for empty input and replaced by the parsed override
// otherwise.
//
// Returns:
//   - Value: v itself (identity preserved) or the newly parsed value
//   - error: ErrNoStringConstructor when the variant cannot be rebuilt from
//     text, or the variant's parse error
func Optional(v Value, s string) (Value, error) {
	if s == "" {
		return v, nil
	}
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrNoStringConstructor)
	}
	p, ok := v.(Parser)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoStringConstructor, v.Kind())
	}
	return p.Parse(s)
}

// ToRaw returns the Raw form of v.
//
// A Raw value is returned as is; any other variant becomes plain text of
// its string form.
func ToRaw(v Value) *Raw {
	if r, ok := v.(*Raw); ok {
		return r
	}
	if v == nil {
		return RawPlainText("")
	}
	return RawPlainText(v.String())
}

// SetAsNode stores the JSON node form of v under key in node.
// A nil value is stored as JSON null.
func SetAsNode(node map[string]any, key string, v Value) {
	node[key] = nodeOf(v)
}

// nodeOf returns the JSON document node for v.
func nodeOf(v Value) any {
	if v == nil {
		return nil
	}
	if n, ok := v.(noder); ok {
		return n.node()
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return v.String()
	}
	return json.RawMessage(data)
}
