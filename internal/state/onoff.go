package state

import (
	"fmt"
	"strings"
)

// OnOff is a discrete boolean state.
//
// Only the two singletons On and Off exist; producers obtain them through
// OnOffOf or ParseOnOff, so identity comparison is valid.
type OnOff struct {
	on bool
}

// The two OnOff states. They are created once and never mutated.
var (
	On  = &OnOff{on: true}
	Off = &OnOff{on: false}
)

// Cross-variant targets for As.
var (
	decimalOne  = DecimalFromInt(1)
	decimalZero = DecimalFromInt(0)
)

// OnOffOf returns On for true and Off for false.
func OnOffOf(on bool) *OnOff {
	if on {
		return On
	}
	return Off
}

// ParseOnOff parses 1/0, true/false and on/off (case-insensitive).
func ParseOnOff(s string) (*OnOff, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on":
		return On, nil
	case "0", "false", "off":
		return Off, nil
	}
	return nil, fmt.Errorf("%w: %q is not an on/off value", ErrInvalidPayload, s)
}

// Kind implements Value.
func (o *OnOff) Kind() Kind { return KindOnOff }

// Float implements Value. On is 1.0, Off is 0.0.
func (o *OnOff) Float() (float64, error) {
	if o.Bool() {
		return 1, nil
	}
	return 0, nil
}

// Int implements Value. On is 1, Off is 0.
func (o *OnOff) Int() (int, error) {
	if o.Bool() {
		return 1, nil
	}
	return 0, nil
}

// Int64 implements Value.
func (o *OnOff) Int64() (int64, error) {
	i, _ := o.Int() //nolint:errcheck // OnOff conversions cannot fail
	return int64(i), nil
}

// String implements Value and returns "1" or "0".
func (o *OnOff) String() string {
	if o.Bool() {
		return "1"
	}
	return "0"
}

// FullString implements Value and returns "ON" or "OFF".
func (o *OnOff) FullString() string {
	if o.Bool() {
		return "ON"
	}
	return "OFF"
}

// Bool implements Value. Only the On singleton is true.
func (o *OnOff) Bool() bool {
	return o == On
}

// Bytes implements Value and returns "ON" or "OFF".
func (o *OnOff) Bytes() []byte {
	return []byte(o.FullString())
}

// Native implements Value.
func (o *OnOff) Native() any {
	return o.Bool()
}

// Equal implements Value. Two OnOff values are equal when their payloads match.
func (o *OnOff) Equal(other Value) bool {
	x, ok := other.(*OnOff)
	if !ok || x == nil || o == nil {
		return false
	}
	return o.on == x.on
}

// MarshalJSON implements Value.
func (o *OnOff) MarshalJSON() ([]byte, error) {
	if o.Bool() {
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

// Parse implements Parser.
func (o *OnOff) Parse(s string) (Value, error) {
	return ParseOnOff(s)
}

func (o *OnOff) node() any {
	return o.Bool()
}

func (o *OnOff) coerce(target Value) (Value, bool) {
	switch target.(type) {
	case *Decimal:
		if o.Bool() {
			return decimalOne, true
		}
		return decimalZero, true
	}
	return nil, false
}
