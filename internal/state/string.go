package state

import (
	"fmt"

	"github.com/goccy/go-json"
)

// StringValue is raw text.
type StringValue struct {
	s string
}

// NewString returns a StringValue holding s.
func NewString(s string) *StringValue {
	return &StringValue{s: s}
}

// Kind implements Value.
func (v *StringValue) Kind() Kind { return KindString }

// Float implements Value. The text must be a decimal number.
func (v *StringValue) Float() (float64, error) {
	d, err := ParseDecimal(v.s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q as float", ErrNotConvertible, v.s)
	}
	return d.Float()
}

// Int implements Value. Fractional text is truncated ("21.7" is 21).
func (v *StringValue) Int() (int, error) {
	d, err := ParseDecimal(v.s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q as int", ErrNotConvertible, v.s)
	}
	return d.Int()
}

// Int64 implements Value.
func (v *StringValue) Int64() (int64, error) {
	d, err := ParseDecimal(v.s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q as int64", ErrNotConvertible, v.s)
	}
	return d.Int64()
}

// String implements Value.
func (v *StringValue) String() string { return v.s }

// FullString implements Value.
func (v *StringValue) FullString() string { return v.s }

// Bool implements Value using the default string rule.
func (v *StringValue) Bool() bool { return defaultBool(v.s) }

// Bytes implements Value.
func (v *StringValue) Bytes() []byte { return []byte(v.s) }

// Native implements Value.
func (v *StringValue) Native() any { return v.s }

// Equal implements Value.
func (v *StringValue) Equal(other Value) bool {
	o, ok := other.(*StringValue)
	if !ok || o == nil || v == nil {
		return false
	}
	return v.s == o.s
}

// MarshalJSON implements Value.
func (v *StringValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.s)
}

// Parse implements Parser.
func (v *StringValue) Parse(s string) (Value, error) {
	return NewString(s), nil
}

func (v *StringValue) node() any {
	return v.s
}
