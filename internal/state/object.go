package state

import (
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// Object wraps a payload that has no dedicated variant.
//
// Conversions are best effort through spf13/cast and fail with
// ErrNotConvertible when the payload has no sensible mapping. Object cannot
// be rebuilt from text, so Optional on an Object fails.
type Object struct {
	payload any
}

// NewObject wraps payload.
func NewObject(payload any) *Object {
	return &Object{payload: payload}
}

// Kind implements Value.
func (o *Object) Kind() Kind { return KindObject }

// Float implements Value.
func (o *Object) Float() (float64, error) {
	f, err := cast.ToFloat64E(o.payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %T as float: %w", ErrNotConvertible, o.payload, err)
	}
	return f, nil
}

// Int implements Value.
func (o *Object) Int() (int, error) {
	i, err := cast.ToIntE(o.payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %T as int: %w", ErrNotConvertible, o.payload, err)
	}
	return i, nil
}

// Int64 implements Value.
func (o *Object) Int64() (int64, error) {
	i, err := cast.ToInt64E(o.payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %T as int64: %w", ErrNotConvertible, o.payload, err)
	}
	return i, nil
}

// String implements Value.
func (o *Object) String() string {
	if s, err := cast.ToStringE(o.payload); err == nil {
		return s
	}
	return fmt.Sprint(o.payload)
}

// FullString implements Value.
func (o *Object) FullString() string { return o.String() }

// Bool implements Value using the default string rule.
func (o *Object) Bool() bool { return defaultBool(o.String()) }

// Bytes implements Value.
func (o *Object) Bytes() []byte { return []byte(o.String()) }

// Native implements Value.
func (o *Object) Native() any { return o.payload }

// Equal implements Value.
func (o *Object) Equal(other Value) bool {
	x, ok := other.(*Object)
	if !ok || x == nil || o == nil {
		return false
	}
	return reflect.DeepEqual(o.payload, x.payload)
}

// MarshalJSON implements Value.
func (o *Object) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(o.payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %w", ErrNotConvertible, o.payload, err)
	}
	return data, nil
}
