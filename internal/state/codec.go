package state

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Record is the persisted form of a Value.
//
// Payload holds the string form for text-like variants and the raw bytes
// for Raw. ContentType is only meaningful for Raw.
type Record struct {
	Kind        Kind
	ContentType string
	Payload     []byte
}

// Encode converts v into its persisted Record.
//
// Returns:
//   - Record: kind-tagged payload
//   - error: ErrInvalidPayload for nil, ErrNotConvertible when an Object
//     payload cannot be marshalled
func Encode(v Value) (Record, error) {
	if v == nil {
		return Record{}, fmt.Errorf("%w: cannot encode nil value", ErrInvalidPayload)
	}

	switch x := v.(type) {
	case *Raw:
		return Record{Kind: KindRaw, ContentType: x.ContentType(), Payload: x.Bytes()}, nil
	case *Object:
		data, err := x.MarshalJSON()
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindObject, ContentType: ContentTypeJSON, Payload: data}, nil
	case *JSON:
		return Record{Kind: KindJSON, ContentType: ContentTypeJSON, Payload: x.Bytes()}, nil
	}

	if !v.Kind().Valid() {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidKind, v.Kind())
	}
	return Record{Kind: v.Kind(), ContentType: ContentTypePlainText, Payload: []byte(v.String())}, nil
}

// Decode rebuilds a Value from a Record produced by Encode.
//
// OnOff records decode to the On/Off singletons. Object records decode to
// an Object holding the generic JSON form of the original payload.
func Decode(r Record) (Value, error) {
	text := string(r.Payload)

	switch r.Kind {
	case KindOnOff:
		return ParseOnOff(text)
	case KindDecimal:
		return ParseDecimal(text)
	case KindString:
		return NewString(text), nil
	case KindJSON:
		return ParseJSON(text)
	case KindRaw:
		return NewRaw(r.Payload, r.ContentType), nil
	case KindObject:
		dec := json.NewDecoder(bytes.NewReader(r.Payload))
		dec.UseNumber()
		var payload any
		if err := dec.Decode(&payload); err != nil {
			return nil, fmt.Errorf("%w: decoding object payload: %w", ErrInvalidPayload, err)
		}
		return NewObject(payload), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidKind, r.Kind)
}
