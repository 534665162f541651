package state

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"

	"github.com/goccy/go-json"
)

// JSON is a structured document: an object, an array or a scalar.
//
// Numbers are decoded as json.Number so no precision is lost before a
// numeric accessor is called.
type JSON struct {
	doc  any
	text []byte // compact encoding of doc
}

// NewJSON builds a JSON value from any marshalable Go value (maps, slices,
// structs). The document is normalised through a marshal round trip.
func NewJSON(doc any) (*JSON, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: marshalling document: %w", ErrInvalidPayload, err)
	}
	return decodeDocument(data)
}

// ParseJSON parses a JSON document from text.
func ParseJSON(s string) (*JSON, error) {
	return decodeDocument([]byte(s))
}

// decodeDocument validates, compacts and decodes data.
func decodeDocument(data []byte) (*JSON, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: malformed JSON document", ErrInvalidPayload)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, fmt.Errorf("%w: compacting JSON: %w", ErrInvalidPayload, err)
	}

	doc, err := decodeNumbers(compact.Bytes())
	if err != nil {
		return nil, err
	}

	return &JSON{doc: doc, text: compact.Bytes()}, nil
}

func decodeNumbers(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding JSON: %w", ErrInvalidPayload, err)
	}
	return doc, nil
}

// IsObject reports whether the document is a JSON object.
func (j *JSON) IsObject() bool {
	_, ok := j.doc.(map[string]any)
	return ok
}

// IsArray reports whether the document is a JSON array.
func (j *JSON) IsArray() bool {
	_, ok := j.doc.([]any)
	return ok
}

// Field walks path through nested objects and arrays and returns the
// element found there, classified with Of. Array elements are addressed by
// their decimal index.
//
// Example:
//
//	doc, _ := state.ParseJSON(`{"sensor":{"temp":21.5}}`)
//	v, ok := doc.Field("sensor", "temp") // Decimal 21.5, true
func (j *JSON) Field(path ...string) (Value, bool) {
	cur := j.doc
	for _, key := range path {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return Of(cur), true
}

// scalar returns the document as a Decimal when it is a number, a numeric
// string or a boolean.
func (j *JSON) scalar() (*Decimal, error) {
	var text string
	switch v := j.doc.(type) {
	case json.Number:
		text = string(v)
	case string:
		text = v
	case bool:
		if v {
			return decimalOne, nil
		}
		return decimalZero, nil
	default:
		return nil, fmt.Errorf("%w: JSON %s has no numeric form", ErrNotConvertible, j.shape())
	}

	d, err := ParseDecimal(text)
	if err != nil {
		return nil, fmt.Errorf("%w: JSON %q is not numeric", ErrNotConvertible, text)
	}
	return d, nil
}

func (j *JSON) shape() string {
	switch j.doc.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case nil:
		return "null"
	}
	return "scalar"
}

// Kind implements Value.
func (j *JSON) Kind() Kind { return KindJSON }

// Float implements Value. Only scalar documents convert.
func (j *JSON) Float() (float64, error) {
	d, err := j.scalar()
	if err != nil {
		return 0, err
	}
	return d.Float()
}

// Int implements Value. Only scalar documents convert.
func (j *JSON) Int() (int, error) {
	d, err := j.scalar()
	if err != nil {
		return 0, err
	}
	return d.Int()
}

// Int64 implements Value.
func (j *JSON) Int64() (int64, error) {
	d, err := j.scalar()
	if err != nil {
		return 0, err
	}
	return d.Int64()
}

// String implements Value and returns the compact document text.
func (j *JSON) String() string { return string(j.text) }

// FullString implements Value.
func (j *JSON) FullString() string { return j.String() }

// Bool implements Value using the default string rule.
func (j *JSON) Bool() bool { return defaultBool(j.String()) }

// Bytes implements Value.
func (j *JSON) Bytes() []byte { return bytes.Clone(j.text) }

// Native implements Value. It returns a freshly decoded document so callers
// cannot mutate the value.
func (j *JSON) Native() any {
	doc, err := decodeNumbers(j.text)
	if err != nil {
		return nil
	}
	return doc
}

// Equal implements Value. Object key order is irrelevant.
func (j *JSON) Equal(other Value) bool {
	o, ok := other.(*JSON)
	if !ok || o == nil || j == nil {
		return false
	}
	return reflect.DeepEqual(j.doc, o.doc)
}

// MarshalJSON implements Value.
func (j *JSON) MarshalJSON() ([]byte, error) {
	return bytes.Clone(j.text), nil
}

// Parse implements Parser.
func (j *JSON) Parse(s string) (Value, error) {
	return ParseJSON(s)
}

func (j *JSON) node() any {
	return json.RawMessage(bytes.Clone(j.text))
}
