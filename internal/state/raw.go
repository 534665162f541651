package state

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"
)

// Common content types for Raw values.
const (
	ContentTypePlainText = "text/plain"
	ContentTypeJSON      = "application/json"
	ContentTypeOctet     = "application/octet-stream"
)

// Raw is an opaque byte payload with a declared MIME content type, such as
// a camera snapshot or an undecoded bridge frame.
type Raw struct {
	data        []byte
	contentType string
}

// rawNode is the JSON node form of a Raw value.
type rawNode struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// NewRaw returns a Raw value holding a copy of data.
// When contentType is empty it is detected from the content.
func NewRaw(data []byte, contentType string) *Raw {
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	return &Raw{data: bytes.Clone(data), contentType: contentType}
}

// RawPlainText returns a text/plain Raw value.
func RawPlainText(s string) *Raw {
	return &Raw{data: []byte(s), contentType: ContentTypePlainText}
}

// ContentType returns the MIME type of the payload, possibly with
// parameters ("text/plain; charset=utf-8").
func (r *Raw) ContentType() string {
	return r.contentType
}

// MediaType returns the content type without parameters, lower-cased.
func (r *Raw) MediaType() string {
	mt, _, _ := strings.Cut(r.contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// Len returns the payload size in bytes.
func (r *Raw) Len() int {
	return len(r.data)
}

// IsText reports whether the payload is textual and String returns it
// verbatim.
func (r *Raw) IsText() bool {
	mt := r.MediaType()
	return strings.HasPrefix(mt, "text/") ||
		strings.HasSuffix(mt, "json") ||
		strings.HasSuffix(mt, "xml")
}

func (r *Raw) text() (*StringValue, error) {
	if !r.IsText() {
		return nil, fmt.Errorf("%w: binary payload of type %s", ErrNotConvertible, r.contentType)
	}
	return NewString(string(r.data)), nil
}

// Kind implements Value.
func (r *Raw) Kind() Kind { return KindRaw }

// Float implements Value. Only textual payloads convert.
func (r *Raw) Float() (float64, error) {
	t, err := r.text()
	if err != nil {
		return 0, err
	}
	return t.Float()
}

// Int implements Value. Only textual payloads convert.
func (r *Raw) Int() (int, error) {
	t, err := r.text()
	if err != nil {
		return 0, err
	}
	return t.Int()
}

// Int64 implements Value.
func (r *Raw) Int64() (int64, error) {
	t, err := r.text()
	if err != nil {
		return 0, err
	}
	return t.Int64()
}

// String implements Value. Textual payloads are returned verbatim, binary
// payloads base64 encoded.
func (r *Raw) String() string {
	if r.IsText() {
		return string(r.data)
	}
	return base64.StdEncoding.EncodeToString(r.data)
}

// FullString implements Value.
func (r *Raw) FullString() string { return r.String() }

// Bool implements Value using the default string rule.
func (r *Raw) Bool() bool { return defaultBool(r.String()) }

// Bytes implements Value and returns the payload itself.
func (r *Raw) Bytes() []byte { return bytes.Clone(r.data) }

// Native implements Value.
func (r *Raw) Native() any { return bytes.Clone(r.data) }

// Equal implements Value.
func (r *Raw) Equal(other Value) bool {
	o, ok := other.(*Raw)
	if !ok || o == nil || r == nil {
		return false
	}
	return r.MediaType() == o.MediaType() && bytes.Equal(r.data, o.data)
}

// MarshalJSON implements Value.
func (r *Raw) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.node())
}

// Parse implements Parser and returns a plain text payload.
func (r *Raw) Parse(s string) (Value, error) {
	return RawPlainText(s), nil
}

func (r *Raw) node() any {
	return rawNode{
		ContentType: r.contentType,
		Data:        base64.StdEncoding.EncodeToString(r.data),
	}
}
