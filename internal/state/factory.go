package state

import (
	"math"
	"reflect"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// category is the semantic class of an untyped input.
type category int

const (
	categoryNil category = iota
	categoryValue
	categoryDocument
	categoryNumber
	categoryBool
	categoryString
	categoryBytes
	categoryOther
)

// Of infers a Value from an untyped input.
//
// Classification is deterministic and total, applied in this order:
//  1. nil returns nil; a Value is returned unchanged
//  2. maps, decoded JSON arrays and json.RawMessage become JSON
//  3. numbers become Decimal, integral sources stay integral
//  4. booleans become the On/Off singletons
//  5. strings starting with '{' or '[' become JSON when they parse,
//     everything else StringValue
//  6. byte slices become Raw with a detected content type
//  7. anything else becomes Object
//
// Inputs in categories 2 and 3 that cannot be represented (a map holding a
// channel, a NaN float) fall back to Object rather than failing.
func Of(raw any) Value {
	switch classify(raw) {
	case categoryNil:
		return nil
	case categoryValue:
		return raw.(Value) //nolint:forcetypeassert // classify checked the type
	case categoryDocument:
		return documentOf(raw)
	case categoryNumber:
		return numberOf(raw)
	case categoryBool:
		return OnOffOf(reflect.ValueOf(raw).Bool())
	case categoryString:
		return stringOf(reflect.ValueOf(raw).String())
	case categoryBytes:
		return NewRaw(reflect.ValueOf(raw).Bytes(), "")
	default:
		return NewObject(raw)
	}
}

// classify returns the category of raw. Common concrete types are matched
// first; named types fall back to their underlying kind.
func classify(raw any) category {
	switch raw.(type) {
	case nil:
		return categoryNil
	case Value:
		return categoryValue
	case json.RawMessage, map[string]any, []any:
		return categoryDocument
	case json.Number, decimal.Decimal,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return categoryNumber
	case bool:
		return categoryBool
	case string:
		return categoryString
	case []byte:
		return categoryBytes
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Map:
		return categoryDocument
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return categoryNumber
	case reflect.Bool:
		return categoryBool
	case reflect.String:
		return categoryString
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return categoryBytes
		}
	}
	return categoryOther
}

func documentOf(raw any) Value {
	var (
		doc *JSON
		err error
	)
	if msg, ok := raw.(json.RawMessage); ok {
		doc, err = decodeDocument(msg)
	} else {
		doc, err = NewJSON(raw)
	}
	if err != nil {
		return NewObject(raw)
	}
	return doc
}

func numberOf(raw any) Value {
	switch n := raw.(type) {
	case decimal.Decimal:
		return NewDecimal(n)
	case json.Number:
		d, err := ParseDecimal(string(n))
		if err != nil {
			return NewString(string(n))
		}
		return d
	case float32:
		return floatOf(float64(n), func() *Decimal { return DecimalFromFloat32(n) })
	case float64:
		return floatOf(n, func() *Decimal { return DecimalFromFloat(n) })
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return DecimalFromInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return DecimalFromUint(rv.Uint())
	case reflect.Float32:
		f := float32(rv.Float())
		return floatOf(rv.Float(), func() *Decimal { return DecimalFromFloat32(f) })
	default:
		f := rv.Float()
		return floatOf(f, func() *Decimal { return DecimalFromFloat(f) })
	}
}

// floatOf guards against NaN and infinities, which decimal cannot hold.
func floatOf(f float64, build func() *Decimal) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NewObject(f)
	}
	return build()
}

func stringOf(s string) Value {
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		if doc, err := ParseJSON(s); err == nil {
			return doc
		}
	}
	return NewString(s)
}
