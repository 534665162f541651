package state

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Integer bounds used for range checks on conversion.
var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt   = decimal.NewFromInt(int64(math.MaxInt))
	minInt   = decimal.NewFromInt(int64(math.MinInt))
)

// Decimal is a numeric value stored with arbitrary precision.
//
// It remembers whether it was built from an integral or floating source so
// that 5 and 5.0 keep their textual form across encode/decode.
type Decimal struct {
	d        decimal.Decimal
	integral bool
}

// DecimalFromInt returns an integral Decimal.
func DecimalFromInt(i int64) *Decimal {
	return &Decimal{d: decimal.NewFromInt(i), integral: true}
}

// DecimalFromUint returns an integral Decimal. Values above MaxInt64 are
// kept exactly.
func DecimalFromUint(u uint64) *Decimal {
	if u <= math.MaxInt64 {
		return DecimalFromInt(int64(u))
	}
	return &Decimal{d: decimal.RequireFromString(strconv.FormatUint(u, 10)), integral: true}
}

// DecimalFromFloat returns a floating Decimal from a float64.
func DecimalFromFloat(f float64) *Decimal {
	return &Decimal{d: decimal.NewFromFloat(f)}
}

// DecimalFromFloat32 returns a floating Decimal using float32 precision,
// so 0.1 stays 0.1 rather than 0.10000000149.
func DecimalFromFloat32(f float32) *Decimal {
	return &Decimal{d: decimal.NewFromFloat32(f)}
}

// NewDecimal wraps a decimal.Decimal. It is integral when it has no
// fractional digits.
func NewDecimal(d decimal.Decimal) *Decimal {
	return &Decimal{d: d, integral: d.Exponent() >= 0}
}

// ParseDecimal parses a decimal number such as "21", "-0.5" or "1e3".
// Surrounding whitespace is ignored.
func ParseDecimal(s string) (*Decimal, error) {
	text := strings.TrimSpace(s)
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number: %w", ErrInvalidPayload, s, err)
	}
	return &Decimal{d: d, integral: !strings.ContainsAny(text, ".eE")}, nil
}

// Decimal returns the underlying decimal.Decimal.
func (x *Decimal) Decimal() decimal.Decimal {
	return x.d
}

// Integral reports whether the value came from an integral source.
func (x *Decimal) Integral() bool {
	return x.integral
}

// Kind implements Value.
func (x *Decimal) Kind() Kind { return KindDecimal }

// Float implements Value. Precision beyond float64 is lost.
func (x *Decimal) Float() (float64, error) {
	return x.d.InexactFloat64(), nil
}

// Int implements Value.
func (x *Decimal) Int() (int, error) {
	if x.d.GreaterThan(maxInt) || x.d.LessThan(minInt) {
		return 0, fmt.Errorf("%w: %s does not fit int", ErrOutOfRange, x.d)
	}
	return int(x.d.IntPart()), nil
}

// Int64 implements Value.
func (x *Decimal) Int64() (int64, error) {
	if x.d.GreaterThan(maxInt64) || x.d.LessThan(minInt64) {
		return 0, fmt.Errorf("%w: %s does not fit int64", ErrOutOfRange, x.d)
	}
	return x.d.IntPart(), nil
}

// String implements Value. A floating source with an integral value keeps
// one fractional digit ("5.0").
func (x *Decimal) String() string {
	if !x.integral && x.d.IsInteger() {
		return x.d.StringFixed(1)
	}
	return x.d.String()
}

// FullString implements Value.
func (x *Decimal) FullString() string { return x.String() }

// Bool implements Value using the default string rule.
func (x *Decimal) Bool() bool { return defaultBool(x.String()) }

// Bytes implements Value.
func (x *Decimal) Bytes() []byte { return []byte(x.String()) }

// Native implements Value. Integral values that fit return int64, all
// others float64.
func (x *Decimal) Native() any {
	if x.integral {
		if i, err := x.Int64(); err == nil {
			return i
		}
	}
	return x.d.InexactFloat64()
}

// Equal implements Value. Equality is numeric: 5 equals 5.0.
func (x *Decimal) Equal(other Value) bool {
	o, ok := other.(*Decimal)
	if !ok || o == nil || x == nil {
		return false
	}
	return x.d.Equal(o.d)
}

// MarshalJSON implements Value and writes a bare JSON number.
func (x *Decimal) MarshalJSON() ([]byte, error) {
	return []byte(x.String()), nil
}

// Parse implements Parser.
func (x *Decimal) Parse(s string) (Value, error) {
	return ParseDecimal(s)
}

func (x *Decimal) node() any {
	return json.Number(x.String())
}
