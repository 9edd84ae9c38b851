package order

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is a decimal decoded leniently from merchant configuration.
// JSON numbers and numeric strings are accepted; anything else decodes to zero.
type Number struct {
	decimal.Decimal
}

// NewNumber wraps a decimal.
func NewNumber(d decimal.Decimal) Number {
	return Number{Decimal: d}
}

// ParseNumber parses s, returning zero when s is not numeric.
func ParseNumber(s string) Number {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Number{}
	}
	return Number{Decimal: d}
}

// UnmarshalJSON never fails: malformed input yields zero.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 1 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	*n = ParseNumber(string(data))
	return nil
}

// MarshalJSON writes the value as an unquoted JSON number.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.Decimal.String()), nil
}

// nonNegative clamps negative values to zero.
func (n Number) nonNegative() Number {
	if n.IsNegative() {
		return Number{}
	}
	return n
}
