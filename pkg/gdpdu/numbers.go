package gdpdu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidNumber is returned for numeric fields that cannot be parsed.
var ErrInvalidNumber = errors.New("invalid number")

// ParseDecimal parses a German formatted amount such as "1.234,56" or "-0,5".
func ParseDecimal(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidNumber)
	}
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return d, nil
}

// FormatDecimal renders an amount with two fraction digits and a decimal comma.
// This is the only place amounts are rounded.
func FormatDecimal(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}
