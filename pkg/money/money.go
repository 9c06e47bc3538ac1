// Package money converts between decimal currency strings and int64 minor
// units. Ledger rows always carry minor units; decimals only exist at the
// edges (request parsing, responses, audit snapshots).
package money

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for every currency amount.
const Scale = 2

var (
	ErrEmpty        = errors.New("amount_required")
	ErrNotNumeric   = errors.New("invalid_amount")
	ErrPrecision    = errors.New("invalid_amount_precision")
	ErrOutOfRange   = errors.New("amount_out_of_range")
	maxMinorDecimal = decimal.NewFromInt(math.MaxInt64)
)

// Parse reads a decimal amount such as "500.00" and returns it in minor
// units. Signs are preserved so callers can reject non-positive values with
// their own message.
func Parse(raw string) (int64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, ErrEmpty
	}

	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return 0, ErrNotNumeric
	}
	if !parsed.Equal(parsed.Round(Scale)) {
		return 0, ErrPrecision
	}

	minor := parsed.Shift(Scale)
	if minor.Abs().GreaterThan(maxMinorDecimal) {
		return 0, ErrOutOfRange
	}
	return minor.IntPart(), nil
}

// Format renders minor units as a fixed two-decimal string.
func Format(minor int64) string {
	return decimal.New(minor, -Scale).StringFixed(Scale)
}

// Decimal exposes minor units as a decimal value.
func Decimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -Scale)
}

// ClampZero returns max(0, value) and whether the clamp changed anything.
func ClampZero(value int64) (int64, bool) {
	if value < 0 {
		return 0, true
	}
	return value, false
}
