package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits carried by every monetary value.
// Amounts are stored as numeric(12,2) and transmitted as fixed-point strings.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Round applies the platform rounding policy: round-half-up to two places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns value * percent / 100 rounded to two places.
func Percent(value, percent decimal.Decimal) decimal.Decimal {
	return Round(value.Mul(percent).Div(hundred))
}

// IsNonNegative reports whether d >= 0.
func IsNonNegative(d decimal.Decimal) bool {
	return !d.IsNegative()
}

// ValidatePercent rejects percentages outside [0, 100].
func ValidatePercent(name string, percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return fmt.Errorf("%s must be between 0 and 100, got %s", name, percent)
	}
	return nil
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
