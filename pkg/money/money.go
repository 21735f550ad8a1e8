// Package money provides the exact decimal helpers used for balances and amounts.
//
// Invariants:
//   - Amounts and balances are shopspring decimals, never binary floats.
//   - At most Scale fractional digits are accepted; nothing is rounded silently.
//   - Amounts moved by an operation are strictly positive.
package money

import (
	"fmt"
	"strings"

	"github.com/amirasaad/vatm/pkg/domain"
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits stored for every monetary value.
const Scale int32 = 2

// Zero is the zero amount, used for non-monetary movements.
var Zero = decimal.Zero

// Parse converts a textual amount ("100000", "49.90") into a validated positive amount.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks that d can be moved: strictly positive and at most Scale decimals.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if !HasValidScale(d) {
		return domain.ErrInvalidAmount
	}
	return nil
}

// ValidateBalance checks that d can be stored as a balance: non-negative and at most Scale decimals.
func ValidateBalance(d decimal.Decimal) error {
	if d.IsNegative() || !HasValidScale(d) {
		return domain.ErrInvalidAmount
	}
	return nil
}

// HasValidScale reports whether d has no more than Scale fractional digits.
func HasValidScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Scale))
}

// Format renders d with exactly Scale fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
