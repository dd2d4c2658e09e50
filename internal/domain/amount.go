package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places kept by Amount.
const AmountScale = 4

// Amount is a monetary value stored as an integer count of ten-thousandths
// (1.52 is represented by 15200).
type Amount int64

// ParseAmount converts a decimal literal into an Amount.
// Digits beyond the fourth decimal place are truncated toward zero.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrMalformedOperation)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrMalformedOperation, s)
	}

	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %q", ErrMalformedOperation, s)
	}

	scaled := d.Shift(AmountScale).Truncate(0)
	if scaled.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("%w: amount %q out of range", ErrMalformedOperation, s)
	}

	return Amount(scaled.IntPart()), nil
}

// Decimal returns the amount as a decimal value in whole units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -AmountScale)
}

// String renders the amount in whole units without trailing zeros.
func (a Amount) String() string {
	return a.Decimal().String()
}

// Add returns a+b, or false when the sum does not fit in an Amount
func (a Amount) Add(b Amount) (Amount, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

// Sub returns a-b, or false when the difference does not fit in an Amount
func (a Amount) Sub(b Amount) (Amount, bool) {
	if (b > 0 && a < math.MinInt64+b) || (b < 0 && a > math.MaxInt64+b) {
		return 0, false
	}
	return a - b, true
}
