package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every derived amount is rounded to.
const Scale = 2

// Money represents a monetary amount in the store currency.
// It is an immutable value object backed by a fixed-point decimal.
type Money struct {
	amount decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{amount: decimal.Zero}

// New creates a Money from a decimal, rounded to Scale places.
func New(amount decimal.Decimal) Money {
	return Money{amount: amount.Round(Scale)}
}

// FromCents creates a Money from an amount in the smallest currency unit.
func FromCents(cents int64) Money {
	return Money{amount: decimal.New(cents, -Scale)}
}

// Parse parses a decimal string such as "15.00".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("parse money %q: %w", s, err)
	}
	return New(d), nil
}

// MustParse is like Parse but panics on malformed input. Intended for
// constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the underlying decimal amount.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Cents returns the amount in the smallest currency unit.
func (m Money) Cents() int64 {
	return m.amount.Shift(Scale).Round(0).IntPart()
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return New(m.amount.Add(other.amount))
}

// Sub returns the difference of two amounts.
func (m Money) Sub(other Money) Money {
	return New(m.amount.Sub(other.amount))
}

// Mul returns the amount multiplied by an integer quantity.
func (m Money) Mul(quantity int) Money {
	return New(m.amount.Mul(decimal.NewFromInt(int64(quantity))))
}

// MulRate returns the amount multiplied by a rate, rounded to Scale places.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return New(m.amount.Mul(rate))
}

// Min returns the smaller of two amounts.
func (m Money) Min(other Money) Money {
	if m.amount.LessThanOrEqual(other.amount) {
		return m
	}
	return other
}

// Max returns the larger of two amounts.
func (m Money) Max(other Money) Money {
	if m.amount.GreaterThanOrEqual(other.amount) {
		return m
	}
	return other
}

// Equal checks if two amounts are equal.
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// GreaterThanOrEqual reports whether m >= other.
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.amount.GreaterThanOrEqual(other.amount)
}

// String returns the amount with exactly two decimals, e.g. "37.40".
func (m Money) String() string {
	return m.amount.StringFixed(Scale)
}

// MarshalJSON encodes the amount as a fixed two-decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare decimal numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("unmarshal money: %w", err)
	}
	*m = New(d)
	return nil
}

// Sum adds up a list of amounts.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
