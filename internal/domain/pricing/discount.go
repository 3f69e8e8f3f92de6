package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/greenpack/storefront/internal/domain/money"
)

// DiscountKind tags the variant of a Discount.
type DiscountKind string

const (
	DiscountPercent      DiscountKind = "percent"
	DiscountFixed        DiscountKind = "fixed"
	DiscountFreeShipping DiscountKind = "free_shipping"
)

// IsValid checks if the kind is known.
func (k DiscountKind) IsValid() bool {
	switch k {
	case DiscountPercent, DiscountFixed, DiscountFreeShipping:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// Discount is an applied promotion. Percent is read only for percent
// discounts and Amount only for fixed ones. A non-nil MinSubtotal is the
// subtotal the cart must reach for the discount to take effect.
type Discount struct {
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Kind        DiscountKind    `json:"kind"`
	Percent     decimal.Decimal `json:"percent,omitempty"`
	Amount      money.Money     `json:"amount,omitempty"`
	MinSubtotal *money.Money    `json:"min_subtotal,omitempty"`
}

// PercentOff builds a percent discount.
func PercentOff(code string, percent decimal.Decimal) Discount {
	return Discount{
		Code:        code,
		Kind:        DiscountPercent,
		Percent:     percent,
		Description: fmt.Sprintf("%s%% off", percent.String()),
	}
}

// AmountOff builds a fixed discount.
func AmountOff(code string, amount money.Money) Discount {
	return Discount{
		Code:        code,
		Kind:        DiscountFixed,
		Amount:      amount,
		Description: fmt.Sprintf("$%s off", amount),
	}
}

// FreeShipping builds a free-shipping discount.
func FreeShipping(code string) Discount {
	return Discount{
		Code:        code,
		Kind:        DiscountFreeShipping,
		Description: "Free shipping",
	}
}

// Validate checks the discount descriptor.
func (d Discount) Validate() error {
	switch d.Kind {
	case DiscountPercent:
		if d.Percent.IsNegative() || d.Percent.GreaterThan(hundred) {
			return fmt.Errorf("%w: percent %s outside 0..100", ErrInvalidInput, d.Percent)
		}
	case DiscountFixed:
		if d.Amount.IsNegative() {
			return fmt.Errorf("%w: fixed amount %s is negative", ErrInvalidInput, d.Amount)
		}
	case DiscountFreeShipping:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDiscountKind, d.Kind)
	}
	if d.MinSubtotal != nil && d.MinSubtotal.IsNegative() {
		return fmt.Errorf("%w: minimum subtotal %s is negative", ErrInvalidInput, d.MinSubtotal)
	}
	return nil
}

// EligibleFor reports whether the discount applies at the given subtotal.
func (d Discount) EligibleFor(subtotal money.Money) bool {
	return d.MinSubtotal == nil || subtotal.GreaterThanOrEqual(*d.MinSubtotal)
}

// amountFor returns the money taken off the subtotal. Free shipping takes
// nothing off the subtotal.
func (d Discount) amountFor(subtotal money.Money) (money.Money, error) {
	if err := d.Validate(); err != nil {
		return money.Zero, err
	}
	if !d.EligibleFor(subtotal) {
		return money.Zero, nil
	}
	switch d.Kind {
	case DiscountPercent:
		return subtotal.MulRate(d.Percent.Div(hundred)).Min(subtotal), nil
	case DiscountFixed:
		return d.Amount.Min(subtotal), nil
	default:
		return money.Zero, nil
	}
}

// waivesShipping reports whether the discount zeroes shipping.
func (d Discount) waivesShipping(subtotal money.Money) bool {
	return d.Kind == DiscountFreeShipping && d.EligibleFor(subtotal)
}
