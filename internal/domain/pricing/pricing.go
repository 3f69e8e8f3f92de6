package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/greenpack/storefront/internal/domain/money"
)

// Line is anything that contributes to the subtotal.
type Line interface {
	TotalPrice() money.Money
	PromotionalSavings() money.Money
}

// ShippingOption is a delivery rate offered for a postal code.
type ShippingOption struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Price         money.Money `json:"price"`
	Carrier       string      `json:"carrier,omitempty"`
	EstimatedDays int         `json:"estimated_days,omitempty"`
}

// TaxRule is the tax rate applied to the discounted subtotal.
type TaxRule struct {
	Rate decimal.Decimal
}

// TaxCalculation is the derived tax line.
type TaxCalculation struct {
	Rate   decimal.Decimal `json:"rate"`
	Amount money.Money     `json:"amount"`
}

// Policy holds store-wide pricing rules. FreeShippingThreshold waives
// shipping once the discounted subtotal reaches it; nil disables the rule.
type Policy struct {
	FreeShippingThreshold *money.Money
}

// Input is everything a price computation depends on.
type Input struct {
	Lines    []Line
	Shipping *ShippingOption
	Discount *Discount
	Tax      TaxRule
	Policy   Policy
}

// OrderPricing is the derived price breakdown of a checkout.
type OrderPricing struct {
	Subtotal       money.Money    `json:"subtotal"`
	DiscountAmount money.Money    `json:"discount_amount"`
	DiscountCode   string         `json:"discount_code,omitempty"`
	ShippingCost   money.Money    `json:"shipping_cost"`
	ShippingWaived money.Money    `json:"shipping_waived"`
	Tax            TaxCalculation `json:"tax"`
	Total          money.Money    `json:"total"`
	ItemSavings    money.Money    `json:"item_savings"`
	Savings        money.Money    `json:"savings"`
}

// Compute runs the pricing pipeline. It is pure: the same input always
// yields the same output, and on error nothing is returned.
func Compute(in Input) (OrderPricing, error) {
	if in.Tax.Rate.IsNegative() {
		return OrderPricing{}, fmt.Errorf("%w: tax rate %s is negative", ErrInvalidInput, in.Tax.Rate)
	}
	if in.Shipping != nil && in.Shipping.Price.IsNegative() {
		return OrderPricing{}, fmt.Errorf("%w: shipping %s priced at %s", ErrInvalidInput, in.Shipping.ID, in.Shipping.Price)
	}
	if t := in.Policy.FreeShippingThreshold; t != nil && t.IsNegative() {
		return OrderPricing{}, fmt.Errorf("%w: free shipping threshold %s is negative", ErrInvalidInput, t)
	}

	subtotal := money.Zero
	itemSavings := money.Zero
	for _, line := range in.Lines {
		total := line.TotalPrice()
		if total.IsNegative() {
			return OrderPricing{}, fmt.Errorf("%w: line total %s is negative", ErrInvalidInput, total)
		}
		subtotal = subtotal.Add(total)
		itemSavings = itemSavings.Add(line.PromotionalSavings())
	}

	discountAmount := money.Zero
	discountCode := ""
	waivedByDiscount := false
	if in.Discount != nil {
		amount, err := in.Discount.amountFor(subtotal)
		if err != nil {
			return OrderPricing{}, err
		}
		discountAmount = amount
		discountCode = in.Discount.Code
		waivedByDiscount = in.Discount.waivesShipping(subtotal)
	}
	discounted := subtotal.Sub(discountAmount)

	shipping, waived := shippingCost(in.Shipping, discounted, waivedByDiscount, in.Policy)

	tax := TaxCalculation{
		Rate:   in.Tax.Rate,
		Amount: discounted.MulRate(in.Tax.Rate),
	}

	total := discounted.Add(shipping).Add(tax.Amount).Max(money.Zero)

	return OrderPricing{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		DiscountCode:   discountCode,
		ShippingCost:   shipping,
		ShippingWaived: waived,
		Tax:            tax,
		Total:          total,
		ItemSavings:    itemSavings,
		Savings:        money.Sum(discountAmount, itemSavings, waived),
	}, nil
}

// shippingCost returns the charged shipping and the listed price that was
// waived, if any.
func shippingCost(option *ShippingOption, discounted money.Money, waivedByDiscount bool, policy Policy) (money.Money, money.Money) {
	if option == nil {
		return money.Zero, money.Zero
	}
	waive := waivedByDiscount
	if t := policy.FreeShippingThreshold; t != nil && discounted.GreaterThanOrEqual(*t) {
		waive = true
	}
	if waive {
		return money.Zero, option.Price
	}
	return option.Price, money.Zero
}
