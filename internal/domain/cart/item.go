package cart

import (
	"github.com/greenpack/storefront/internal/domain/catalog"
	"github.com/greenpack/storefront/internal/domain/money"
	"github.com/greenpack/storefront/internal/domain/plan"
)

// Kind distinguishes one-time packs from subscription boxes.
type Kind string

const (
	KindIndividual   Kind = "individual"
	KindSubscription Kind = "subscription"
)

// IsValid checks if the kind is known.
func (k Kind) IsValid() bool {
	return k == KindIndividual || k == KindSubscription
}

// Frequency is the delivery cadence of a subscription box.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// IsValid checks if the frequency is known.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// Subscription describes the plan box behind a subscription line.
type Subscription struct {
	TierID     catalog.TierID
	TierName   string
	Selections []plan.Selection
	Frequency  Frequency
}

// LineItem is one line in the cart. Its total is always derived.
type LineItem struct {
	id           string
	kind         Kind
	productID    string
	name         string
	quantity     int
	unitPrice    money.Money
	compareAt    *money.Money
	subscription *Subscription
}

// ID returns the line id.
func (i LineItem) ID() string { return i.id }

// Kind returns the line kind.
func (i LineItem) Kind() Kind { return i.kind }

// ProductID returns the variety id for individual lines and the tier id for
// subscription lines.
func (i LineItem) ProductID() string { return i.productID }

// Name returns the display name.
func (i LineItem) Name() string { return i.name }

// Quantity returns the line quantity. For subscription lines it is the
// number of packs in the box.
func (i LineItem) Quantity() int { return i.quantity }

// UnitPrice returns the price of one pack, or of one delivered box for
// subscription lines.
func (i LineItem) UnitPrice() money.Money { return i.unitPrice }

// IsSubscription reports whether the line is a plan box.
func (i LineItem) IsSubscription() bool { return i.kind == KindSubscription }

// Subscription returns the plan details of a subscription line, nil otherwise.
func (i LineItem) Subscription() *Subscription {
	if i.subscription == nil {
		return nil
	}
	sub := *i.subscription
	sub.Selections = append([]plan.Selection(nil), i.subscription.Selections...)
	return &sub
}

// TotalPrice returns the line total.
func (i LineItem) TotalPrice() money.Money {
	if i.kind == KindSubscription {
		return i.unitPrice
	}
	return i.unitPrice.Mul(i.quantity)
}

// CompareAtPrice returns the undiscounted line total, if any.
func (i LineItem) CompareAtPrice() *money.Money {
	if i.compareAt == nil {
		return nil
	}
	v := *i.compareAt
	return &v
}

// PromotionalSavings returns how much the line saves against its
// compare-at price.
func (i LineItem) PromotionalSavings() money.Money {
	if i.compareAt == nil {
		return money.Zero
	}
	return i.compareAt.Sub(i.TotalPrice()).Max(money.Zero)
}
