package cart

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/greenpack/storefront/internal/domain/catalog"
	"github.com/greenpack/storefront/internal/domain/money"
	"github.com/greenpack/storefront/internal/domain/plan"
)

// AddPolicy decides what happens when the same variety is added twice.
type AddPolicy string

const (
	// PolicyAppend adds every AddItem call as its own line.
	PolicyAppend AddPolicy = "append"
	// PolicyMerge increments the existing line of the same variety.
	PolicyMerge AddPolicy = "merge"
)

// IsValid checks if the policy is known.
func (p AddPolicy) IsValid() bool {
	return p == PolicyAppend || p == PolicyMerge
}

// Limits bounds the quantity of individual lines.
type Limits struct {
	MinQuantity int
	MaxQuantity int
}

// DefaultLimits returns the storefront's quantity limits.
func DefaultLimits() Limits {
	return Limits{MinQuantity: 1, MaxQuantity: 10}
}

// Allows reports whether a quantity is within the limits.
func (l Limits) Allows(quantity int) bool {
	return quantity >= l.MinQuantity && quantity <= l.MaxQuantity
}

// Option configures a Cart.
type Option func(*Cart)

// WithPolicy sets the add policy.
func WithPolicy(p AddPolicy) Option {
	return func(c *Cart) {
		if p.IsValid() {
			c.policy = p
		}
	}
}

// WithLimits sets the quantity limits.
func WithLimits(l Limits) Option {
	return func(c *Cart) {
		if l.MinQuantity >= 1 && l.MaxQuantity >= l.MinQuantity {
			c.limits = l
		}
	}
}

// WithIDGenerator overrides how line ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(c *Cart) {
		c.newID = fn
	}
}

// Cart is an ordered collection of line items. It is not safe for
// concurrent use; the owning checkout session serialises access.
type Cart struct {
	items  []LineItem
	policy AddPolicy
	limits Limits
	newID  func() string
}

// New creates an empty cart.
func New(opts ...Option) *Cart {
	c := &Cart{
		policy: PolicyAppend,
		limits: DefaultLimits(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the add policy.
func (c *Cart) Policy() AddPolicy { return c.policy }

// Limits returns the quantity limits.
func (c *Cart) Limits() Limits { return c.limits }

// AddItem adds an individual pack line.
func (c *Cart) AddItem(variety catalog.Variety, quantity int) (LineItem, error) {
	if !variety.UnitPrice.IsPositive() {
		return LineItem{}, fmt.Errorf("%w: %s priced at %s", ErrNonPositivePrice, variety.ID, variety.UnitPrice)
	}
	if !c.limits.Allows(quantity) {
		return LineItem{}, fmt.Errorf("%w: %d not in %d..%d", ErrInvalidQuantity, quantity, c.limits.MinQuantity, c.limits.MaxQuantity)
	}

	if c.policy == PolicyMerge {
		for idx := range c.items {
			item := &c.items[idx]
			if item.kind != KindIndividual || item.productID != variety.ID {
				continue
			}
			merged := item.quantity + quantity
			if !c.limits.Allows(merged) {
				return LineItem{}, fmt.Errorf("%w: merged quantity %d exceeds %d", ErrInvalidQuantity, merged, c.limits.MaxQuantity)
			}
			item.quantity = merged
			return *item, nil
		}
	}

	item := LineItem{
		id:        c.newID(),
		kind:      KindIndividual,
		productID: variety.ID,
		name:      variety.Name,
		quantity:  quantity,
		unitPrice: variety.UnitPrice,
	}
	c.items = append(c.items, item)
	return item, nil
}

// AddSubscriptionPlan adds a plan box built from a validated selection.
// varieties must contain every selected variety.
func (c *Cart) AddSubscriptionPlan(tier catalog.PlanTier, selections []plan.Selection, frequency Frequency, varieties map[string]catalog.Variety) (LineItem, error) {
	if !frequency.IsValid() {
		return LineItem{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, frequency)
	}
	b, err := priceBox(tier, selections, varieties)
	if err != nil {
		return LineItem{}, err
	}
	item := LineItem{
		id:        c.newID(),
		kind:      KindSubscription,
		productID: tier.ID.String(),
		name:      boxName(tier),
		quantity:  plan.TotalPacks(b.selections),
		unitPrice: b.price,
		compareAt: b.compareAt,
		subscription: &Subscription{
			TierID:     tier.ID,
			TierName:   tier.Name,
			Selections: b.selections,
			Frequency:  frequency,
		},
	}
	c.items = append(c.items, item)
	return item, nil
}

// Reprice refreshes every line from current catalog data. Lines whose
// variety or tier is missing from the maps, or whose box no longer
// satisfies its tier, are removed and their ids returned.
func (c *Cart) Reprice(varieties map[string]catalog.Variety, tiers map[catalog.TierID]catalog.PlanTier) []string {
	var dropped []string
	kept := make([]LineItem, 0, len(c.items))
	for _, item := range c.items {
		switch item.kind {
		case KindIndividual:
			v, ok := varieties[item.productID]
			if !ok || !v.UnitPrice.IsPositive() {
				dropped = append(dropped, item.id)
				continue
			}
			item.name = v.Name
			item.unitPrice = v.UnitPrice
			item.compareAt = nil
		case KindSubscription:
			tier, ok := tiers[item.subscription.TierID]
			if !ok {
				dropped = append(dropped, item.id)
				continue
			}
			b, err := priceBox(tier, item.subscription.Selections, varieties)
			if err != nil {
				dropped = append(dropped, item.id)
				continue
			}
			item.name = boxName(tier)
			item.quantity = plan.TotalPacks(b.selections)
			item.unitPrice = b.price
			item.compareAt = b.compareAt
			item.subscription = &Subscription{
				TierID:     tier.ID,
				TierName:   tier.Name,
				Selections: b.selections,
				Frequency:  item.subscription.Frequency,
			}
		}
		kept = append(kept, item)
	}
	c.items = kept
	return dropped
}

type box struct {
	selections []plan.Selection
	price      money.Money
	compareAt  *money.Money
}

// priceBox validates a selection against its tier and prices the box at
// the tier's discount off the list price of its packs.
func priceBox(tier catalog.PlanTier, selections []plan.Selection, varieties map[string]catalog.Variety) (box, error) {
	if res := plan.Validate(tier, selections); !res.Valid {
		return box{}, res.Err()
	}

	listPrice := money.Zero
	kept := make([]plan.Selection, 0, len(selections))
	for _, s := range selections {
		if s.Quantity <= 0 {
			continue
		}
		v, ok := varieties[s.VarietyID]
		if !ok {
			return box{}, fmt.Errorf("%w: %s", ErrUnknownVariety, s.VarietyID)
		}
		if !v.UnitPrice.IsPositive() {
			return box{}, fmt.Errorf("%w: %s priced at %s", ErrNonPositivePrice, v.ID, v.UnitPrice)
		}
		listPrice = listPrice.Add(v.UnitPrice.Mul(s.Quantity))
		kept = append(kept, s)
	}

	b := box{
		selections: kept,
		price:      listPrice.MulRate(decimal.NewFromInt(1).Sub(tier.DiscountRate)),
	}
	if b.price.LessThan(listPrice) {
		b.compareAt = &listPrice
	}
	return b, nil
}

func boxName(tier catalog.PlanTier) string {
	return fmt.Sprintf("%s plan", tier.Name)
}

// UpdateQuantity sets the quantity of an individual line. It reports
// whether the cart changed. Subscription lines, unknown ids and quantities
// outside the limits leave the cart untouched.
func (c *Cart) UpdateQuantity(itemID string, quantity int) bool {
	if !c.limits.Allows(quantity) {
		return false
	}
	for idx := range c.items {
		item := &c.items[idx]
		if item.id != itemID {
			continue
		}
		if item.kind == KindSubscription || item.quantity == quantity {
			return false
		}
		item.quantity = quantity
		return true
	}
	return false
}

// RemoveItem removes a line. Removing an absent id is a no-op.
func (c *Cart) RemoveItem(itemID string) bool {
	for idx, item := range c.items {
		if item.id == itemID {
			c.items = append(c.items[:idx], c.items[idx+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Items returns the lines in insertion order.
func (c *Cart) Items() []LineItem {
	result := make([]LineItem, len(c.items))
	copy(result, c.items)
	return result
}

// Item returns a line by id.
func (c *Cart) Item(itemID string) (LineItem, bool) {
	for _, item := range c.items {
		if item.id == itemID {
			return item, true
		}
	}
	return LineItem{}, false
}

// HasItems reports whether the cart has any line.
func (c *Cart) HasItems() bool {
	return len(c.items) > 0
}

// ItemCount returns the sum of line quantities.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.items {
		count += item.quantity
	}
	return count
}

// Subtotal returns the sum of line totals.
func (c *Cart) Subtotal() money.Money {
	total := money.Zero
	for _, item := range c.items {
		total = total.Add(item.TotalPrice())
	}
	return total
}
