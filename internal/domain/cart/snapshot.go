package cart

import (
	"fmt"

	"github.com/greenpack/storefront/internal/domain/catalog"
	"github.com/greenpack/storefront/internal/domain/money"
	"github.com/greenpack/storefront/internal/domain/plan"
)

// Snapshot is the serialisable form of a cart.
type Snapshot struct {
	Items     []ItemSnapshot `json:"items"`
	Subtotal  money.Money    `json:"subtotal"`
	ItemCount int            `json:"item_count"`
}

// ItemSnapshot is the serialisable form of a line item.
type ItemSnapshot struct {
	ID             string           `json:"id"`
	Kind           Kind             `json:"kind"`
	ProductID      string           `json:"product_id"`
	Name           string           `json:"name"`
	Quantity       int              `json:"quantity"`
	UnitPrice      money.Money      `json:"unit_price"`
	TotalPrice     money.Money      `json:"total_price"`
	CompareAtPrice *money.Money     `json:"compare_at_price,omitempty"`
	TierID         catalog.TierID   `json:"tier_id,omitempty"`
	TierName       string           `json:"tier_name,omitempty"`
	Selections     []plan.Selection `json:"selections,omitempty"`
	Frequency      Frequency        `json:"frequency,omitempty"`
}

// Snapshot captures the current cart contents.
func (c *Cart) Snapshot() Snapshot {
	items := make([]ItemSnapshot, 0, len(c.items))
	for _, item := range c.items {
		s := ItemSnapshot{
			ID:             item.id,
			Kind:           item.kind,
			ProductID:      item.productID,
			Name:           item.name,
			Quantity:       item.quantity,
			UnitPrice:      item.unitPrice,
			TotalPrice:     item.TotalPrice(),
			CompareAtPrice: item.CompareAtPrice(),
		}
		if sub := item.Subscription(); sub != nil {
			s.TierID = sub.TierID
			s.TierName = sub.TierName
			s.Selections = sub.Selections
			s.Frequency = sub.Frequency
		}
		items = append(items, s)
	}
	return Snapshot{
		Items:     items,
		Subtotal:  c.Subtotal(),
		ItemCount: c.ItemCount(),
	}
}

// Restore replaces the cart contents with a snapshot. Derived fields in
// the snapshot are ignored and recomputed. The cart is left untouched if
// any line breaks a cart invariant.
func (c *Cart) Restore(s Snapshot) error {
	items := make([]LineItem, 0, len(s.Items))
	seen := make(map[string]struct{}, len(s.Items))
	for _, is := range s.Items {
		if is.ID == "" {
			return fmt.Errorf("%w: line without id", ErrInvalidSnapshot)
		}
		if _, dup := seen[is.ID]; dup {
			return fmt.Errorf("%w: duplicate line %s", ErrInvalidSnapshot, is.ID)
		}
		seen[is.ID] = struct{}{}
		if !is.UnitPrice.IsPositive() {
			return fmt.Errorf("%w: line %s priced at %s", ErrInvalidSnapshot, is.ID, is.UnitPrice)
		}

		item := LineItem{
			id:        is.ID,
			kind:      is.Kind,
			productID: is.ProductID,
			name:      is.Name,
			quantity:  is.Quantity,
			unitPrice: is.UnitPrice,
			compareAt: is.CompareAtPrice,
		}
		switch is.Kind {
		case KindIndividual:
			if !c.limits.Allows(is.Quantity) {
				return fmt.Errorf("%w: line %s quantity %d", ErrInvalidSnapshot, is.ID, is.Quantity)
			}
		case KindSubscription:
			if plan.TotalPacks(is.Selections) != is.Quantity || is.Quantity <= 0 {
				return fmt.Errorf("%w: line %s pack count mismatch", ErrInvalidSnapshot, is.ID)
			}
			item.subscription = &Subscription{
				TierID:     is.TierID,
				TierName:   is.TierName,
				Selections: append([]plan.Selection(nil), is.Selections...),
				Frequency:  is.Frequency,
			}
		default:
			return fmt.Errorf("%w: line %s has kind %q", ErrInvalidSnapshot, is.ID, is.Kind)
		}
		items = append(items, item)
	}
	c.items = items
	return nil
}
