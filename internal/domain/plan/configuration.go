package plan

import "github.com/greenpack/storefront/internal/domain/catalog"

// Configuration is a mutable plan box being assembled by a customer.
// Selections keep the order in which varieties were first chosen.
type Configuration struct {
	tier       catalog.PlanTier
	selections []Selection
}

// NewConfiguration starts an empty configuration for a tier.
func NewConfiguration(tier catalog.PlanTier) *Configuration {
	return &Configuration{tier: tier}
}

// FromSelections builds a configuration from an existing breakdown,
// clamping negative quantities to zero and merging repeated varieties.
func FromSelections(tier catalog.PlanTier, selections []Selection) *Configuration {
	c := NewConfiguration(tier)
	for _, s := range selections {
		c.SetQuantity(s.VarietyID, c.Quantity(s.VarietyID)+clamp(s.Quantity))
	}
	return c
}

// Tier returns the configured tier.
func (c *Configuration) Tier() catalog.PlanTier {
	return c.tier
}

// SetQuantity sets a variety's quantity. Values below zero clamp to zero.
func (c *Configuration) SetQuantity(varietyID string, quantity int) {
	quantity = clamp(quantity)
	for i := range c.selections {
		if c.selections[i].VarietyID == varietyID {
			c.selections[i].Quantity = quantity
			return
		}
	}
	c.selections = append(c.selections, Selection{VarietyID: varietyID, Quantity: quantity})
}

// Increment adds one pack of a variety.
func (c *Configuration) Increment(varietyID string) {
	c.SetQuantity(varietyID, c.Quantity(varietyID)+1)
}

// Decrement removes one pack of a variety, never going below zero.
func (c *Configuration) Decrement(varietyID string) {
	c.SetQuantity(varietyID, c.Quantity(varietyID)-1)
}

// Quantity returns the quantity of a variety, zero if not selected.
func (c *Configuration) Quantity(varietyID string) int {
	for _, s := range c.selections {
		if s.VarietyID == varietyID {
			return s.Quantity
		}
	}
	return 0
}

// Selections returns the non-zero selections in insertion order.
func (c *Configuration) Selections() []Selection {
	result := make([]Selection, 0, len(c.selections))
	for _, s := range c.selections {
		if s.Quantity > 0 {
			result = append(result, s)
		}
	}
	return result
}

// TotalPacks returns the number of packs in the box.
func (c *Configuration) TotalPacks() int {
	return TotalPacks(c.selections)
}

// Validate validates the configuration against its tier.
func (c *Configuration) Validate() Result {
	return Validate(c.tier, c.Selections())
}

func clamp(quantity int) int {
	if quantity < 0 {
		return 0
	}
	return quantity
}
