package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/greenpack/storefront/internal/domain/money"
)

// TierID identifies a subscription plan tier.
type TierID string

const (
	TierStarter TierID = "starter"
	TierPro     TierID = "pro"
	TierElite   TierID = "elite"
)

// String returns the string representation of the tier.
func (t TierID) String() string {
	return string(t)
}

// IsValid checks if the tier is one of the known tiers.
func (t TierID) IsValid() bool {
	switch t {
	case TierStarter, TierPro, TierElite:
		return true
	}
	return false
}

// Variety is a single microgreens product sold as a pack.
type Variety struct {
	ID        string
	Name      string
	UnitPrice money.Money
	Theme     string
}

// Validate checks the catalog invariants of a variety.
func (v Variety) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidVariety)
	}
	if !v.UnitPrice.IsPositive() {
		return fmt.Errorf("%w: %s has non-positive price %s", ErrInvalidVariety, v.ID, v.UnitPrice)
	}
	return nil
}

// PlanTier describes how many packs a subscription box of this tier holds.
// RequiredPacks is nil for open tiers, which accept any positive count.
// DiscountRate is the subscription discount applied to the pack prices.
type PlanTier struct {
	ID            TierID
	Name          string
	RequiredPacks *int
	DiscountRate  decimal.Decimal
}

// IsFixed reports whether the tier requires an exact pack count.
func (t PlanTier) IsFixed() bool {
	return t.RequiredPacks != nil
}

// Required returns the exact pack count, or 0 for open tiers.
func (t PlanTier) Required() int {
	if t.RequiredPacks == nil {
		return 0
	}
	return *t.RequiredPacks
}

// Validate checks the catalog invariants of a tier.
func (t PlanTier) Validate() error {
	if !t.ID.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTier, t.ID)
	}
	if t.RequiredPacks != nil && *t.RequiredPacks <= 0 {
		return fmt.Errorf("%w: %s requires %d packs", ErrInvalidTier, t.ID, *t.RequiredPacks)
	}
	if t.DiscountRate.IsNegative() || t.DiscountRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s discount rate %s", ErrInvalidTier, t.ID, t.DiscountRate)
	}
	return nil
}

// Packs returns a pointer to n, for building fixed tiers.
func Packs(n int) *int {
	return &n
}

// StaticCatalog is an in-memory catalog.
type StaticCatalog struct {
	mu        sync.RWMutex
	varieties map[string]Variety
	order     []string
	tiers     map[TierID]PlanTier
}

// NewStaticCatalog builds a catalog, rejecting any variety or tier that
// breaks catalog invariants.
func NewStaticCatalog(varieties []Variety, tiers []PlanTier) (*StaticCatalog, error) {
	c := &StaticCatalog{
		varieties: make(map[string]Variety, len(varieties)),
		tiers:     make(map[TierID]PlanTier, len(tiers)),
	}
	for _, v := range varieties {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.varieties[v.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidVariety, v.ID)
		}
		c.varieties[v.ID] = v
		c.order = append(c.order, v.ID)
	}
	for _, t := range tiers {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		c.tiers[t.ID] = t
	}
	return c, nil
}

// Default returns the storefront's standard catalog.
func Default() *StaticCatalog {
	c, err := NewStaticCatalog(DefaultVarieties(), DefaultTiers())
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultTiers returns the standard plan tiers.
func DefaultTiers() []PlanTier {
	return []PlanTier{
		{ID: TierStarter, Name: "Starter", DiscountRate: decimal.Zero},
		{ID: TierPro, Name: "Pro", RequiredPacks: Packs(3), DiscountRate: decimal.RequireFromString("0.10")},
		{ID: TierElite, Name: "Elite", RequiredPacks: Packs(5), DiscountRate: decimal.RequireFromString("0.15")},
	}
}

// DefaultVarieties returns the standard variety lineup.
func DefaultVarieties() []Variety {
	return []Variety{
		{ID: "sunflower", Name: "Sunflower Shoots", UnitPrice: money.MustParse("12.00"), Theme: "nutty"},
		{ID: "pea", Name: "Pea Shoots", UnitPrice: money.MustParse("11.00"), Theme: "sweet"},
		{ID: "radish", Name: "Spicy Radish", UnitPrice: money.MustParse("10.00"), Theme: "spicy"},
		{ID: "broccoli", Name: "Broccoli", UnitPrice: money.MustParse("13.00"), Theme: "mild"},
		{ID: "rainbow", Name: "Rainbow Mix", UnitPrice: money.MustParse("15.00"), Theme: "mixed"},
	}
}

// GetVariety returns a variety by id.
func (c *StaticCatalog) GetVariety(_ context.Context, id string) (*Variety, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.varieties[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVarietyNotFound, id)
	}
	return &v, nil
}

// GetPlanTier returns a tier by id.
func (c *StaticCatalog) GetPlanTier(_ context.Context, id TierID) (*PlanTier, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tiers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTierNotFound, id)
	}
	return &t, nil
}

// ListVarieties returns all varieties in catalog order.
func (c *StaticCatalog) ListVarieties(_ context.Context) ([]*Variety, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*Variety, 0, len(c.order))
	for _, id := range c.order {
		v := c.varieties[id]
		result = append(result, &v)
	}
	return result, nil
}

// ListPlanTiers returns all tiers ordered by pack count, open tiers first.
func (c *StaticCatalog) ListPlanTiers(_ context.Context) ([]*PlanTier, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*PlanTier, 0, len(c.tiers))
	for _, t := range c.tiers {
		t := t
		result = append(result, &t)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Required() < result[j].Required()
	})
	return result, nil
}
