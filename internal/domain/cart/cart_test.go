package cart

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpack/storefront/internal/domain/catalog"
	"github.com/greenpack/storefront/internal/domain/money"
	"github.com/greenpack/storefront/internal/domain/plan"
	apperrors "github.com/greenpack/storefront/internal/utils/errors"
)

var (
	pea       = catalog.Variety{ID: "pea", Name: "Pea Shoots", UnitPrice: money.MustParse("11.00")}
	sunflower = catalog.Variety{ID: "sunflower", Name: "Sunflower Shoots", UnitPrice: money.MustParse("12.00")}
	widget    = catalog.Variety{ID: "widget", Name: "Widget", UnitPrice: money.MustParse("15.00")}

	proTier = catalog.PlanTier{
		ID:            catalog.TierPro,
		Name:          "Pro",
		RequiredPacks: catalog.Packs(3),
		DiscountRate:  decimal.RequireFromString("0.10"),
	}

	varieties = map[string]catalog.Variety{pea.ID: pea, sunflower.ID: sunflower}
)

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("line-%d", n)
	})
}

func TestCart_AddItem(t *testing.T) {
	t.Run("append policy keeps separate lines", func(t *testing.T) {
		c := New(sequentialIDs())

		first, err := c.AddItem(widget, 2)
		require.NoError(t, err)
		second, err := c.AddItem(widget, 1)
		require.NoError(t, err)

		assert.NotEqual(t, first.ID(), second.ID())
		assert.Len(t, c.Items(), 2)
		assert.Equal(t, 3, c.ItemCount())
		assert.Equal(t, "45.00", c.Subtotal().String())
	})

	t.Run("merge policy increments", func(t *testing.T) {
		c := New(WithPolicy(PolicyMerge))

		_, err := c.AddItem(widget, 2)
		require.NoError(t, err)
		merged, err := c.AddItem(widget, 3)
		require.NoError(t, err)

		assert.Len(t, c.Items(), 1)
		assert.Equal(t, 5, merged.Quantity())
		assert.Equal(t, "75.00", merged.TotalPrice().String())
	})

	t.Run("merge overflow rejected", func(t *testing.T) {
		c := New(WithPolicy(PolicyMerge))
		_, err := c.AddItem(widget, 8)
		require.NoError(t, err)

		_, err = c.AddItem(widget, 3)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		assert.Equal(t, 8, c.ItemCount())
	})

	t.Run("quantity out of range", func(t *testing.T) {
		c := New()
		_, err := c.AddItem(widget, 0)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		assert.True(t, apperrors.IsValidation(err))

		_, err = c.AddItem(widget, 11)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		assert.False(t, c.HasItems())
	})

	t.Run("non-positive price is an invariant violation", func(t *testing.T) {
		c := New()
		_, err := c.AddItem(catalog.Variety{ID: "free", UnitPrice: money.Zero}, 1)
		assert.True(t, apperrors.IsInvariantViolation(err))
	})
}

func TestCart_AddSubscriptionPlan(t *testing.T) {
	t.Run("valid plan", func(t *testing.T) {
		c := New()
		item, err := c.AddSubscriptionPlan(proTier, []plan.Selection{
			{VarietyID: "pea", Quantity: 2},
			{VarietyID: "sunflower", Quantity: 1},
		}, FrequencyWeekly, varieties)
		require.NoError(t, err)

		assert.True(t, item.IsSubscription())
		assert.Equal(t, 3, item.Quantity())
		// (2 * 11 + 12) * 0.9
		assert.Equal(t, "30.60", item.TotalPrice().String())
		require.NotNil(t, item.CompareAtPrice())
		assert.Equal(t, "34.00", item.CompareAtPrice().String())
		assert.Equal(t, "3.40", item.PromotionalSavings().String())
		assert.Equal(t, FrequencyWeekly, item.Subscription().Frequency)
	})

	t.Run("invalid plan rejected", func(t *testing.T) {
		c := New()
		_, err := c.AddSubscriptionPlan(proTier, []plan.Selection{{VarietyID: "pea", Quantity: 2}}, FrequencyWeekly, varieties)
		assert.ErrorIs(t, err, plan.ErrInvalidConfiguration)
		assert.True(t, apperrors.IsConfiguration(err))
		assert.False(t, c.HasItems())
	})

	t.Run("unknown variety", func(t *testing.T) {
		c := New()
		_, err := c.AddSubscriptionPlan(proTier, []plan.Selection{{VarietyID: "kale", Quantity: 3}}, FrequencyMonthly, varieties)
		assert.ErrorIs(t, err, ErrUnknownVariety)
	})

	t.Run("bad frequency", func(t *testing.T) {
		c := New()
		_, err := c.AddSubscriptionPlan(proTier, []plan.Selection{{VarietyID: "pea", Quantity: 3}}, "daily", varieties)
		assert.ErrorIs(t, err, ErrInvalidFrequency)
	})
}

func TestCart_UpdateQuantity(t *testing.T) {
	c := New()
	item, err := c.AddItem(widget, 1)
	require.NoError(t, err)

	assert.True(t, c.UpdateQuantity(item.ID(), 4))
	got, _ := c.Item(item.ID())
	assert.Equal(t, "60.00", got.TotalPrice().String())

	t.Run("out of range ignored", func(t *testing.T) {
		assert.False(t, c.UpdateQuantity(item.ID(), 0))
		assert.False(t, c.UpdateQuantity(item.ID(), 11))
		got, _ := c.Item(item.ID())
		assert.Equal(t, 4, got.Quantity())
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.False(t, c.UpdateQuantity("missing", 2))
	})

	t.Run("subscription line is a no-op", func(t *testing.T) {
		sub, err := c.AddSubscriptionPlan(proTier, []plan.Selection{{VarietyID: "pea", Quantity: 3}}, FrequencyBiweekly, varieties)
		require.NoError(t, err)
		before := c.Snapshot()

		assert.False(t, c.UpdateQuantity(sub.ID(), 5))
		assert.Equal(t, before, c.Snapshot())
	})
}

func TestCart_RemoveAndClear(t *testing.T) {
	c := New()
	item, _ := c.AddItem(widget, 1)
	_, _ = c.AddItem(pea, 2)

	assert.True(t, c.RemoveItem(item.ID()))
	after := c.Snapshot()
	assert.False(t, c.RemoveItem(item.ID()))
	assert.Equal(t, after, c.Snapshot())

	c.Clear()
	assert.False(t, c.HasItems())
	assert.Equal(t, 0, c.ItemCount())
	assert.True(t, c.Subtotal().IsZero())
}

func TestCart_TotalsNeverDrift(t *testing.T) {
	c := New()
	item, _ := c.AddItem(widget, 1)
	for q := 1; q <= 10; q++ {
		c.UpdateQuantity(item.ID(), q)
		got, _ := c.Item(item.ID())
		assert.True(t, got.TotalPrice().Equal(got.UnitPrice().Mul(got.Quantity())))
	}
}

func TestCart_SnapshotRestore(t *testing.T) {
	c := New(sequentialIDs())
	_, err := c.AddItem(widget, 2)
	require.NoError(t, err)
	_, err = c.AddSubscriptionPlan(proTier, []plan.Selection{{VarietyID: "pea", Quantity: 2}, {VarietyID: "sunflower", Quantity: 1}}, FrequencyWeekly, varieties)
	require.NoError(t, err)

	data, err := json.Marshal(c.Snapshot())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))

	restored := New()
	require.NoError(t, restored.Restore(snap))
	assert.Equal(t, c.Snapshot(), restored.Snapshot())
	assert.Equal(t, "60.60", restored.Subtotal().String())

	t.Run("corrupt snapshot leaves cart untouched", func(t *testing.T) {
		bad := snap
		bad.Items = append([]ItemSnapshot(nil), snap.Items...)
		bad.Items[1].Quantity = 7

		err := restored.Restore(bad)
		assert.ErrorIs(t, err, ErrInvalidSnapshot)
		assert.Equal(t, "60.60", restored.Subtotal().String())
	})
}

func TestCart_Reprice(t *testing.T) {
	newCart := func(t *testing.T) (*Cart, LineItem, LineItem, LineItem) {
		t.Helper()
		c := New(sequentialIDs())
		peaLine, err := c.AddItem(pea, 2)
		require.NoError(t, err)
		boxLine, err := c.AddSubscriptionPlan(proTier, []plan.Selection{{VarietyID: "pea", Quantity: 2}, {VarietyID: "sunflower", Quantity: 1}}, FrequencyWeekly, varieties)
		require.NoError(t, err)
		widgetLine, err := c.AddItem(widget, 1)
		require.NoError(t, err)
		return c, peaLine, boxLine, widgetLine
	}
	raised := catalog.Variety{ID: "pea", Name: "Pea Shoots", UnitPrice: money.MustParse("13.00")}
	current := map[string]catalog.Variety{raised.ID: raised, sunflower.ID: sunflower}
	tiers := map[catalog.TierID]catalog.PlanTier{proTier.ID: proTier}

	t.Run("lines follow current prices", func(t *testing.T) {
		c, peaLine, boxLine, widgetLine := newCart(t)

		dropped := c.Reprice(current, tiers)
		assert.Equal(t, []string{widgetLine.ID()}, dropped)

		got, ok := c.Item(peaLine.ID())
		require.True(t, ok)
		assert.Equal(t, "13.00", got.UnitPrice().String())

		box, ok := c.Item(boxLine.ID())
		require.True(t, ok)
		// (2 x 13.00 + 12.00) less 10%
		assert.Equal(t, "34.20", box.UnitPrice().String())
		assert.Equal(t, "38.00", box.CompareAtPrice().String())
		assert.Equal(t, FrequencyWeekly, box.Subscription().Frequency)
		assert.Equal(t, "60.20", c.Subtotal().String())
	})

	t.Run("box dropped when its tier is gone", func(t *testing.T) {
		c, _, boxLine, _ := newCart(t)
		dropped := c.Reprice(current, nil)
		assert.Contains(t, dropped, boxLine.ID())
		_, ok := c.Item(boxLine.ID())
		assert.False(t, ok)
	})

	t.Run("box dropped when it no longer fits its tier", func(t *testing.T) {
		c, peaLine, boxLine, _ := newCart(t)
		bigger := proTier
		bigger.RequiredPacks = catalog.Packs(4)

		dropped := c.Reprice(current, map[catalog.TierID]catalog.PlanTier{bigger.ID: bigger})
		assert.Contains(t, dropped, boxLine.ID())
		_, ok := c.Item(peaLine.ID())
		assert.True(t, ok)
	})
}
