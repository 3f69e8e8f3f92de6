package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/greenpack/storefront/internal/adapter/outbound/postgres"
	"github.com/greenpack/storefront/internal/domain/cart"
	"github.com/greenpack/storefront/internal/domain/catalog"
	"github.com/greenpack/storefront/internal/domain/checkout"
	"github.com/greenpack/storefront/internal/infra/config"
	"github.com/greenpack/storefront/internal/port/outbound"
	apperrors "github.com/greenpack/storefront/internal/utils/errors"
	"github.com/greenpack/storefront/internal/utils/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		Log: config.LogConfig{Level: "error", Format: "json"},
		Checkout: config.CheckoutConfig{
			Currency:    "usd",
			TaxRate:     "0.08",
			MinQuantity: 1,
			MaxQuantity: 10,
			AddPolicy:   "append",
			CartTTL:     time.Hour,

			DiscountAttempts: 2,
			DiscountWindow:   time.Minute,
		},
		ShippingRates: config.ServiceConfig{BaseURL: "http://rates.test", Timeout: time.Second},
		Discounts:     config.ServiceConfig{BaseURL: "http://discounts.test", Timeout: time.Second},
		Stripe:        config.StripeConfig{SecretKey: "sk_test_123"},
	}
}

// rejectingDiscounts turns every code down and counts the calls.
type rejectingDiscounts struct {
	calls atomic.Int32
}

func (r *rejectingDiscounts) ValidateDiscountCode(context.Context, string, cart.Snapshot) (*outbound.DiscountValidation, error) {
	r.calls.Add(1)
	return &outbound.DiscountValidation{Reason: "code not found"}, nil
}

func newTestCheckout(t *testing.T, discounts ...outbound.DiscountValidationPort) (*Checkout, *miniredis.Miniredis, *metrics.Metrics) {
	t.Helper()
	cfg := testConfig()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	m := metrics.New("test", prometheus.NewRegistry())
	settings, err := ProvideSettings(cfg)
	require.NoError(t, err)

	deps := checkout.Deps{Catalog: catalog.Default(), Recorder: m, Logger: zap.NewNop()}
	if len(discounts) > 0 {
		deps.Discounts = discounts[0]
	}
	c, err := NewCheckout(cfg, deps, settings, ProvideCartStore(cfg, client), ProvideAttemptLimiter(client), m)
	require.NoError(t, err)
	return c, mr, m
}

func TestCheckout_OpenSave(t *testing.T) {
	ctx := context.Background()

	t.Run("cart survives between sessions", func(t *testing.T) {
		c, mr, m := newTestCheckout(t)
		id := c.NewSessionID()

		s, err := c.Open(ctx, id)
		require.NoError(t, err)
		_, err = s.AddItem(ctx, "rainbow", 2)
		require.NoError(t, err)
		require.NoError(t, c.Save(ctx, s))
		assert.True(t, mr.Exists("cart:"+id))

		again, err := c.Open(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, again.CartSnapshot().ItemCount)
		assert.Equal(t, "30.00", again.CartSnapshot().Subtotal.String())

		assert.Equal(t, float64(1), testutil.ToFloat64(m.CartLoadsTotal.WithLabelValues("miss")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.CartLoadsTotal.WithLabelValues("hit")))
	})

	t.Run("empty cart removes the stored one", func(t *testing.T) {
		c, mr, _ := newTestCheckout(t)
		s, err := c.Open(ctx, "sess-empty")
		require.NoError(t, err)
		_, err = s.AddItem(ctx, "pea", 1)
		require.NoError(t, err)
		require.NoError(t, c.Save(ctx, s))

		s.ClearCart()
		require.NoError(t, c.Save(ctx, s))
		assert.False(t, mr.Exists("cart:sess-empty"))
	})

	t.Run("corrupt cart is discarded", func(t *testing.T) {
		c, mr, m := newTestCheckout(t)
		require.NoError(t, mr.Set("cart:sess-bad", `{"items":[{"id":"x","kind":"individual","quantity":99,"unit_price":"5.00"}]}`))

		s, err := c.Open(ctx, "sess-bad")
		require.NoError(t, err)
		assert.Zero(t, s.CartSnapshot().ItemCount)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.CartLoadsTotal.WithLabelValues("error")))
	})

	t.Run("restored cart follows the current catalog", func(t *testing.T) {
		c, mr, m := newTestCheckout(t)
		require.NoError(t, mr.Set("cart:sess-stale", `{"items":[
			{"id":"a","kind":"individual","product_id":"rainbow","quantity":2,"unit_price":"1.00"},
			{"id":"b","kind":"individual","product_id":"retired","quantity":1,"unit_price":"9.00"},
			{"id":"c","kind":"subscription","product_id":"pro","quantity":2,"unit_price":"20.00",
			 "tier_id":"pro","selections":[{"variety_id":"rainbow","quantity":2}],"frequency":"monthly"}
		]}`))

		s, err := c.Open(ctx, "sess-stale")
		require.NoError(t, err)
		snapshot := s.CartSnapshot()
		require.Len(t, snapshot.Items, 1)
		assert.Equal(t, "a", snapshot.Items[0].ID)
		assert.Equal(t, "15.00", snapshot.Items[0].UnitPrice.String())
		assert.Equal(t, "30.00", snapshot.Subtotal.String())
		assert.Equal(t, "30.00", s.Pricing().Subtotal.String())
		assert.Equal(t, float64(1), testutil.ToFloat64(m.CartLoadsTotal.WithLabelValues("hit")))
	})

	t.Run("requires a session id", func(t *testing.T) {
		c, _, _ := newTestCheckout(t)
		_, err := c.Open(ctx, "")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("without a store carts are not persisted", func(t *testing.T) {
		cfg := testConfig()
		c, err := NewCheckout(cfg, checkout.Deps{Catalog: catalog.Default()}, checkout.Settings{}, nil, nil, nil)
		require.NoError(t, err)

		s, err := c.Open(ctx, "sess-mem")
		require.NoError(t, err)
		_, err = s.AddItem(ctx, "pea", 1)
		require.NoError(t, err)
		assert.NoError(t, c.Save(ctx, s))
	})
}

func TestCheckout_DiscountThrottle(t *testing.T) {
	ctx := context.Background()
	discounts := &rejectingDiscounts{}
	c, mr, _ := newTestCheckout(t, discounts)

	s, err := c.Open(ctx, "sess-codes")
	require.NoError(t, err)
	_, err = s.AddItem(ctx, "pea", 1)
	require.NoError(t, err)

	for _, code := range []string{"GUESS1", "GUESS2"} {
		res, err := s.ApplyDiscount(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, "code not found", res.Reason)
	}

	res, err := s.ApplyDiscount(ctx, "GUESS3")
	require.NoError(t, err)
	assert.Equal(t, reasonTooManyAttempts, res.Reason)
	assert.Equal(t, int32(2), discounts.calls.Load())

	// A new session has its own budget.
	other, err := c.Open(ctx, "sess-other")
	require.NoError(t, err)
	_, err = other.AddItem(ctx, "pea", 1)
	require.NoError(t, err)
	res, err = other.ApplyDiscount(ctx, "GUESS4")
	require.NoError(t, err)
	assert.Equal(t, "code not found", res.Reason)

	// Redis outages let checks through.
	mr.Close()
	res, err = s.ApplyDiscount(ctx, "GUESS5")
	require.NoError(t, err)
	assert.Equal(t, "code not found", res.Reason)
}

func TestProvideCatalog(t *testing.T) {
	ctx := context.Background()

	t.Run("built-in catalog without a database", func(t *testing.T) {
		cat, err := ProvideCatalog(nil, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &catalog.StaticCatalog{}, cat)
	})

	t.Run("seeds an empty database once", func(t *testing.T) {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		require.NoError(t, err)
		sqlDB, err := db.DB()
		require.NoError(t, err)
		sqlDB.SetMaxOpenConns(1)

		cat, err := ProvideCatalog(db, zap.NewNop())
		require.NoError(t, err)
		varieties, err := cat.ListVarieties(ctx)
		require.NoError(t, err)
		assert.Len(t, varieties, len(catalog.DefaultVarieties()))

		require.NoError(t, db.Model(&postgres.VarietyRecord{}).Where("id = ?", "pea").Update("name", "Snow Pea").Error)
		cat, err = ProvideCatalog(db, zap.NewNop())
		require.NoError(t, err)
		pea, err := cat.GetVariety(ctx, "pea")
		require.NoError(t, err)
		assert.Equal(t, "Snow Pea", pea.Name)
	})
}

func TestProviders(t *testing.T) {
	t.Run("settings", func(t *testing.T) {
		settings, err := ProvideSettings(testConfig())
		require.NoError(t, err)
		assert.Equal(t, "0.08", settings.Tax.Rate.String())
		assert.Equal(t, "usd", settings.Currency)
	})

	t.Run("placement needs a provider", func(t *testing.T) {
		cfg := testConfig()
		cfg.Stripe.SecretKey = ""
		_, err := ProvidePlacement(cfg, zap.NewNop())
		assert.ErrorIs(t, err, ErrNoPaymentProvider)
	})

	t.Run("no database configured", func(t *testing.T) {
		db, cleanup, err := ProvideDatabase(testConfig())
		require.NoError(t, err)
		assert.Nil(t, db)
		cleanup()
	})

	t.Run("no redis configured", func(t *testing.T) {
		client, cleanup := ProvideRedisClient(testConfig(), zap.NewNop())
		assert.Nil(t, client)
		cleanup()
		assert.Nil(t, ProvideCartStore(testConfig(), nil))
	})
}

func TestNew(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)
	t.Cleanup(a.Stop)

	s, err := a.Checkout.Open(context.Background(), a.Checkout.NewSessionID())
	require.NoError(t, err)
	assert.Equal(t, checkout.StepCustomer, s.Step())
}
