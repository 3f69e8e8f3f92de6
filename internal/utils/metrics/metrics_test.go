package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpack/storefront/internal/domain/money"
)

// createTestMetrics creates metrics with a custom registry for testing.
func createTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New("test", reg), reg
}

func TestNew(t *testing.T) {
	t.Run("registers every collector", func(t *testing.T) {
		m, reg := createTestMetrics(t)
		m.PricingRecomputed()
		m.DiscountRequest("applied")
		m.ShippingLookup("succeeded")
		m.OrderPlacement("paypal", "placed", money.MustParse("20.00"))
		m.RecordCartLoad("hit")

		families, err := reg.Gather()
		require.NoError(t, err)
		assert.Len(t, families, 6)
	})

	t.Run("duplicate registration panics", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		New("dup", reg)
		assert.Panics(t, func() { New("dup", reg) })
	})
}

func TestMetrics_Recorder(t *testing.T) {
	m, _ := createTestMetrics(t)

	t.Run("counts recomputes", func(t *testing.T) {
		m.PricingRecomputed()
		m.PricingRecomputed()
		assert.Equal(t, float64(2), testutil.ToFloat64(m.PricingRecomputesTotal))
	})

	t.Run("counts collaborator outcomes", func(t *testing.T) {
		m.DiscountRequest("applied")
		m.DiscountRequest("stale")
		m.DiscountRequest("stale")
		m.ShippingLookup("error")

		assert.Equal(t, float64(1), testutil.ToFloat64(m.DiscountRequestsTotal.WithLabelValues("applied")))
		assert.Equal(t, float64(2), testutil.ToFloat64(m.DiscountRequestsTotal.WithLabelValues("stale")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.ShippingLookupsTotal.WithLabelValues("error")))
	})

	t.Run("observes only placed orders", func(t *testing.T) {
		m.OrderPlacement("credit_card", "placed", money.MustParse("37.40"))
		m.OrderPlacement("credit_card", "failed", money.MustParse("99.00"))

		assert.Equal(t, float64(1), testutil.ToFloat64(m.OrdersTotal.WithLabelValues("credit_card", "placed")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.OrdersTotal.WithLabelValues("credit_card", "failed")))
		assert.Equal(t, 1, testutil.CollectAndCount(m.OrderValue))

		expected := `
# HELP test_checkout_order_value_dollars Total of placed orders in dollars
# TYPE test_checkout_order_value_dollars histogram
test_checkout_order_value_dollars_bucket{method="credit_card",le="10"} 0
test_checkout_order_value_dollars_bucket{method="credit_card",le="20"} 0
test_checkout_order_value_dollars_bucket{method="credit_card",le="30"} 0
test_checkout_order_value_dollars_bucket{method="credit_card",le="40"} 1
test_checkout_order_value_dollars_bucket{method="credit_card",le="50"} 1
test_checkout_order_value_dollars_bucket{method="credit_card",le="75"} 1
test_checkout_order_value_dollars_bucket{method="credit_card",le="100"} 1
test_checkout_order_value_dollars_bucket{method="credit_card",le="150"} 1
test_checkout_order_value_dollars_bucket{method="credit_card",le="250"} 1
test_checkout_order_value_dollars_bucket{method="credit_card",le="+Inf"} 1
test_checkout_order_value_dollars_sum{method="credit_card"} 37.4
test_checkout_order_value_dollars_count{method="credit_card"} 1
`
		err := testutil.CollectAndCompare(m.OrderValue, strings.NewReader(expected))
		assert.NoError(t, err)
	})
}

func TestMetrics_RecordCartLoad(t *testing.T) {
	m, _ := createTestMetrics(t)

	m.RecordCartLoad("hit")
	m.RecordCartLoad("miss")
	m.RecordCartLoad("miss")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CartLoadsTotal.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CartLoadsTotal.WithLabelValues("miss")))
}
