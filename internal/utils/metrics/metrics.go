package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/greenpack/storefront/internal/domain/checkout"
	"github.com/greenpack/storefront/internal/domain/money"
)

// Metrics holds all checkout metrics.
type Metrics struct {
	// Pricing metrics
	PricingRecomputesTotal prometheus.Counter

	// Collaborator metrics
	DiscountRequestsTotal *prometheus.CounterVec
	ShippingLookupsTotal  *prometheus.CounterVec

	// Order metrics
	OrdersTotal *prometheus.CounterVec
	OrderValue  *prometheus.HistogramVec

	// Cart store metrics
	CartLoadsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance registered with reg. A nil reg uses
// the default registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "greenpack"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PricingRecomputesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "pricing_recomputes_total",
				Help:      "Total number of order pricing recomputations",
			},
		),
		DiscountRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "discount_requests_total",
				Help:      "Total number of discount validations by outcome",
			},
			[]string{"outcome"}, // applied, rejected, error, stale
		),
		ShippingLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "shipping_lookups_total",
				Help:      "Total number of shipping rate lookups by outcome",
			},
			[]string{"outcome"}, // succeeded, error, stale
		),
		OrdersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "orders_total",
				Help:      "Total number of order placements",
			},
			[]string{"method", "outcome"},
		),
		OrderValue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "checkout",
				Name:      "order_value_dollars",
				Help:      "Total of placed orders in dollars",
				Buckets:   []float64{10, 20, 30, 40, 50, 75, 100, 150, 250},
			},
			[]string{"method"},
		),
		CartLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cart",
				Name:      "loads_total",
				Help:      "Total number of cart loads by result",
			},
			[]string{"result"}, // hit, miss, error
		),
	}
}

// --- checkout.Recorder ---

// PricingRecomputed counts a pricing recomputation.
func (m *Metrics) PricingRecomputed() {
	m.PricingRecomputesTotal.Inc()
}

// DiscountRequest counts a discount validation outcome.
func (m *Metrics) DiscountRequest(outcome string) {
	m.DiscountRequestsTotal.WithLabelValues(outcome).Inc()
}

// ShippingLookup counts a shipping rate lookup outcome.
func (m *Metrics) ShippingLookup(outcome string) {
	m.ShippingLookupsTotal.WithLabelValues(outcome).Inc()
}

// OrderPlacement counts a placement attempt. Only placed orders are
// observed in the value histogram.
func (m *Metrics) OrderPlacement(method, outcome string, total money.Money) {
	m.OrdersTotal.WithLabelValues(method, outcome).Inc()
	if outcome == "placed" {
		m.OrderValue.WithLabelValues(method).Observe(total.Decimal().InexactFloat64())
	}
}

// RecordCartLoad records the result of loading a stored cart.
func (m *Metrics) RecordCartLoad(result string) {
	m.CartLoadsTotal.WithLabelValues(result).Inc()
}

var _ checkout.Recorder = (*Metrics)(nil)
