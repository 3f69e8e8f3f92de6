package checkout

import "github.com/greenpack/storefront/internal/domain/money"

// Recorder receives checkout telemetry.
type Recorder interface {
	PricingRecomputed()
	DiscountRequest(outcome string)
	ShippingLookup(outcome string)
	OrderPlacement(method, outcome string, total money.Money)
}

type nopRecorder struct{}

func (nopRecorder) PricingRecomputed()                         {}
func (nopRecorder) DiscountRequest(string)                     {}
func (nopRecorder) ShippingLookup(string)                      {}
func (nopRecorder) OrderPlacement(string, string, money.Money) {}
