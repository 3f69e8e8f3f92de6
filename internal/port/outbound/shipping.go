package outbound

import (
	"context"

	"github.com/greenpack/storefront/internal/domain/pricing"
)

// ShippingRatePort defines the shipping-rate lookup.
type ShippingRatePort interface {
	// GetShippingOptions returns the delivery options for a postal code.
	// An empty list means no option is available.
	GetShippingOptions(ctx context.Context, postalCode string) ([]pricing.ShippingOption, error)
}
