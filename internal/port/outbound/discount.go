package outbound

import (
	"context"

	"github.com/greenpack/storefront/internal/domain/cart"
	"github.com/greenpack/storefront/internal/domain/pricing"
)

// DiscountValidation is the verdict of the discount service.
// Discount is set when Valid is true, Reason otherwise.
type DiscountValidation struct {
	Valid    bool
	Discount *pricing.Discount
	Reason   string
}

// DiscountValidationPort defines the discount-code check.
type DiscountValidationPort interface {
	ValidateDiscountCode(ctx context.Context, code string, snapshot cart.Snapshot) (*DiscountValidation, error)
}
