package outbound

import (
	"context"

	"github.com/greenpack/storefront/internal/domain/cart"
	"github.com/greenpack/storefront/internal/domain/pricing"
	"github.com/greenpack/storefront/internal/model"
)

// PlacementStatus is the state of a submitted order.
type PlacementStatus string

const (
	// PlacementConfirmed means payment was captured or authorised.
	PlacementConfirmed PlacementStatus = "confirmed"
	// PlacementRedirect means the customer must approve payment at RedirectURL.
	PlacementRedirect PlacementStatus = "redirect"
)

// OrderSubmission is everything the placement collaborator receives.
type OrderSubmission struct {
	Reference string
	Customer  model.CustomerInfo
	Shipping  model.ShippingInfo
	Billing   model.BillingInfo
	Payment   model.PaymentInfo
	Cart      cart.Snapshot
	Delivery  *pricing.ShippingOption
	Discount  *pricing.Discount
	Pricing   pricing.OrderPricing
	Currency  string
}

// PlacementResult is the outcome of a successful submission.
type PlacementResult struct {
	OrderID          string
	Status           PlacementStatus
	PaymentReference string
	RedirectURL      string
}

// OrderPlacementPort submits a finished checkout.
type OrderPlacementPort interface {
	SubmitOrder(ctx context.Context, submission *OrderSubmission) (*PlacementResult, error)
}

// PaymentProviderPort captures payment for one payment method.
type PaymentProviderPort interface {
	Method() model.PaymentMethod
	Charge(ctx context.Context, submission *OrderSubmission) (*PlacementResult, error)
}
