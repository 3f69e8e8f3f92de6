package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"

	"github.com/greenpack/storefront/internal/infra/config"
	"github.com/greenpack/storefront/internal/model"
	"github.com/greenpack/storefront/internal/port/outbound"
)

// StripeProvider charges tokenised cards with a confirmed PaymentIntent.
type StripeProvider struct {
	intents *paymentintent.Client
	logger  *zap.Logger
}

// NewStripeProvider creates a Stripe provider. A nil backend talks to the
// live Stripe API.
func NewStripeProvider(cfg config.StripeConfig, backend stripe.Backend, logger *zap.Logger) *StripeProvider {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeProvider{
		intents: &paymentintent.Client{B: backend, Key: cfg.SecretKey},
		logger:  logger.Named("stripe"),
	}
}

// Method returns the payment method this provider handles.
func (p *StripeProvider) Method() model.PaymentMethod {
	return model.PaymentMethodCreditCard
}

// Charge creates and confirms a PaymentIntent for the order total. The
// order reference doubles as the idempotency key.
func (p *StripeProvider) Charge(ctx context.Context, sub *outbound.OrderSubmission) (*outbound.PlacementResult, error) {
	card := sub.Payment.Card
	if card == nil || card.Token == "" {
		return nil, fmt.Errorf("%w: missing card token", ErrInvalidSubmission)
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(sub.Pricing.Total.Cents()),
		Currency:      stripe.String(strings.ToLower(sub.Currency)),
		PaymentMethod: stripe.String(card.Token),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(fmt.Sprintf("Order %s", sub.Reference)),
		ReceiptEmail:  stripe.String(sub.Customer.Email),
		Shipping: &stripe.ShippingDetailsParams{
			Name: stripe.String(sub.Customer.FullName()),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(sub.Shipping.Address.Line1),
				Line2:      stripe.String(sub.Shipping.Address.Line2),
				City:       stripe.String(sub.Shipping.Address.City),
				State:      stripe.String(sub.Shipping.Address.State),
				PostalCode: stripe.String(sub.Shipping.Address.PostalCode),
				Country:    stripe.String(sub.Shipping.Address.Country),
			},
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(sub.Reference)
	params.AddMetadata("order_reference", sub.Reference)
	if sub.Discount != nil {
		params.AddMetadata("discount_code", sub.Discount.Code)
	}

	pi, err := p.intents.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
			p.logger.Info("card declined", zap.String("reference", sub.Reference), zap.String("code", string(se.Code)))
			return nil, fmt.Errorf("%w: %s", ErrPaymentDeclined, se.Msg)
		}
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		return &outbound.PlacementResult{
			OrderID:          sub.Reference,
			Status:           outbound.PlacementConfirmed,
			PaymentReference: pi.ID,
		}, nil
	case stripe.PaymentIntentStatusRequiresAction:
		if pi.NextAction != nil && pi.NextAction.RedirectToURL != nil {
			return &outbound.PlacementResult{
				OrderID:          sub.Reference,
				Status:           outbound.PlacementRedirect,
				PaymentReference: pi.ID,
				RedirectURL:      pi.NextAction.RedirectToURL.URL,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: payment intent %s is %s", ErrPaymentDeclined, pi.ID, pi.Status)
}

var _ outbound.PaymentProviderPort = (*StripeProvider)(nil)
