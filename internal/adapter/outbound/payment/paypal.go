package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-pay/gopay"
	"github.com/go-pay/gopay/paypal"
	"go.uber.org/zap"

	"github.com/greenpack/storefront/internal/infra/config"
	"github.com/greenpack/storefront/internal/model"
	"github.com/greenpack/storefront/internal/port/outbound"
)

// OrderCreator creates PayPal orders. *paypal.Client implements it.
type OrderCreator interface {
	CreateOrder(ctx context.Context, bm gopay.BodyMap) (*paypal.CreateOrderRsp, error)
}

// NewPayPalClient creates a PayPal API client.
func NewPayPalClient(cfg config.PayPalConfig) (*paypal.Client, error) {
	client, err := paypal.NewClient(cfg.ClientID, cfg.Secret, cfg.IsProd)
	if err != nil {
		return nil, fmt.Errorf("create paypal client: %w", err)
	}
	return client, nil
}

// PayPalProvider creates a PayPal order and hands back the approval link.
// Capture happens after the customer approves, outside checkout.
type PayPalProvider struct {
	api       OrderCreator
	returnURL string
	cancelURL string
	logger    *zap.Logger
}

// NewPayPalProvider creates a PayPal provider.
func NewPayPalProvider(api OrderCreator, cfg config.PayPalConfig, logger *zap.Logger) *PayPalProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayPalProvider{
		api:       api,
		returnURL: cfg.ReturnURL,
		cancelURL: cfg.CancelURL,
		logger:    logger.Named("paypal"),
	}
}

// Method returns the payment method this provider handles.
func (p *PayPalProvider) Method() model.PaymentMethod {
	return model.PaymentMethodPayPal
}

// Charge creates a CAPTURE-intent order for the order total.
func (p *PayPalProvider) Charge(ctx context.Context, sub *outbound.OrderSubmission) (*outbound.PlacementResult, error) {
	currency := strings.ToUpper(sub.Currency)
	amount := map[string]any{
		"currency_code": currency,
		"value":         sub.Pricing.Total.String(),
		"breakdown": map[string]any{
			"item_total": map[string]string{"currency_code": currency, "value": sub.Pricing.Subtotal.String()},
			"shipping":   map[string]string{"currency_code": currency, "value": sub.Pricing.ShippingCost.String()},
			"tax_total":  map[string]string{"currency_code": currency, "value": sub.Pricing.Tax.Amount.String()},
			"discount":   map[string]string{"currency_code": currency, "value": sub.Pricing.DiscountAmount.String()},
		},
	}

	bm := make(gopay.BodyMap)
	bm.Set("intent", "CAPTURE").
		Set("purchase_units", []map[string]any{{
			"reference_id": sub.Reference,
			"amount":       amount,
		}}).
		SetBodyMap("application_context", func(b gopay.BodyMap) {
			b.Set("brand_name", "GreenPack").
				Set("shipping_preference", "SET_PROVIDED_ADDRESS").
				Set("user_action", "PAY_NOW").
				Set("return_url", p.returnURL).
				Set("cancel_url", p.cancelURL)
		})
	if sub.Payment.PayPal != nil && sub.Payment.PayPal.Email != "" {
		bm.SetBodyMap("payer", func(b gopay.BodyMap) {
			b.Set("email_address", sub.Payment.PayPal.Email)
		})
	}

	rsp, err := p.api.CreateOrder(ctx, bm)
	if err != nil {
		return nil, fmt.Errorf("create paypal order: %w", err)
	}
	if rsp.Code != paypal.Success || rsp.Response == nil {
		p.logger.Warn("paypal order rejected", zap.String("reference", sub.Reference), zap.Int("code", rsp.Code), zap.String("error", rsp.Error))
		return nil, fmt.Errorf("%w: paypal returned %d", ErrPaymentDeclined, rsp.Code)
	}

	for _, link := range rsp.Response.Links {
		if link != nil && link.Rel == "approve" {
			return &outbound.PlacementResult{
				OrderID:          sub.Reference,
				Status:           outbound.PlacementRedirect,
				PaymentReference: rsp.Response.Id,
				RedirectURL:      link.Href,
			}, nil
		}
	}
	return nil, fmt.Errorf("paypal order %s has no approval link", rsp.Response.Id)
}

var _ outbound.PaymentProviderPort = (*PayPalProvider)(nil)
