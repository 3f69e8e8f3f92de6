package payment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/greenpack/storefront/internal/model"
	"github.com/greenpack/storefront/internal/port/outbound"
)

// Placement implements outbound.OrderPlacementPort by charging the
// provider registered for the submission's payment method.
type Placement struct {
	providers map[model.PaymentMethod]outbound.PaymentProviderPort
	logger    *zap.Logger
}

// NewPlacement creates an order placement over the given providers. A
// later provider for the same method replaces an earlier one.
func NewPlacement(logger *zap.Logger, providers ...outbound.PaymentProviderPort) *Placement {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Placement{
		providers: make(map[model.PaymentMethod]outbound.PaymentProviderPort, len(providers)),
		logger:    logger.Named("placement"),
	}
	for _, provider := range providers {
		if provider != nil {
			p.providers[provider.Method()] = provider
		}
	}
	return p
}

// Supports reports whether a provider is registered for method.
func (p *Placement) Supports(method model.PaymentMethod) bool {
	_, ok := p.providers[method]
	return ok
}

// SubmitOrder charges the order. It makes exactly one provider call.
func (p *Placement) SubmitOrder(ctx context.Context, sub *outbound.OrderSubmission) (*outbound.PlacementResult, error) {
	if sub == nil {
		return nil, fmt.Errorf("%w: nil submission", ErrInvalidSubmission)
	}
	if !sub.Pricing.Total.IsPositive() {
		return nil, fmt.Errorf("%w: total %s", ErrInvalidSubmission, sub.Pricing.Total)
	}
	if len(sub.Cart.Items) == 0 {
		return nil, fmt.Errorf("%w: empty cart", ErrInvalidSubmission)
	}

	provider, ok := p.providers[sub.Payment.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, sub.Payment.Method)
	}

	start := time.Now()
	result, err := provider.Charge(ctx, sub)
	fields := []zap.Field{
		zap.String("reference", sub.Reference),
		zap.String("method", sub.Payment.Method.String()),
		zap.String("total", sub.Pricing.Total.String()),
		zap.Duration("took", time.Since(start)),
	}
	if err != nil {
		p.logger.Warn("payment failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	p.logger.Info("payment submitted", append(fields, zap.String("status", string(result.Status)))...)
	return result, nil
}

var _ outbound.OrderPlacementPort = (*Placement)(nil)
