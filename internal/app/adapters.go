package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/greenpack/storefront/internal/domain/cart"
	"github.com/greenpack/storefront/internal/port/outbound"
)

const reasonTooManyAttempts = "too many discount attempts, please try again in a few minutes"

// throttledDiscounts caps discount checks per checkout session. It is
// built per session in Checkout.Open so the limiter key is the session id.
type throttledDiscounts struct {
	next    outbound.DiscountValidationPort
	limiter outbound.AttemptLimiterPort
	key     string
	limit   int
	window  time.Duration
	logger  *zap.Logger
}

// ValidateDiscountCode rejects the code without asking the service once
// the session is over its limit. A failing limiter lets the check through.
func (t *throttledDiscounts) ValidateDiscountCode(ctx context.Context, code string, snapshot cart.Snapshot) (*outbound.DiscountValidation, error) {
	ok, err := t.limiter.Allow(ctx, t.key, t.limit, t.window)
	if err != nil {
		t.logger.Warn("discount limiter unavailable", zap.String("key", t.key), zap.Error(err))
		return t.next.ValidateDiscountCode(ctx, code, snapshot)
	}
	if !ok {
		t.logger.Info("discount attempts exhausted", zap.String("key", t.key))
		return &outbound.DiscountValidation{Reason: reasonTooManyAttempts}, nil
	}
	return t.next.ValidateDiscountCode(ctx, code, snapshot)
}

var _ outbound.DiscountValidationPort = (*throttledDiscounts)(nil)
