package discount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/greenpack/storefront/internal/domain/cart"
	"github.com/greenpack/storefront/internal/domain/pricing"
	"github.com/greenpack/storefront/internal/port/outbound"
	apperrors "github.com/greenpack/storefront/internal/utils/errors"
)

// User-facing failure reasons.
const (
	ReasonEmptyCode   = "enter a discount code"
	ReasonInvalidCode = "invalid discount code"
	ReasonUnavailable = "could not check the discount code, please try again"
)

// Ticket identifies one apply request. Only the most recent ticket may
// change the applied discount.
type Ticket struct {
	seq uint64
}

// Outcome is the result of validating a code. Exactly one of Discount and
// Reason is set. Err carries the underlying service failure, if any.
type Outcome struct {
	Code     string
	Discount *pricing.Discount
	Reason   string
	Err      error
}

// Succeeded reports whether the code was accepted.
func (o Outcome) Succeeded() bool {
	return o.Discount != nil
}

// Client talks to the discount service and sequences apply requests so
// that a late response never overrides a newer action.
type Client struct {
	validator outbound.DiscountValidationPort
	logger    *zap.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewClient creates a discount client.
func NewClient(validator outbound.DiscountValidationPort, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		validator: validator,
		logger:    logger.Named("discount"),
	}
}

// Begin opens a request that supersedes every earlier one. The returned
// context is cancelled as soon as a newer request begins or Invalidate is
// called.
func (c *Client) Begin(ctx context.Context) (Ticket, context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	if c.cancel != nil {
		c.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	return Ticket{seq: c.seq}, reqCtx
}

// IsCurrent reports whether no newer request or invalidation happened
// since the ticket was issued.
func (c *Client) IsCurrent(t Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return t.seq == c.seq
}

// Finish releases the resources of a request once its outcome is handled.
func (c *Client) Finish(t Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.seq == c.seq && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Invalidate makes every outstanding ticket stale.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// NormalizeCode trims and upper-cases a discount code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks a code against the discount service. It never returns an
// error; every failure is reported in the Outcome.
func (c *Client) Validate(ctx context.Context, code string, snapshot cart.Snapshot) Outcome {
	code = NormalizeCode(code)
	if code == "" {
		return Outcome{Reason: ReasonEmptyCode}
	}

	res, err := c.validator.ValidateDiscountCode(ctx, code, snapshot)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.logger.Debug("discount check cancelled", zap.String("code", code))
		} else {
			c.logger.Warn("discount check failed", zap.String("code", code), zap.Error(err))
		}
		return Outcome{Code: code, Reason: ReasonUnavailable, Err: apperrors.Service("discount service", err)}
	}
	if res == nil || !res.Valid {
		reason := ReasonInvalidCode
		if res != nil && res.Reason != "" {
			reason = res.Reason
		}
		return Outcome{Code: code, Reason: reason}
	}
	if res.Discount == nil {
		return Outcome{Code: code, Reason: ReasonInvalidCode, Err: fmt.Errorf("%w: accepted code without descriptor", ErrMalformedResponse)}
	}

	d := *res.Discount
	if d.Code == "" {
		d.Code = code
	}
	if err := d.Validate(); err != nil {
		c.logger.Error("discount service returned bad descriptor", zap.String("code", code), zap.Error(err))
		return Outcome{Code: code, Reason: ReasonInvalidCode, Err: fmt.Errorf("%w: %w", ErrMalformedResponse, err)}
	}
	if !d.EligibleFor(snapshot.Subtotal) {
		return Outcome{Code: code, Reason: fmt.Sprintf("spend at least $%s to use this code", d.MinSubtotal)}
	}
	return Outcome{Code: code, Discount: &d}
}
