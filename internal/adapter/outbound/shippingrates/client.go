package shippingrates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/greenpack/storefront/internal/domain/pricing"
	"github.com/greenpack/storefront/internal/infra/httpclient"
	"github.com/greenpack/storefront/internal/port/outbound"
)

const ratesPath = "/v1/rates"

// Requester sends a JSON request to the rates service.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out any) error
}

type ratesResponse struct {
	Options []pricing.ShippingOption `json:"options"`
}

// client implements outbound.ShippingRatePort over the rates HTTP API.
// Concurrent lookups for the same postal code share one request.
type client struct {
	api    Requester
	group  singleflight.Group
	logger *zap.Logger
}

// NewClient creates a shipping rate adapter.
func NewClient(api Requester, logger *zap.Logger) outbound.ShippingRatePort {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &client{api: api, logger: logger.Named("shippingrates")}
}

func (c *client) GetShippingOptions(ctx context.Context, postalCode string) ([]pricing.ShippingOption, error) {
	ch := c.group.DoChan(postalCode, func() (any, error) {
		// Shared by every waiter, so one caller's cancellation must not
		// fail the others. The service timeout still applies.
		return c.fetch(context.WithoutCancel(ctx), postalCode)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("shared rate lookup", zap.String("postal_code", postalCode))
		}
		options := res.Val.([]pricing.ShippingOption)
		return append([]pricing.ShippingOption(nil), options...), nil
	}
}

func (c *client) fetch(ctx context.Context, postalCode string) ([]pricing.ShippingOption, error) {
	var resp ratesResponse
	err := c.api.Do(ctx, http.MethodGet, ratesPath, url.Values{"postal_code": {postalCode}}, nil, &resp)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			// Unknown or unserved postal code.
			return []pricing.ShippingOption{}, nil
		}
		return nil, fmt.Errorf("get shipping rates for %s: %w", postalCode, err)
	}
	if resp.Options == nil {
		resp.Options = []pricing.ShippingOption{}
	}
	return resp.Options, nil
}

// Compile-time check
var _ outbound.ShippingRatePort = (*client)(nil)
