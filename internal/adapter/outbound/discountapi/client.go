package discountapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/greenpack/storefront/internal/domain/cart"
	"github.com/greenpack/storefront/internal/domain/money"
	"github.com/greenpack/storefront/internal/domain/pricing"
	"github.com/greenpack/storefront/internal/infra/httpclient"
	"github.com/greenpack/storefront/internal/port/outbound"
)

const validatePath = "/v1/discounts/validate"

// Requester sends a JSON request to the discount service.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out any) error
}

type validateRequest struct {
	Code      string        `json:"code"`
	Subtotal  money.Money   `json:"subtotal"`
	ItemCount int           `json:"item_count"`
	Items     []requestItem `json:"items"`
}

type requestItem struct {
	ProductID  string      `json:"product_id"`
	Kind       cart.Kind   `json:"kind"`
	Quantity   int         `json:"quantity"`
	TotalPrice money.Money `json:"total_price"`
}

type validateResponse struct {
	Valid    bool              `json:"valid"`
	Reason   string            `json:"reason,omitempty"`
	Discount *pricing.Discount `json:"discount,omitempty"`
}

// client implements outbound.DiscountValidationPort over the discount
// HTTP API.
type client struct {
	api    Requester
	logger *zap.Logger
}

// NewClient creates a discount validation adapter.
func NewClient(api Requester, logger *zap.Logger) outbound.DiscountValidationPort {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &client{api: api, logger: logger.Named("discountapi")}
}

func (c *client) ValidateDiscountCode(ctx context.Context, code string, snapshot cart.Snapshot) (*outbound.DiscountValidation, error) {
	req := validateRequest{
		Code:      code,
		Subtotal:  snapshot.Subtotal,
		ItemCount: snapshot.ItemCount,
		Items:     make([]requestItem, 0, len(snapshot.Items)),
	}
	for _, item := range snapshot.Items {
		req.Items = append(req.Items, requestItem{
			ProductID:  item.ProductID,
			Kind:       item.Kind,
			Quantity:   item.Quantity,
			TotalPrice: item.TotalPrice,
		})
	}

	var resp validateResponse
	if err := c.api.Do(ctx, http.MethodPost, validatePath, nil, req, &resp); err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && (se.Code == http.StatusNotFound || se.Code == http.StatusUnprocessableEntity) {
			// Rejections may come back as 4xx with a reason body.
			var rejected validateResponse
			_ = json.Unmarshal(se.Body, &rejected)
			return &outbound.DiscountValidation{Valid: false, Reason: rejected.Reason}, nil
		}
		return nil, fmt.Errorf("validate discount %s: %w", code, err)
	}

	if !resp.Valid {
		return &outbound.DiscountValidation{Valid: false, Reason: resp.Reason}, nil
	}
	return &outbound.DiscountValidation{Valid: true, Discount: resp.Discount}, nil
}

// Compile-time check
var _ outbound.DiscountValidationPort = (*client)(nil)
