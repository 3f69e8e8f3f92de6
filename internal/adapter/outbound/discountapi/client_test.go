package discountapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpack/storefront/internal/domain/cart"
	"github.com/greenpack/storefront/internal/domain/catalog"
	"github.com/greenpack/storefront/internal/domain/money"
	"github.com/greenpack/storefront/internal/domain/pricing"
	"github.com/greenpack/storefront/internal/infra/config"
	"github.com/greenpack/storefront/internal/infra/httpclient"
	"github.com/greenpack/storefront/internal/port/outbound"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) outbound.DiscountValidationPort {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := httpclient.NewService("discounts", config.ServiceConfig{BaseURL: srv.URL, Timeout: time.Second}, srv.Client(), nil)
	require.NoError(t, err)
	return NewClient(svc, nil)
}

func testSnapshot(t *testing.T) cart.Snapshot {
	t.Helper()
	c := cart.New()
	_, err := c.AddItem(catalog.Variety{ID: "pea", Name: "Pea Shoots", UnitPrice: money.MustParse("11.00")}, 2)
	require.NoError(t, err)
	return c.Snapshot()
}

func TestClient_ValidateDiscountCode(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted code", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, validatePath, r.URL.Path)

			var req validateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "SAVE10", req.Code)
			assert.Equal(t, "22.00", req.Subtotal.String())
			require.Len(t, req.Items, 1)
			assert.Equal(t, "pea", req.Items[0].ProductID)
			assert.Equal(t, 2, req.Items[0].Quantity)

			_, _ = w.Write([]byte(`{"valid":true,"discount":{"code":"SAVE10","description":"10% off","kind":"percent","percent":"10"}}`))
		})

		res, err := c.ValidateDiscountCode(ctx, "SAVE10", testSnapshot(t))
		require.NoError(t, err)
		assert.True(t, res.Valid)
		require.NotNil(t, res.Discount)
		assert.Equal(t, pricing.DiscountPercent, res.Discount.Kind)
		assert.Equal(t, "10", res.Discount.Percent.String())
	})

	t.Run("rejected in body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"valid":false,"reason":"code expired"}`))
		})

		res, err := c.ValidateDiscountCode(ctx, "OLD", testSnapshot(t))
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Equal(t, "code expired", res.Reason)
	})

	t.Run("rejected by status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"reason":"code not found"}`))
		})

		res, err := c.ValidateDiscountCode(ctx, "NOPE", testSnapshot(t))
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Equal(t, "code not found", res.Reason)
	})

	t.Run("service error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := c.ValidateDiscountCode(ctx, "SAVE10", testSnapshot(t))
		var se *httpclient.StatusError
		assert.ErrorAs(t, err, &se)
	})
}
