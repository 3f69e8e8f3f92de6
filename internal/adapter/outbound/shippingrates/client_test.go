package shippingrates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpack/storefront/internal/domain/pricing"
	"github.com/greenpack/storefront/internal/infra/config"
	"github.com/greenpack/storefront/internal/infra/httpclient"
	"github.com/greenpack/storefront/internal/port/outbound"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) outbound.ShippingRatePort {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := httpclient.NewService("shipping-rates", config.ServiceConfig{BaseURL: srv.URL, Timeout: time.Second}, srv.Client(), nil)
	require.NoError(t, err)
	return NewClient(svc, nil)
}

func TestClient_GetShippingOptions(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes options", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, ratesPath, r.URL.Path)
			assert.Equal(t, "94105", r.URL.Query().Get("postal_code"))
			_, _ = w.Write([]byte(`{"options":[
				{"id":"std","name":"Standard","price":"5.00","carrier":"USPS","estimated_days":4},
				{"id":"exp","name":"Express","price":"12.5"}
			]}`))
		})

		options, err := c.GetShippingOptions(ctx, "94105")
		require.NoError(t, err)
		require.Len(t, options, 2)
		assert.Equal(t, "std", options[0].ID)
		assert.Equal(t, "5.00", options[0].Price.String())
		assert.Equal(t, 4, options[0].EstimatedDays)
		assert.Equal(t, "12.50", options[1].Price.String())
	})

	t.Run("unserved postal code is an empty list", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		options, err := c.GetShippingOptions(ctx, "99999")
		require.NoError(t, err)
		assert.NotNil(t, options)
		assert.Empty(t, options)
	})

	t.Run("server failure", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := c.GetShippingOptions(ctx, "94105")
		var se *httpclient.StatusError
		assert.ErrorAs(t, err, &se)
	})

	t.Run("concurrent lookups for one postal code share a request", func(t *testing.T) {
		var calls atomic.Int32
		release := make(chan struct{})
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			<-release
			_, _ = w.Write([]byte(`{"options":[{"id":"std","name":"Standard","price":"5.00"}]}`))
		})

		var wg sync.WaitGroup
		results := make([][]pricing.ShippingOption, 4)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = c.GetShippingOptions(ctx, "94105")
			}(i)
		}
		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for _, r := range results {
			require.Len(t, r, 1)
		}
		// Callers get their own copies.
		results[0][0].Name = "changed"
		assert.Equal(t, "Standard", results[1][0].Name)
	})

	t.Run("caller cancellation", func(t *testing.T) {
		release := make(chan struct{})
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		t.Cleanup(func() { close(release) })

		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err := c.GetShippingOptions(cctx, "10001")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
