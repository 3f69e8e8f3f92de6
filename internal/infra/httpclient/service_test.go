package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpack/storefront/internal/infra/config"
)

func newTestService(t *testing.T, handler http.HandlerFunc, cfg config.ServiceConfig) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL
	svc, err := NewService("rates", cfg, srv.Client(), nil)
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	_, err := NewService("rates", config.ServiceConfig{BaseURL: "not a url"}, nil, nil)
	assert.Error(t, err)

	_, err = NewService("rates", config.ServiceConfig{}, nil, nil)
	assert.Error(t, err)
}

func TestService_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips json", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/echo", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("n"))
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var in map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["say"]})
		}, config.ServiceConfig{APIKey: "secret"})

		var out map[string]string
		err := svc.Do(ctx, http.MethodPost, "/v1/echo", url.Values{"n": {"1"}}, map[string]string{"say": "hi"}, &out)
		require.NoError(t, err)
		assert.Equal(t, "hi", out["echo"])
	})

	t.Run("status errors carry the code", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"reason":"nope"}`, http.StatusNotFound)
		}, config.ServiceConfig{})

		err := svc.Do(ctx, http.MethodGet, "/missing", nil, nil, nil)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusNotFound, se.Code)
		assert.True(t, se.IsClientError())
		assert.Contains(t, string(se.Body), "nope")
	})

	t.Run("malformed json", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}, config.ServiceConfig{})

		var out map[string]any
		err := svc.Do(ctx, http.MethodGet, "/", nil, nil, &out)
		assert.ErrorContains(t, err, "decode rates response")
	})

	t.Run("timeout", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}, config.ServiceConfig{Timeout: 20 * time.Millisecond})

		err := svc.Do(ctx, http.MethodGet, "/slow", nil, nil, nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestService_Breaker(t *testing.T) {
	ctx := context.Background()

	t.Run("server errors trip the breaker", func(t *testing.T) {
		var calls atomic.Int32
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}, config.ServiceConfig{FailureThreshold: 2, CircuitTimeout: time.Minute})

		for i := 0; i < 2; i++ {
			var se *StatusError
			assert.ErrorAs(t, svc.Do(ctx, http.MethodGet, "/", nil, nil, nil), &se)
		}
		assert.Equal(t, gobreaker.StateOpen, svc.BreakerState())

		err := svc.Do(ctx, http.MethodGet, "/", nil, nil, nil)
		assert.ErrorIs(t, err, ErrCircuitOpen)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("client errors do not", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}, config.ServiceConfig{FailureThreshold: 1})

		for i := 0; i < 3; i++ {
			_ = svc.Do(ctx, http.MethodGet, "/", nil, nil, nil)
		}
		assert.Equal(t, gobreaker.StateClosed, svc.BreakerState())
	})
}
