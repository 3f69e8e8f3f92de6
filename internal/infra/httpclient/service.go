package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/greenpack/storefront/internal/infra/config"
)

// ErrCircuitOpen is returned while a service's breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit open")

// maxBody caps how much of a response body is read.
const maxBody = 1 << 20

// StatusError is a non-2xx response.
type StatusError struct {
	Service string
	Code    int
	Body    []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Service, e.Code)
}

// IsClientError reports whether the service rejected the request itself.
func (e *StatusError) IsClientError() bool {
	return e.Code >= 400 && e.Code < 500
}

// Service calls one JSON API. Every call is traced as a client span and
// guarded by a circuit breaker; 4xx responses do not count as failures.
type Service struct {
	name    string
	baseURL *url.URL
	apiKey  string
	timeout time.Duration
	client  *http.Client
	tracer  trace.Tracer
	breaker *gobreaker.CircuitBreaker[any]
	logger  *zap.Logger
}

// NewService creates a client for the service at cfg.BaseURL.
func NewService(name string, cfg config.ServiceConfig, client *http.Client, logger *zap.Logger) (*Service, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%s: invalid base url %q", name, cfg.BaseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	logger = logger.Named("httpclient").With(zap.String("service", name))

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.CircuitTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			return err == nil || (errors.As(err, &se) && se.IsClientError())
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}

	return &Service{
		name:    name,
		baseURL: base,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		client:  client,
		tracer:  otel.Tracer("github.com/greenpack/storefront/httpclient"),
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		logger:  logger,
	}, nil
}

// Name returns the service name.
func (s *Service) Name() string {
	return s.name
}

// BreakerState returns the circuit breaker state.
func (s *Service) BreakerState() gobreaker.State {
	return s.breaker.State()
}

// Do sends a JSON request and decodes a JSON response into out. A nil body
// sends no payload and a nil out discards the response.
func (s *Service) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, fmt.Sprintf("call-%s", s.name), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.do(ctx, span, method, path, query, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%s: %w", s.name, ErrCircuitOpen)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Service) do(ctx context.Context, span trace.Span, method, path string, query url.Values, body, out any) error {
	target := s.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", s.name, err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	span.SetAttributes(
		attribute.String("http.url", target.String()),
		attribute.String("http.method", method),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read %s response: %w", s.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Service: s.name, Code: resp.StatusCode, Body: raw}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", s.name, err)
	}
	return nil
}
