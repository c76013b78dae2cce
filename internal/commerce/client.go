// Package commerce talks to the store's Shopify Admin REST API and turns its
// JSON documents into validated domain values.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gax "github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	instrumentationName = "github.com/borne-automatique/api/internal/commerce"

	// DefaultAPIVersion is the Admin API version the kiosk was built against.
	DefaultAPIVersion = "2024-01"

	defaultTimeout    = 15 * time.Second
	defaultMaxRetries = 2
	maxErrorBody      = 4 << 10
	accessTokenHeader = "X-Shopify-Access-Token"
)

// ErrNotConfigured is returned when the store domain or access token is missing.
var ErrNotConfigured = errors.New("commerce: store domain and access token are required")

// APIError reports a non-2xx answer from the commerce backend.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("commerce: %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("commerce: %s: status %d: %s", e.Op, e.Status, e.Body)
}

// UpstreamStatus exposes the backend status code to HTTP error mapping.
func (e *APIError) UpstreamStatus() int {
	return e.Status
}

// Config identifies the store and bounds each call.
type Config struct {
	StoreDomain string
	AccessToken string
	APIVersion  string
	Timeout     time.Duration
	MaxRetries  int
}

// Client is a minimal Admin REST client covering shipping zones, products and draft orders.
type Client struct {
	baseURL    *url.URL
	token      string
	http       *http.Client
	maxRetries int
	backoff    func() gax.Backoff
	logger     *zap.Logger
	tracer     trace.Tracer
	latency    metric.Float64Histogram
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the transport. The client timeout set from Config is kept when the
// provided client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		if hc.Timeout == 0 {
			hc.Timeout = c.http.Timeout
		}
		c.http = hc
	}
}

// WithBaseURL points the client at another host, mainly for tests.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(strings.TrimRight(raw, "/") + "/"); err == nil {
			c.baseURL = u
		}
	}
}

// WithLogger sets the zap logger used for retry and failure events.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithMeter injects a custom OpenTelemetry meter.
func WithMeter(m metric.Meter) Option {
	return func(c *Client) {
		if m == nil {
			return
		}
		if h, err := newLatencyHistogram(m); err == nil {
			c.latency = h
		}
	}
}

// WithBackoff overrides the pause schedule between retries of read calls.
func WithBackoff(b gax.Backoff) Option {
	return func(c *Client) {
		c.backoff = func() gax.Backoff { return b }
	}
}

// NewClient validates the configuration and builds a client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	domain := strings.TrimSpace(cfg.StoreDomain)
	domain = strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
	domain = strings.TrimRight(domain, "/")
	token := strings.TrimSpace(cfg.AccessToken)
	if domain == "" || token == "" {
		return nil, ErrNotConfigured
	}
	version := strings.TrimSpace(cfg.APIVersion)
	if version == "" {
		version = DefaultAPIVersion
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	base, err := url.Parse(fmt.Sprintf("https://%s/admin/api/%s/", domain, version))
	if err != nil {
		return nil, fmt.Errorf("commerce: invalid store domain %q: %w", domain, err)
	}

	latency, err := newLatencyHistogram(otel.GetMeterProvider().Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("commerce: register metrics: %w", err)
	}

	c := &Client{
		baseURL:    base,
		token:      token,
		http:       &http.Client{Timeout: timeout},
		maxRetries: retries,
		backoff: func() gax.Backoff {
			return gax.Backoff{Initial: 200 * time.Millisecond, Max: 2 * time.Second, Multiplier: 2}
		},
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(instrumentationName),
		latency: latency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func newLatencyHistogram(m metric.Meter) (metric.Float64Histogram, error) {
	return m.Float64Histogram(
		"commerce.request.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds of commerce API calls"),
	)
}

// Ping checks that the store answers with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "shop.get", http.MethodGet, "shop.json", url.Values{"fields": {"id"}}, nil, nil)
}

// do performs one API call. GET calls are retried on 429 and 5xx answers and transport errors.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var payload []byte
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("commerce: %s: encode request: %w", op, err)
		}
		payload = encoded
	}

	target := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	ctx, span := c.tracer.Start(ctx, "commerce."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		semconv.HTTPRequestMethodKey.String(method),
		semconv.ServerAddress(target.Host),
		attribute.String("url.path", target.Path),
	)

	attempts := 1
	if method == http.MethodGet {
		attempts += c.maxRetries
	}
	backoff := c.backoff()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		status, retryAfter, err := c.attempt(ctx, op, method, target.String(), payload, out)
		if err == nil {
			span.SetAttributes(semconv.HTTPResponseStatusCode(status))
			span.SetStatus(codes.Ok, "")
			return nil
		}
		lastErr = err
		if status > 0 {
			span.SetAttributes(semconv.HTTPResponseStatusCode(status))
		}
		if attempt == attempts || !retryable(ctx, status, err) {
			break
		}
		pause := backoff.Pause()
		if retryAfter > 0 && retryAfter < backoff.Max {
			pause = retryAfter
		}
		c.logger.Warn("commerce request retry",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("status", status),
			zap.Duration("pause", pause),
			zap.Error(err),
		)
		if err := gax.Sleep(ctx, pause); err != nil {
			lastErr = err
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	c.logger.Error("commerce request failed", zap.String("op", op), zap.Error(lastErr))
	return lastErr
}

func (c *Client) attempt(ctx context.Context, op, method, target string, payload []byte, out any) (int, time.Duration, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, 0, fmt.Errorf("commerce: %s: build request: %w", op, err)
	}
	req.Header.Set(accessTokenHeader, c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.recordLatency(ctx, op, time.Since(start), resp)
	if err != nil {
		return 0, 0, fmt.Errorf("commerce: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, retryAfter(resp.Header.Get("Retry-After")), &APIError{
			Op:     op,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(raw)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, 0, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, 0, fmt.Errorf("commerce: %s: decode response: %w", op, err)
	}
	return resp.StatusCode, 0, nil
}

func (c *Client) recordLatency(ctx context.Context, op string, d time.Duration, resp *http.Response) {
	if c.latency == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("op", op)}
	if resp != nil {
		attrs = append(attrs, attribute.Int("status", resp.StatusCode))
	} else {
		attrs = append(attrs, attribute.String("outcome", "transport_error"))
	}
	c.latency.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(attrs...))
}

func retryable(ctx context.Context, status int, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	}
	// decode failures carry a 2xx status and are not retried
	return status == 0
}

func retryAfter(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return 0
}
