package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/print-farm/internal/circuitbreaker"
	"github.com/angeloszaimis/print-farm/internal/label"
)

const (
	generatePath    = "/generate"
	maxResponseSize = 10 << 20
)

// Endpoint returns the generate URL for a base URL. The base is used as
// given, so a trailing slash yields "//generate".
func Endpoint(baseURL string) string {
	return baseURL + generatePath
}

// Result is a successful generator response.
type Result struct {
	StatusCode int
	Body       json.RawMessage
	Duration   time.Duration
}

type Client struct {
	httpClient *http.Client
	breakers   *circuitbreaker.Registry
	logger     *slog.Logger
}

type Option func(*Client)

// WithCircuitBreakers makes the client fail fast for destinations whose
// breaker is open. Only base URLs already registered in the registry are
// guarded; caller-supplied override URLs are not.
func WithCircuitBreakers(registry *circuitbreaker.Registry) Option {
	return func(c *Client) {
		c.breakers = registry
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client whose calls are bounded by timeout.
func NewClient(timeout time.Duration, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Generate POSTs payload to {baseURL}/generate once. It returns *RemoteError
// for non-2xx responses and *UnreachableError when no response arrives.
func (c *Client) Generate(ctx context.Context, baseURL string, payload label.GeneratorPayload) (*Result, error) {
	endpoint := Endpoint(baseURL)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode generator payload: %w", err)
	}

	var breaker *circuitbreaker.CircuitBreaker
	if c.breakers != nil {
		breaker, _ = c.breakers.Lookup(baseURL)
	}
	if breaker != nil && !breaker.Allow() {
		c.logger.Warn("Generator call rejected by open circuit breaker",
			slog.String("url", endpoint))
		return nil, &UnreachableError{URL: endpoint, Err: circuitbreaker.ErrOpen}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		// Only caller-supplied override URLs can be malformed; treat them as unreachable.
		c.recordFailure(ctx, breaker)
		return nil, &UnreachableError{URL: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(ctx, breaker)
		return nil, &UnreachableError{URL: endpoint, Err: err}
	}
	defer res.Body.Close()

	text, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize+1))
	duration := time.Since(start)
	if err != nil {
		c.recordFailure(ctx, breaker)
		return nil, &UnreachableError{URL: endpoint, Err: err}
	}

	if breaker != nil {
		breaker.RecordSuccess()
	}

	if len(text) > maxResponseSize {
		c.logger.Warn("Generator response too large",
			slog.String("url", endpoint),
			slog.Int("status", res.StatusCode))
		return nil, &UnreachableError{URL: endpoint, Err: ErrResponseTooLarge}
	}

	parsed := ParseBody(text)

	c.logger.Debug("Generator responded",
		slog.String("url", endpoint),
		slog.Int("status", res.StatusCode),
		slog.Duration("duration", duration))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &RemoteError{StatusCode: res.StatusCode, Body: parsed}
	}

	return &Result{
		StatusCode: res.StatusCode,
		Body:       parsed,
		Duration:   duration,
	}, nil
}

// recordFailure ignores failures caused by the inbound request going away,
// but still frees the half-open slot so the next call can try.
func (c *Client) recordFailure(ctx context.Context, breaker *circuitbreaker.CircuitBreaker) {
	if breaker == nil {
		return
	}
	if ctx.Err() != nil {
		breaker.Cancel()
		return
	}
	breaker.RecordFailure()
}

type rawBody struct {
	Raw string `json:"raw"`
}

// ParseBody returns text unchanged when it is valid JSON, otherwise it
// returns {"raw": text}.
func ParseBody(text []byte) json.RawMessage {
	if json.Valid(text) {
		return json.RawMessage(text)
	}

	wrapped, err := json.Marshal(rawBody{Raw: string(text)})
	if err != nil {
		return json.RawMessage(`{"raw":""}`)
	}

	return wrapped
}
