// Package mltransport is the shared JSON-over-HTTP transport to model
// inference servers: rate limiting, retries and a circuit breaker.
package mltransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/circuitbreaker"
	infraerrors "github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/errors"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/retry"
)

const (
	defaultTimeout = 30 * time.Second
	healthTimeout  = 5 * time.Second
)

// ErrInvalidBaseURL is returned by New for a missing or non-http(s) URL.
var ErrInvalidBaseURL = errors.New("invalid inference base URL")

// Observer is told about every request outcome, after retries.
type Observer func(endpoint string, err error)

// Config configures a Transport.
type Config struct {
	BaseURL string
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	Retry   retry.Config
	Breaker circuitbreaker.Config
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
	// Client overrides the HTTP client, mainly for tests.
	Client   *http.Client
	Observer Observer
}

// Transport sends requests to one inference server.
type Transport struct {
	baseURL  string
	client   *http.Client
	retry    retry.Config
	breaker  *circuitbreaker.Breaker
	limiter  *rate.Limiter
	observer Observer
}

// New validates cfg and builds a Transport.
func New(cfg Config) (*Transport, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	retryCfg := cfg.Retry
	if retryCfg.IsRetryable == nil {
		retryCfg.IsRetryable = isRetryable
	}

	t := &Transport{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		client:   client,
		retry:    retryCfg,
		breaker:  circuitbreaker.New(cfg.Breaker),
		observer: cfg.Observer,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(cfg.RateLimit))
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return t, nil
}

// BaseURL returns the server URL without a trailing slash.
func (t *Transport) BaseURL() string {
	return t.baseURL
}

// BreakerState returns the circuit state.
func (t *Transport) BreakerState() circuitbreaker.State {
	return t.breaker.State()
}

// isRetryable retries transient network errors and 5xx/429 responses, but
// never an open circuit.
func isRetryable(err error) bool {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return false
	}
	var httpErr *infraerrors.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	return retry.DefaultIsRetryable(err)
}

// PostJSON posts reqBody to path and decodes a 2xx response into respPtr.
func (t *Transport) PostJSON(ctx context.Context, path string, reqBody, respPtr any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	err = retry.Do(ctx, t.retry, func() error {
		return t.attempt(ctx, path, body, respPtr)
	})
	if t.observer != nil {
		t.observer(strings.TrimPrefix(path, "/"), err)
	}
	return err
}

// attempt performs one request through the limiter and breaker. Client
// errors (4xx) are returned without counting against the breaker.
func (t *Transport) attempt(ctx context.Context, path string, body []byte, respPtr any) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var clientErr error
	err := t.breaker.Execute(func() error {
		reqErr := t.do(ctx, path, body, respPtr)
		var httpErr *infraerrors.HTTPError
		if errors.As(reqErr, &httpErr) && !httpErr.Temporary() {
			clientErr = reqErr
			return nil
		}
		return reqErr
	})
	if clientErr != nil {
		return clientErr
	}
	return err
}

func (t *Transport) do(ctx context.Context, path string, body []byte, respPtr any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := infraerrors.ParseHTTPError(resp); httpErr != nil {
		return httpErr
	}

	if err := json.NewDecoder(resp.Body).Decode(respPtr); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Health is the outcome of a health probe.
type Health struct {
	Reachable bool
	Latency   time.Duration
}

// DoHealth calls GET /health once, without retries or the breaker.
func (t *Transport) DoHealth(ctx context.Context) (Health, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/health", http.NoBody)
	if err != nil {
		return Health{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := t.client.Do(req)
	h := Health{Latency: time.Since(start)}
	if err != nil {
		return h, fmt.Errorf("service unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := infraerrors.ParseHTTPError(resp); httpErr != nil {
		return h, fmt.Errorf("unhealthy: %w", httpErr)
	}
	h.Reachable = true
	return h, nil
}

// GetJSON fetches path and decodes the response, without retries.
func (t *Transport) GetJSON(ctx context.Context, path string, respPtr any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := infraerrors.ParseHTTPError(resp); httpErr != nil {
		return httpErr
	}
	if err := json.NewDecoder(resp.Body).Decode(respPtr); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
