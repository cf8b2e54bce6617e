// Package httpretry wraps HTTP calls with an exponential-backoff retry
// policy.
//
// Transient faults (network errors, timeouts, 429, 5xx) are retried up
// to the configured budget; every other 4xx is treated as a client-side
// mistake and fails immediately.
package httpretry

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

// Config controls retry behavior.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	// Default: 3 (four attempts total).
	MaxRetries int

	// BaseDelay is the backoff delay before the first retry.
	// Default: 500ms.
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff.
	// Default: 8s.
	MaxDelay time.Duration

	// Timeout is the per-request timeout on the underlying client.
	// Default: 30s.
	Timeout time.Duration
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   8 * time.Second,
		Timeout:    30 * time.Second,
	}
}

// StatusError is returned when the final attempt completed but the
// server answered with a non-success status.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d from %s", e.StatusCode, e.URL)
}

// Client issues GET requests with retry and backoff.
//
// Client is safe for concurrent use. A returned response body has
// already been fully read and closed.
type Client struct {
	http *http.Client
	cfg  Config
}

// Response is the fully-drained result of a successful call.
type Response struct {
	StatusCode int
	Body       []byte
}

// New creates a retrying client. Zero config fields take defaults.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// shouldRetry reports whether a failed attempt is worth repeating:
// transport-level faults, 429, and 5xx.
func shouldRetry(status int, err error) bool {
	if err != nil {
		return true
	}
	return status == http.StatusTooManyRequests || (status >= 500 && status < 600)
}

// backoff computes the delay before retry attempt (0-based) with ±25%
// symmetric jitter, floored at zero.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.BaseDelay << uint(attempt)
	if delay > c.cfg.MaxDelay || delay <= 0 {
		delay = c.cfg.MaxDelay
	}
	jitter := time.Duration(float64(delay) * 0.25 * (2*rand.Float64() - 1))
	if delay += jitter; delay < 0 {
		delay = 0
	}
	return delay
}

// Get issues a GET to rawURL with the given query parameters, retrying
// per the configured policy. The final retryable failure is surfaced
// as-is: a *StatusError for an HTTP-level failure, or the transport
// error otherwise.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) (*Response, error) {
	target := rawURL
	if len(params) > 0 {
		target = rawURL + "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt - 1)):
			}
		}

		resp, err := c.attempt(ctx, target)
		if err == nil && !shouldRetry(resp.StatusCode, nil) {
			if resp.StatusCode >= 400 {
				return nil, &StatusError{StatusCode: resp.StatusCode, URL: rawURL, Body: truncate(resp.Body)}
			}
			return resp, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		lastErr = &StatusError{StatusCode: resp.StatusCode, URL: rawURL, Body: truncate(resp.Body)}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}

func (c *Client) attempt(ctx context.Context, target string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func truncate(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}
