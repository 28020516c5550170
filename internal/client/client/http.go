package client

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

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/zktaccess/zktadmin/internal/logging"
	"github.com/zktaccess/zktadmin/internal/obs"
)

const (
	RequestIDHeader = "X-Request-ID"

	// tokenExpiredMarker is how the backend words an expired bearer token.
	tokenExpiredMarker = "Token has expired"

	maxBodyBytes = 4 << 20
)

type HTTPClient struct {
	baseURL string
	store   TokenStore
	hc      *http.Client
	limiter *rate.Limiter
	logger  logging.Logger
	metrics *obs.Metrics
	newID   func() string
	backoff func() retry.Backoff
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.hc = hc }
}

// WithTimeout sets the per-request timeout of the underlying *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.hc.Timeout = d }
}

// WithRateLimit paces outgoing requests to rps per second with a burst of
// burst. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry retries GET requests that fail with ErrUnavailable up to
// attempts more times, backing off exponentially from base. Other methods
// are never retried.
func WithRetry(attempts uint64, base time.Duration) Option {
	return func(c *HTTPClient) {
		if attempts == 0 {
			c.backoff = nil
			return
		}
		c.backoff = func() retry.Backoff {
			return retry.WithMaxRetries(attempts, retry.NewExponential(base))
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// WithMetrics instruments the transport with m.
func WithMetrics(m *obs.Metrics) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

// NewHTTPClient builds a client for the backend at baseURL. store provides
// the bearer token and is cleared when the backend reports it expired.
func NewHTTPClient(baseURL string, store TokenStore, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(u.String(), "/"),
		store:   store,
		hc:      &http.Client{Timeout: 10 * time.Second},
		logger:  logging.Discard(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api")
	if c.metrics != nil {
		c.hc.Transport = c.metrics.InstrumentTransport(c.hc.Transport)
	}
	return c, nil
}

// Do sends a request to path and decodes a JSON answer into out (ignored
// when out is nil). body, when not nil, is sent as JSON.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body, out any) error {
	if c.backoff == nil || method != http.MethodGet {
		return c.do(ctx, method, path, body, out)
	}
	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		err := c.do(ctx, method, path, body, out)
		if errors.Is(err, ErrUnavailable) {
			c.logger.Debug(ctx, "retrying request", "method", method, "path", path, "err", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	requestID := c.newID()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if token, ok := c.store.Token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}

	c.logger.Debug(ctx, "api request",
		"method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.translateError(ctx, resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// translateError maps a non-2xx answer onto ErrSessionExpired or a
// *RequestError. An expired token clears the session store first so that no
// caller can keep using it.
func (c *HTTPClient) translateError(ctx context.Context, status int, body []byte) error {
	text := string(body)
	if strings.Contains(text, tokenExpiredMarker) {
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Warn(ctx, "clear expired session failed", "err", err)
		}
		return ErrSessionExpired
	}
	return &RequestError{Status: status, Body: text}
}

// IsSessionExpired is shorthand for errors.Is(err, ErrSessionExpired).
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}
