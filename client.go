// Package partnerapi is a Go client for the OpenMoove Partner API, the REST
// service for property-transaction integration. It handles API-key
// authentication, offset pagination, rate-limit accounting, and retry with
// exponential backoff on throttling and server faults.
package partnerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the production Partner API endpoint.
	DefaultBaseURL = "https://api.openmoove.com/api/partners"

	// APIKeyHeader carries the partner's static API key on every request.
	APIKeyHeader = "X-API-Key"
)

// Client communicates with the Partner API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	logger     zerolog.Logger
	retry      RetryPolicy
	breaker    *CircuitBreaker

	mu        sync.Mutex
	rateLimit RateLimit
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (e.g. for the staging environment
// or a local mock server).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger attaches a zerolog logger. Without it the client is silent.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "partnerapi").Logger()
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRetryPolicy replaces the default retry behavior.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithCircuitBreaker guards all requests with the given breaker. While the
// circuit is open, calls fail fast with ErrCircuitOpen.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// New creates a Partner API client authenticated with the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		apiKey:    apiKey,
		userAgent: "partnerapi-go/" + Version,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zerolog.Nop(),
		retry:  DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RateLimit returns the quota reported by the most recent API response.
// The zero value means no response has carried rate-limit headers yet.
func (c *Client) RateLimit() RateLimit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rateLimit
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, result any) error {
	return c.do(ctx, op, http.MethodGet, path, query, nil, result)
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body any, result any) error {
	return c.do(ctx, op, method, path, nil, body, result)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	reqURL := c.requestURL(path, query)

	attempt := 0
	for {
		attempt++
		err := c.doOnce(ctx, op, method, reqURL, payload, result)
		if err == nil {
			return nil
		}

		delay, retry := c.retry.next(method, attempt, err)
		if !retry {
			return err
		}

		retriesTotal.Inc()
		c.logger.Debug().
			Str("method", method).
			Str("url", reqURL).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("retrying request")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) doOnce(ctx context.Context, op, method, reqURL string, payload []byte, result any) error {
	if c.breaker != nil && !c.breaker.Allow() {
		return ErrCircuitOpen
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.breaker != nil {
			c.breaker.RecordFailure()
		}
		requestsTotal.WithLabelValues(method, op, "error").Inc()
		return fmt.Errorf("partner API request: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	requestDuration.WithLabelValues(method, op).Observe(time.Since(start).Seconds())
	requestsTotal.WithLabelValues(method, op, strconv.Itoa(resp.StatusCode)).Inc()

	if rl, ok := parseRateLimit(resp.Header); ok {
		c.mu.Lock()
		c.rateLimit = rl
		c.mu.Unlock()
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusTooManyRequests {
			rateLimitedTotal.Inc()
		}
		if c.breaker != nil {
			if resp.StatusCode >= 500 {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return parseAPIError(method, req.URL.Path, resp.StatusCode, resp.Header, respBody)
	}

	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// requestURL joins path onto the base URL. Absolute URLs (pagination "next"
// links) pass through untouched.
func (c *Client) requestURL(path string, query url.Values) string {
	u := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		u = c.baseURL + path
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
