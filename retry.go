package partnerapi

import (
	"errors"
	"net/http"
	"time"
)

// RetryPolicy controls automatic retries on throttling (429), server faults
// (5xx), and transport errors. Backoff is exponential: BaseDelay doubled per
// attempt, capped at MaxDelay, stretched to the server's Retry-After when
// that is longer.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// RetryNonIdempotent also retries POST/PUT/DELETE on 429. The Partner
	// API rejects throttled requests before processing them, so this is
	// safe, but it stays opt-in.
	RetryNonIdempotent bool
}

// DefaultRetryPolicy retries GETs up to 4 times with 500ms base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
	}
}

// NoRetry disables automatic retries.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// next decides whether the failed attempt should be retried and after what
// delay.
func (p RetryPolicy) next(method string, attempt int, err error) (time.Duration, bool) {
	if attempt >= p.MaxAttempts {
		return 0, false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return 0, false
	}

	idempotent := method == http.MethodGet || method == http.MethodHead

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if !apiErr.Retryable() {
			return 0, false
		}
		if !idempotent {
			if apiErr.StatusCode != http.StatusTooManyRequests || !p.RetryNonIdempotent {
				return 0, false
			}
		}
		delay := p.backoff(attempt)
		if apiErr.RetryAfter > delay {
			delay = apiErr.RetryAfter
		}
		return delay, true
	}

	// Transport-level failure: the request may have reached the server, so
	// only idempotent methods are retried.
	if !idempotent {
		return 0, false
	}
	return p.backoff(attempt), true
}

// backoff returns BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if attempt < 1 {
		return p.BaseDelay
	}
	shift := attempt - 1
	// 2^30 seconds is already far past any sane MaxDelay.
	if shift > 30 {
		return p.MaxDelay
	}
	d := p.BaseDelay * time.Duration(1<<shift)
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
