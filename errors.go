package partnerapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is rejecting requests.
var ErrCircuitOpen = errors.New("partnerapi: circuit breaker open")

// APIError is a non-2xx response from the Partner API.
//
// Validation failures (400) carry per-field messages in FieldErrors plus
// cross-field messages in NonFieldErrors. All other errors carry a single
// Detail string.
type APIError struct {
	StatusCode     int
	Method         string
	Path           string
	Detail         string
	FieldErrors    map[string][]string
	NonFieldErrors []string

	// RetryAfter is the wait the server asked for on a 429, if any.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "partner API %s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	for _, msg := range e.NonFieldErrors {
		fmt.Fprintf(&b, ": %s", msg)
	}
	if len(e.FieldErrors) > 0 {
		fields := make([]string, 0, len(e.FieldErrors))
		for f := range e.FieldErrors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(&b, ": %s: %s", f, strings.Join(e.FieldErrors[f], "; "))
		}
	}
	return b.String()
}

// Retryable reports whether the request may be retried: throttling and
// server faults are transient, everything else is not.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsValidation reports whether err is a 400 validation error.
func IsValidation(err error) bool { return hasStatus(err, http.StatusBadRequest) }

// IsUnauthorized reports whether err is a 401 (missing or unknown API key).
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

// IsForbidden reports whether err is a 403 (key lacks permission).
func IsForbidden(err error) bool { return hasStatus(err, http.StatusForbidden) }

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsRateLimited reports whether err is a 429.
func IsRateLimited(err error) bool { return hasStatus(err, http.StatusTooManyRequests) }

// IsServerError reports whether err is a 5xx.
func IsServerError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode >= 500
}

func hasStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == status
}

// parseAPIError decodes the Partner API error envelope: either a single
// {"detail": "..."} or a map of field name to message arrays, with
// cross-field rules under "non_field_errors".
func parseAPIError(method, path string, status int, header http.Header, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Method:     method,
		Path:       path,
	}

	if status == http.StatusTooManyRequests {
		apiErr.RetryAfter = parseRetryAfter(header)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		// Not the JSON envelope (e.g. an HTML gateway error page).
		apiErr.Detail = strings.TrimSpace(string(body))
		return apiErr
	}

	for key, raw := range envelope {
		switch key {
		case "detail":
			var detail string
			if json.Unmarshal(raw, &detail) == nil {
				apiErr.Detail = detail
			}
		case "non_field_errors":
			var msgs []string
			if json.Unmarshal(raw, &msgs) == nil {
				apiErr.NonFieldErrors = msgs
			}
		default:
			var msgs []string
			if json.Unmarshal(raw, &msgs) == nil {
				if apiErr.FieldErrors == nil {
					apiErr.FieldErrors = make(map[string][]string)
				}
				apiErr.FieldErrors[key] = msgs
			}
		}
	}
	return apiErr
}

func parseRetryAfter(header http.Header) time.Duration {
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if v := header.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if wait := time.Until(time.Unix(epoch, 0)); wait > 0 {
				return wait
			}
		}
	}
	return 0
}
