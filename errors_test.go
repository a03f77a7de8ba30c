package partnerapi

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := &APIError{
		StatusCode: http.StatusBadRequest,
		Method:     http.MethodPost,
		Path:       "/clients/",
		NonFieldErrors: []string{
			"At least one professional contact email is required.",
		},
		FieldErrors: map[string][]string{
			"email":      {"Enter a valid email address."},
			"first_name": {"This field is required."},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "POST /clients/")
	assert.Contains(t, msg, "status 400")
	assert.Contains(t, msg, "At least one professional contact email is required.")
	// Fields are listed in sorted order.
	assert.Regexp(t, `email:.*first_name:`, msg)
}

func TestAPIError_Retryable(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: http.StatusTooManyRequests}).Retryable())
	assert.True(t, (&APIError{StatusCode: http.StatusInternalServerError}).Retryable())
	assert.True(t, (&APIError{StatusCode: http.StatusServiceUnavailable}).Retryable())
	assert.False(t, (&APIError{StatusCode: http.StatusBadRequest}).Retryable())
	assert.False(t, (&APIError{StatusCode: http.StatusNotFound}).Retryable())
}

func TestErrorPredicates_Wrapped(t *testing.T) {
	base := &APIError{StatusCode: http.StatusUnauthorized}
	wrapped := fmt.Errorf("import record 3: %w", base)

	assert.True(t, IsUnauthorized(wrapped))
	assert.False(t, IsForbidden(wrapped))
	assert.False(t, IsUnauthorized(fmt.Errorf("plain error")))
}

func TestParseAPIError_DetailEnvelope(t *testing.T) {
	err := parseAPIError(http.MethodGet, "/properties/9/", http.StatusForbidden, http.Header{}, []byte(`{"detail":"Invalid API key."}`))
	assert.Equal(t, http.StatusForbidden, err.StatusCode)
	assert.Equal(t, "Invalid API key.", err.Detail)
	assert.Empty(t, err.FieldErrors)
}

func TestParseAPIError_FieldEnvelope(t *testing.T) {
	body := []byte(`{"postcode":["This field is required."],"non_field_errors":["Conflicting transaction."]}`)
	err := parseAPIError(http.MethodPost, "/clients/", http.StatusBadRequest, http.Header{}, body)

	require.NotNil(t, err.FieldErrors)
	assert.Equal(t, []string{"This field is required."}, err.FieldErrors["postcode"])
	assert.Equal(t, []string{"Conflicting transaction."}, err.NonFieldErrors)
	assert.Empty(t, err.Detail)
}

func TestParseAPIError_NonJSONBody(t *testing.T) {
	err := parseAPIError(http.MethodGet, "/products/", http.StatusBadGateway, http.Header{}, []byte("<html>502 Bad Gateway</html>\n"))
	assert.Equal(t, http.StatusBadGateway, err.StatusCode)
	assert.Equal(t, "<html>502 Bad Gateway</html>", err.Detail)
}

func TestParseAPIError_RetryAfterSeconds(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "12")
	err := parseAPIError(http.MethodGet, "/products/", http.StatusTooManyRequests, header, []byte(`{"detail":"Request was throttled."}`))
	assert.Equal(t, 12*time.Second, err.RetryAfter)
}

func TestParseAPIError_RetryAfterFromReset(t *testing.T) {
	header := http.Header{}
	header.Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(10*time.Second).Unix()))
	err := parseAPIError(http.MethodGet, "/products/", http.StatusTooManyRequests, header, []byte(`{"detail":"Request was throttled."}`))
	assert.Greater(t, err.RetryAfter, 5*time.Second)
	assert.LessOrEqual(t, err.RetryAfter, 10*time.Second)
}
