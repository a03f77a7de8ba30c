package partnerapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(srvURL string, opts ...Option) *Client {
	opts = append([]Option{WithBaseURL(srvURL), WithRetryPolicy(NoRetry())}, opts...)
	return New("test-key", opts...)
}

func TestClient_SendsAuthHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/products/", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get(APIKeyHeader))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "partnerapi-go/"+Version, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":1,"next":null,"previous":null,"results":[{"id":1,"code":"moove-ready-sale","name":"Moove Ready Sale","active":true}]}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	page, err := client.ListProducts(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "moove-ready-sale", page.Results[0].Code)
}

func TestClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not found."}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	_, err := client.GetProperty(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "Not found.")
}

func TestClient_ValidationEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"product_code":["Unknown product code."],"non_field_errors":["At least one professional contact email is required."]}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	err := client.doJSON(context.Background(), "test", http.MethodPost, "/clients/", map[string]string{}, nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, []string{"Unknown product code."}, apiErr.FieldErrors["product_code"])
	assert.Equal(t, []string{"At least one professional contact email is required."}, apiErr.NonFieldErrors)
}

func TestClient_RetriesThrottledGet(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"detail":"Request was throttled."}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":0,"next":null,"previous":null,"results":[]}`))
	}))
	defer srv.Close()

	client := New("test-key",
		WithBaseURL(srv.URL),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}),
	)
	_, err := client.ListProperties(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClient_RetriesServerFaultGet(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":42,"reference":"MV-000042","transaction_type":"sale","status":"active"}`))
	}))
	defer srv.Close()

	client := New("test-key",
		WithBaseURL(srv.URL),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}),
	)
	prop, err := client.GetProperty(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "MV-000042", prop.Reference)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryThrottledPost(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail":"Request was throttled."}`))
	}))
	defer srv.Close()

	client := New("test-key",
		WithBaseURL(srv.URL),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}),
	)
	_, err := client.SendChatMessage(context.Background(), 1, ChatMessageRequest{Body: "hello"})
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryValidationError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Malformed request."}`))
	}))
	defer srv.Close()

	client := New("test-key",
		WithBaseURL(srv.URL),
		WithRetryPolicy(DefaultRetryPolicy()),
	)
	_, err := client.ListProducts(context.Background(), ListOptions{})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_RateLimitSnapshot(t *testing.T) {
	reset := time.Now().Add(30 * time.Second).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "100")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":0,"next":null,"previous":null,"results":[]}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	assert.Zero(t, client.RateLimit().Limit)

	_, err := client.ListProducts(context.Background(), ListOptions{})
	require.NoError(t, err)

	rl := client.RateLimit()
	assert.Equal(t, 100, rl.Limit)
	assert.Equal(t, 0, rl.Remaining)
	assert.Equal(t, time.Unix(reset, 0), rl.Reset)
	assert.True(t, rl.Exhausted())
}

func TestClient_CircuitBreakerFailsFast(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	breaker := NewCircuitBreaker(BreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Cooldown:         time.Minute,
	})
	client := testClient(srv.URL, WithCircuitBreaker(breaker))

	for range 2 {
		_, err := client.ListProducts(context.Background(), ListOptions{})
		require.Error(t, err)
		assert.True(t, IsServerError(err))
	}
	assert.Equal(t, BreakerOpen, breaker.State())

	_, err := client.ListProducts(context.Background(), ListOptions{})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}
