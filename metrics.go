package partnerapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partnerapi_requests_total",
			Help: "Total Partner API requests by operation and status code",
		},
		[]string{"method", "operation", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partnerapi_request_duration_seconds",
			Help:    "Partner API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "operation"},
	)

	retriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partnerapi_retries_total",
			Help: "Total automatic retries of Partner API requests",
		},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partnerapi_rate_limited_total",
			Help: "Total 429 responses received from the Partner API",
		},
	)
)
