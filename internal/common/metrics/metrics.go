// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"method", "route"},
	)

	JobListingsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "job_listings_published_total",
			Help: "Total number of job listings published",
		},
	)

	ApplicationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applications_submitted_total",
			Help: "Total number of application submissions by outcome",
		},
		[]string{"outcome"},
	)

	ExpiredListingsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expired_listings_closed_total",
			Help: "Total number of listings closed by the expiry sweeper",
		},
	)

	ListingCacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_cache_events_total",
			Help: "Listing cache hits and misses",
		},
		[]string{"event"},
	)
)
