// Package metrics provides Prometheus instrumentation for the job listing API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prodfloor",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests handled by the service.",
	}, []string{"path", "method", "code"})

	// HTTPRequestDuration tracks request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "prodfloor",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"path", "method"})

	// ListingQueries counts job listing queries, split by whether a category filter was set.
	ListingQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prodfloor",
		Name:      "listing_queries_total",
		Help:      "Total number of job listing queries.",
	}, []string{"filtered"})

	// CatalogRefreshes counts catalog snapshot reloads by reason (initial, invalidated, expired).
	CatalogRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prodfloor",
		Name:      "catalog_refreshes_total",
		Help:      "Total number of catalog snapshot reloads.",
	}, []string{"reason"})
)
