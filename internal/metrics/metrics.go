// Bookrec - User-Based Collaborative Filtering for Book Ratings
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookrec

// Package metrics exposes Prometheus collectors for batch runs, the
// recommendation pipeline, storage sinks and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline Metrics
	UsersProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrec_users_processed_total",
			Help: "Total number of users for which recommendations were computed",
		},
	)

	RecommendationsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrec_recommendations_emitted_total",
			Help: "Total number of recommendations produced",
		},
	)

	EmptyResults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrec_empty_results_total",
			Help: "Users that received no recommendations (no positive-similarity neighbors)",
		},
	)

	CandidatesPerUser = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrec_candidates_per_user",
			Help:    "Number of candidate neighbors sharing at least one rated item",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1 .. 262144
		},
	)

	NeighborsPerUser = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrec_neighbors_per_user",
			Help:    "Number of selected neighbors per user",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrec_recommend_duration_seconds",
			Help:    "Time spent computing recommendations for a single user",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us .. 2.6s
		},
	)

	// Batch Metrics
	BatchDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookrec_batch_duration_seconds",
			Help: "Duration of the most recent batch run",
		},
	)

	BatchLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookrec_batch_last_success_timestamp",
			Help: "Unix timestamp of the last successful batch run",
		},
	)

	BatchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_batch_errors_total",
			Help: "Batch runs that failed, by stage",
		},
		[]string{"stage"},
	)

	// Sink Metrics
	SinkWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_sink_writes_total",
			Help: "Records written per output sink",
		},
		[]string{"sink"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookrec_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookrec_http_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bookrec_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordUserResult records the outcome of one user's pipeline run.
func RecordUserResult(candidates, neighbors, recommendations int, duration time.Duration) {
	UsersProcessed.Inc()
	RecommendationsEmitted.Add(float64(recommendations))
	if recommendations == 0 {
		EmptyResults.Inc()
	}
	CandidatesPerUser.Observe(float64(candidates))
	NeighborsPerUser.Observe(float64(neighbors))
	RecommendDuration.Observe(duration.Seconds())
}

// RecordBatch records a finished batch run.
func RecordBatch(duration time.Duration, err error) {
	BatchDuration.Set(duration.Seconds())
	if err != nil {
		BatchErrors.WithLabelValues("recommend").Inc()
		return
	}
	BatchLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
		return
	}
	CacheMisses.WithLabelValues(cache).Inc()
}
