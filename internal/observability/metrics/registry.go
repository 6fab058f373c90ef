// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics for the worker's query API.
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Source metrics track every adapter call made by the aggregator and the
// search orchestrator.
var (
	// SourceCallsTotal counts adapter calls by outcome (success, partial, failure)
	SourceCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vuln_source_calls_total",
			Help: "Total number of source adapter calls",
		},
		[]string{"source", "op", "status"},
	)

	// SourceRecordsTotal counts records returned by adapters
	SourceRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vuln_source_records_total",
			Help: "Total number of records returned by source adapters",
		},
		[]string{"source", "op"},
	)

	// SourceCallDuration measures the wall time of one adapter call
	SourceCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vuln_source_call_duration_seconds",
			Help:    "Duration of source adapter calls in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"source", "op"},
	)

	// SourcePageFailures counts page requests that failed after every retry
	SourcePageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vuln_source_page_failures_total",
			Help: "Total number of page requests abandoned after retries",
		},
		[]string{"source"},
	)

	// DuplicatesDropped counts records discarded by first-seen dedup
	DuplicatesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vuln_duplicates_dropped_total",
			Help: "Total number of records dropped as cross-source duplicates",
		},
	)

	// SearchesInFlight tracks adapter searches currently running
	SearchesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vuln_searches_in_flight",
			Help: "Number of adapter searches currently running",
		},
	)

	// SnapshotRecords is the size of the latest published snapshot
	SnapshotRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vuln_snapshot_records",
			Help: "Number of records in the latest published snapshot",
		},
	)
)

// PoC resolver metrics.
var (
	// PoCLookupsTotal counts resolver calls by cache result (hit, miss)
	PoCLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vuln_poc_lookups_total",
			Help: "Total number of PoC lookups by cache result",
		},
		[]string{"cache"},
	)

	// PoCQueriesTotal counts upstream repository searches by phase (exact, fallback)
	PoCQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vuln_poc_queries_total",
			Help: "Total number of upstream repository search queries",
		},
		[]string{"phase", "status"},
	)
)
