// Package metrics defines Prometheus metrics for txlink.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "txlink_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txlink_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txlink_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	LedgerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txlink_ledger_requests_total",
			Help: "Remote ledger API requests by outcome",
		},
		[]string{"outcome"},
	)

	LedgerRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "txlink_ledger_request_duration_seconds",
			Help:    "Remote ledger API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LedgerRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "txlink_ledger_retries_total",
			Help: "Retried remote ledger API requests",
		},
	)

	LedgerRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "txlink_ledger_rate_limited_total",
			Help: "Remote ledger API rate-limit rejections",
		},
	)

	LedgerCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "txlink_ledger_cache_hits_total",
			Help: "Transaction lookups served from the response cache",
		},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txlink_searches_total",
			Help: "Finished connection searches by outcome",
		},
		[]string{"outcome"},
	)

	NodesExpanded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "txlink_search_nodes_expanded_total",
			Help: "Addresses expanded across all searches",
		},
	)

	SearchQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "txlink_search_queue_depth",
			Help: "Current async search queue depth",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "txlink_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		LedgerRequestsTotal, LedgerRequestDuration, LedgerRetries,
		LedgerRateLimited, LedgerCacheHits,
		SearchesTotal, NodesExpanded, SearchQueueDepth, WSConnections,
	)
}
