package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemoteOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remote_store_op_duration_seconds",
			Help:    "Remote store operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "status"},
	)

	WriteRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objective_write_retries_total",
			Help: "Total number of retried objective writes",
		},
		[]string{"attempt"},
	)

	ChangeFeedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_feed_events_total",
			Help: "Total number of change feed events received",
		},
		[]string{"event_type", "outcome"}, // outcome: applied, filtered, duplicate, malformed
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of non-fatal local cache failures",
		},
		[]string{"operation"},
	)

	SaveStatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "save_status_transitions_total",
			Help: "Total number of save status transitions",
		},
		[]string{"to"},
	)

	BootDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_boot_duration_seconds",
			Help:    "Sync engine boot sequence duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
	)

	SlowQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_queries_total",
			Help: "Total number of queries exceeding the slow query threshold",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)
)

// RecordRemoteOp records one remote store call.
func RecordRemoteOp(operation, status string, duration time.Duration) {
	RemoteOpDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// CountFeedEvent records one change feed delivery and its outcome.
func CountFeedEvent(eventType, outcome string) {
	ChangeFeedEvents.WithLabelValues(eventType, outcome).Inc()
}

// CountCacheError records a swallowed cache failure.
func CountCacheError(operation string) {
	CacheErrors.WithLabelValues(operation).Inc()
}

// CountSlowQuery records one query over the slow threshold.
func CountSlowQuery() {
	SlowQueries.Inc()
}
