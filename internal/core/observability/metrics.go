// Package observability holds the service's Prometheus instruments. They live
// in the default registry; internal/metrics serves them.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream"},
	)

	loadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "load_failures_total",
			Help: "Boundary, data and detail loads that failed (status, transport or parse).",
		},
		[]string{"source"},
	)

	detailResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detail_results_total",
			Help: "Detail fetch results by outcome (ready, failed, stale).",
		},
		[]string{"outcome"},
	)

	fillRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fill_recomputes_total",
			Help: "Fill expression recomputations by trigger.",
		},
		[]string{"trigger"},
	)

	fillStops = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fill_expression_stops",
			Help:    "Number of identifier stops in a published fill expression.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	sessionsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "map_sessions_live",
			Help: "Map sessions currently held by the registry.",
		},
	)

	sessionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "map_sessions_closed_total",
			Help: "Closed map sessions by reason (explicit, evicted, shutdown).",
		},
		[]string{"reason"},
	)

	joinRowsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "join_rows_skipped_total",
			Help: "Data rows dropped while building join tables.",
		},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Cache results by outcome.",
		},
		[]string{"outcome"},
	)

	cacheOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis operations by op and result.",
		},
		[]string{"op", "result"},
	)

	cacheOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	refreshEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_events_total",
			Help: "Data refresh notifications by result (applied, duplicate, invalid, error).",
		},
		[]string{"result"},
	)

	selectionEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "selection_events_dropped_total",
			Help: "Selection analytics events dropped because the publish queue was full.",
		},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

func IncLoadFailure(source string) {
	loadFailures.WithLabelValues(source).Inc()
}

// outcome: ready | failed | stale
func IncDetailResult(outcome string) {
	detailResults.WithLabelValues(outcome).Inc()
}

func ObserveFillRecompute(trigger string, stops int) {
	fillRecomputes.WithLabelValues(trigger).Inc()
	fillStops.Observe(float64(stops))
}

func SetSessionsLive(n int) {
	sessionsLive.Set(float64(n))
}

func IncSessionClosed(reason string) {
	sessionsClosed.WithLabelValues(reason).Inc()
}

func AddJoinRowsSkipped(n int) {
	if n > 0 {
		joinRowsSkipped.Add(float64(n))
	}
}

func IncCacheHit() {
	cacheResults.WithLabelValues("hit").Inc()
}

func IncCacheMiss() {
	cacheResults.WithLabelValues("miss").Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOps.WithLabelValues(op, result).Inc()
	cacheOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func IncRefreshEvent(result string) {
	refreshEvents.WithLabelValues(result).Inc()
}

func IncSelectionEventDropped() {
	selectionEventsDropped.Inc()
}
