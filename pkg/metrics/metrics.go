// Package metrics is the reference for the Prometheus series exported by
// the students view and serves them over HTTP.
//
// Metrics are defined in the packages that record them (client, query,
// cache) and registered via promauto on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all series are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the collected series in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry,
		promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - students_api_requests_total{method, endpoint, status} (Counter): Upstream requests by endpoint and HTTP status or error class
//   - students_api_request_duration_seconds{method, endpoint} (Histogram): Upstream request duration
//   - students_api_errors_total{class} (Counter): Errors by class (client, server, network, cancelled)
//
// Retry Metrics (pkg/client, only with MaxRetries > 0):
//   - students_api_retries_total{error_class} (Counter): Retry attempts by error class
//   - students_api_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - students_api_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Query Metrics (pkg/query):
//   - query_fetches_total{resource, outcome} (Counter): Settled calls (success, failed, cancelled, superseded)
//   - query_fetch_duration_seconds{resource} (Histogram): Call duration
//   - query_cache_reads_total{resource, result} (Counter): Store reads (fresh, stale, miss)
//   - query_inflight (Gauge): Calls in flight
//   - query_prefetch_total{result} (Counter): Prefetches (scheduled, joined, throttled, dropped, failed)
//   - query_invalidations_total{resource} (Counter): Invalidations
//
// Cache Metrics (pkg/cache):
//   - cache_hits_total{layer} (Counter): Store hits by layer (memory, redis)
//   - cache_misses_total{layer} (Counter): Store misses by layer
//   - cache_entries{layer} (Gauge): Entries held by the memory store
//   - cache_errors_total{layer, operation} (Counter): Store operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(cache_hits_total[5m])) /
//   (sum(rate(cache_hits_total[5m])) + sum(rate(cache_misses_total[5m])))
//
//   # Page Failure Rate
//   sum(rate(query_fetches_total{resource="students",outcome="failed"}[5m]))
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(students_api_request_duration_seconds_bucket[5m]))
//
//   # Dropped Prefetches
//   rate(query_prefetch_total{result=~"dropped|throttled"}[5m])
