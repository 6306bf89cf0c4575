package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "query_fetches_total",
		Help: "Total settled query calls by resource and outcome",
	}, []string{"resource", "outcome"})

	queryFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "query_fetch_duration_seconds",
		Help:    "Query call duration in seconds by resource",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"resource"})

	queryCacheReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "query_cache_reads_total",
		Help: "Cache reads by resource and result (fresh, stale, miss)",
	}, []string{"resource", "result"})

	queryInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "query_inflight",
		Help: "Number of query calls in flight",
	})

	queryPrefetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "query_prefetch_total",
		Help: "Prefetch requests by result (scheduled, joined, throttled, dropped, failed)",
	}, []string{"result"})

	queryInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "query_invalidations_total",
		Help: "Total query invalidations by resource",
	}, []string{"resource"})
)
