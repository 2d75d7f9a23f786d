package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ACISRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swti_acis_requests_total",
			Help: "Total upstream ACIS API requests",
		},
		[]string{"status"},
	)

	ACISRequestLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swti_acis_request_latency_seconds",
			Help:    "ACIS API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swti_pipeline_runs_total",
			Help: "Total index pipeline runs",
		},
		[]string{"status"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swti_cache_requests_total",
			Help: "Total daily-index cache lookups",
		},
		[]string{"result"},
	)
)
