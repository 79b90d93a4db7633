// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chromaproxy_http_requests_total",
			Help: "HTTP requests by method, route and status class",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chromaproxy_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	VectorDBCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chromaproxy_vectordb_calls_total",
			Help: "Calls to the vector database by operation and outcome",
		},
		[]string{"op", "status"},
	)

	VectorDBCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chromaproxy_vectordb_call_duration_seconds",
			Help:    "Vector database call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// VectorDBUp is 1 while the last heartbeat succeeded.
	VectorDBUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chromaproxy_vectordb_up",
			Help: "Whether the last vector database heartbeat succeeded",
		},
	)

	JobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chromaproxy_job_runs_total",
			Help: "Scheduled job runs by job and outcome",
		},
		[]string{"job", "status"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chromaproxy_job_duration_seconds",
			Help:    "Scheduled job run time",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	RateLimitRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chromaproxy_ratelimit_rejected_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		VectorDBCallsTotal,
		VectorDBCallDuration,
		VectorDBUp,
		JobRunsTotal,
		JobDuration,
		RateLimitRejectedTotal,
	)
}
