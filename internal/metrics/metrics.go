package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Tasks
	TaskOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_operations_total",
			Help: "Successful task operations",
		},
		[]string{"op"}, // create|update|delete|complete
	)
	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Store calls that failed with a dependency error",
		},
		[]string{"op"},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	WorkerDroppedJobs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worker_dropped_jobs_total",
			Help: "Jobs dropped because the worker queue was full or stopped",
		},
	)

	initOnce sync.Once
)

// Handler serves /metrics.
var Handler = promhttp.Handler

// Init registers every collector with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal, RequestLatency, TaskOperations, StoreErrors, WorkerQueueDepth, WorkerDroppedJobs)
	})
}
