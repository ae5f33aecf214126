package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LibrariesLoaded counts successful library loads since process start.
	LibrariesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kpal_libraries_loaded_total",
		Help: "The total number of plugin libraries loaded.",
	})

	// PeripheralsCreated counts successful peripheral instantiations.
	PeripheralsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kpal_peripherals_created_total",
		Help: "The total number of peripherals instantiated.",
	})

	// RequestCount counts attribute requests reaching the dispatcher, by
	// peripheral id, request kind, and outcome.
	RequestCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kpal_requests_total",
		Help: "The total number of attribute requests dispatched to executors.",
	}, []string{"peripheral_id", "kind", "status"})

	// RequestDuration observes end-to-end dispatch latency, from the
	// moment a request-handler goroutine sends to an executor's channel
	// until it receives a reply.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kpal_request_duration_seconds",
		Help:    "Time spent waiting for an executor to answer a request.",
		Buckets: prometheus.DefBuckets,
	}, []string{"peripheral_id", "kind"})
)

// Status label values for RequestCount.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusTimeout = "timeout"
)
