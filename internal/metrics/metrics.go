package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finadvisor_provider_attempts_total",
			Help: "Completion attempts by provider, model and outcome",
		},
		[]string{"provider", "model", "outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finadvisor_provider_latency_seconds",
			Help:    "Latency of a single completion attempt",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		},
		[]string{"provider"},
	)

	DispatchExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finadvisor_dispatch_exhausted_total",
			Help: "Dispatches where every provider in the chain failed",
		},
	)

	DuplicatesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finadvisor_duplicates_detected_total",
			Help: "Draft replies flagged as repeated advice, by match type",
		},
		[]string{"matched_on"},
	)

	Regenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finadvisor_regenerations_total",
			Help: "Regeneration calls after a duplicate verdict, by result",
		},
		[]string{"result"},
	)

	ContextTruncations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finadvisor_context_truncations_total",
			Help: "Context bundles cut to fit the character budget",
		},
	)

	AdviceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finadvisor_advice_duration_seconds",
			Help:    "End-to-end advisory request duration",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"intent", "failed"},
	)

	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finadvisor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)
