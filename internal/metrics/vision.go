package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "refurnish"

// Vision provider Prometheus metrics.
var (
	VisionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_requests_total",
			Help:      "Total number of vision provider requests",
		},
		[]string{"provider", "task", "status"},
	)

	VisionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vision_request_duration_seconds",
			Help:      "Vision provider request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		},
		[]string{"provider", "task"},
	)

	VisionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_tokens_total",
			Help:      "Total vision tokens consumed",
		},
		[]string{"provider", "task", "type"},
	)

	VisionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_errors_total",
			Help:      "Total vision provider errors",
		},
		[]string{"provider", "task", "error_type"},
	)

	VisionRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_retries_total",
			Help:      "Retried vision requests after a transient failure",
		},
		[]string{"provider", "task"},
	)

	VisionBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vision_budget_tokens_remaining",
			Help:      "Remaining vision token budget",
		},
		[]string{"provider", "period"},
	)

	VisionCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_cache_total",
			Help:      "Vision answer cache hits and misses",
		},
		[]string{"task", "result"}, // "hit" / "miss"
	)
)

var visionMetricsRegistered bool

// RegisterVisionMetrics registers vision provider metrics. Must be called once from main.
func RegisterVisionMetrics() {
	if visionMetricsRegistered {
		return
	}
	prometheus.MustRegister(VisionRequestsTotal)
	prometheus.MustRegister(VisionRequestDuration)
	prometheus.MustRegister(VisionTokensTotal)
	prometheus.MustRegister(VisionErrorsTotal)
	prometheus.MustRegister(VisionRetriesTotal)
	prometheus.MustRegister(VisionBudgetTokensRemaining)
	prometheus.MustRegister(VisionCacheTotal)
	visionMetricsRegistered = true
}
