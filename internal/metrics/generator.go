package metrics

import "github.com/prometheus/client_golang/prometheus"

// Text generator Prometheus metrics.
var (
	GeneratorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "segmatch",
			Name:      "generator_requests_total",
			Help:      "Total number of text generation requests",
		},
		[]string{"provider", "model", "status"},
	)

	GeneratorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "segmatch",
			Name:      "generator_request_duration_seconds",
			Help:      "Text generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 15, 20, 30},
		},
		[]string{"provider", "model"},
	)

	GeneratorTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "segmatch",
			Name:      "generator_tokens_total",
			Help:      "Total generator tokens consumed",
		},
		[]string{"provider", "model", "type"}, // "prompt" / "completion"
	)

	GeneratorErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "segmatch",
			Name:      "generator_errors_total",
			Help:      "Total text generation errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	GeneratorBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "segmatch",
			Name:      "generator_budget_tokens_remaining",
			Help:      "Remaining generator token budget",
		},
		[]string{"provider", "period"},
	)
)

var genMetricsRegistered bool

// RegisterGeneratorMetrics registers generator metrics. Must be called once from main.
func RegisterGeneratorMetrics() {
	if genMetricsRegistered {
		return
	}
	prometheus.MustRegister(GeneratorRequestsTotal)
	prometheus.MustRegister(GeneratorRequestDuration)
	prometheus.MustRegister(GeneratorTokensTotal)
	prometheus.MustRegister(GeneratorErrorsTotal)
	prometheus.MustRegister(GeneratorBudgetTokensRemaining)
	genMetricsRegistered = true
}
