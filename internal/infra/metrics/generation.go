package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(generationCallsTotal, generationLatency) }

var generationCallsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "testgen_generation_calls_total",
		Help: "Total number of on-demand generation attempts, labeled by provider and outcome.",
	},
	[]string{"provider", "outcome"}, // ok, error
)

var generationLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "testgen_generation_latency_seconds",
		Help:    "Latency of single on-demand generation calls.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	},
	[]string{"provider"},
)

func ObserveGeneration(provider string, seconds float64, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	generationCallsTotal.WithLabelValues(norm(provider), outcome).Inc()
	generationLatency.WithLabelValues(norm(provider)).Observe(seconds)
}
