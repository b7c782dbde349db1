package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(poolClaimsTotal, poolClaimedItemsTotal, poolDeficitItemsTotal) }

var poolClaimsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "testgen_pool_claims_total",
		Help: "Total number of pool claim calls, labeled by section and result (full, partial, empty).",
	},
	[]string{"section", "result"},
)

var poolClaimedItemsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "testgen_pool_claimed_items_total",
		Help: "Total number of items served from the shared pool.",
	},
	[]string{"section"},
)

var poolDeficitItemsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "testgen_pool_deficit_items_total",
		Help: "Total number of items the pool could not cover, i.e. sent to on-demand generation.",
	},
	[]string{"section"},
)

func ObservePoolClaim(section string, claimed, requested int) {
	result := "full"
	switch {
	case claimed == 0:
		result = "empty"
	case claimed < requested:
		result = "partial"
	}
	poolClaimsTotal.WithLabelValues(norm(section), result).Inc()
	poolClaimedItemsTotal.WithLabelValues(norm(section)).Add(float64(claimed))
	if deficit := requested - claimed; deficit > 0 {
		poolDeficitItemsTotal.WithLabelValues(norm(section)).Add(float64(deficit))
	}
}
