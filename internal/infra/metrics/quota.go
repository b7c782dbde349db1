package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(quotaRejectionsTotal, quotaCommittedTotal) }

var quotaRejectionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "testgen_quota_rejections_total",
		Help: "Total number of requests rejected pre-flight by the daily quota check.",
	},
	[]string{"section", "role"},
)

var quotaCommittedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "testgen_quota_committed_total",
		Help: "Total number of quota units committed after successful generation.",
	},
	[]string{"section"},
)

func IncQuotaRejection(section, role string) {
	quotaRejectionsTotal.WithLabelValues(norm(section), norm(role)).Inc()
}

func AddQuotaCommitted(section string, n int) {
	quotaCommittedTotal.WithLabelValues(norm(section)).Add(float64(n))
}
