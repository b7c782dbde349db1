package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsFinishedTotal, sectionsFinishedTotal, sectionDuration) }

var jobsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "testgen_jobs_finished_total",
		Help: "Total number of generation jobs that reached a terminal state, labeled by status.",
	},
	[]string{"status"}, // completed, partial, failed, cancelled
)

var sectionsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "testgen_sections_finished_total",
		Help: "Total number of section tasks that reached a terminal state, labeled by section and status.",
	},
	[]string{"section", "status"},
)

var sectionDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "testgen_section_duration_seconds",
		Help:    "Wall time of one section task from start to terminal state.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	},
	[]string{"section"},
)

func IncJobFinished(status string) {
	jobsFinishedTotal.WithLabelValues(norm(status)).Inc()
}

func IncSectionFinished(section, status string) {
	sectionsFinishedTotal.WithLabelValues(norm(section), norm(status)).Inc()
}

func ObserveSectionDuration(section string, seconds float64) {
	sectionDuration.WithLabelValues(norm(section)).Observe(seconds)
}
