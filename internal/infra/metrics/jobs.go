package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		jobRunsTotal,
		invariantViolationsTotal,
		eventsPublishedTotal,
	)
}

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_job_runs_total",
			Help: "Background job ticks, labeled by job and status.",
		},
		[]string{"job", "status"}, // job: 'sweeper', 'reconciler'; status: 'ok', 'error', 'skipped'
	)

	invariantViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invariant_violations_total",
			Help: "Consistency violations found by the periodic check.",
		},
		[]string{"rule"},
	)

	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Lifecycle events handed to a sink, by sink and status.",
		},
		[]string{"sink", "status"},
	)
)

func IncJobRun(job, status string) {
	jobRunsTotal.WithLabelValues(norm(job), norm(status)).Inc()
}

func IncInvariantViolation(rule string) {
	invariantViolationsTotal.WithLabelValues(norm(rule)).Inc()
}

func IncEventPublished(sink, status string) {
	eventsPublishedTotal.WithLabelValues(norm(sink), norm(status)).Inc()
}
