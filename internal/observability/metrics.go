package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes used as the "outcome" label.
const (
	OutcomeSuccess    = "success"
	OutcomeConnection = "connection_error"
	OutcomeBusy       = "in_progress"
	OutcomeFailed     = "failed"
)

var (
	automationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_runs_total",
			Help: "Tenant automation runs by outcome.",
		},
		[]string{"outcome"},
	)

	automationJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_jobs_total",
			Help: "Dispatch jobs by result (queued, sent, failed, skipped).",
		},
		[]string{"result"},
	)

	automationRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "automation_run_duration_seconds",
			Help: "Wall time of one tenant run, including paced dispatch.",
			// runs pace sends 15s apart, so the tail is long
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	shortenerFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shortener_fallbacks_total",
			Help: "Invoice links sent unshortened because the shortener failed.",
		},
	)
)

func init() {
	prometheus.MustRegister(automationRuns, automationJobs, automationRunDuration, shortenerFallbacks)
}

// ObserveRun records a finished tenant run.
func ObserveRun(outcome string, d time.Duration) {
	automationRuns.WithLabelValues(outcome).Inc()
	automationRunDuration.Observe(d.Seconds())
}

// AddJobs counts n jobs with the given result.
func AddJobs(result string, n int) {
	if n <= 0 {
		return
	}
	automationJobs.WithLabelValues(result).Add(float64(n))
}

// ShortenerFallback counts one unshortened link.
func ShortenerFallback(string) { shortenerFallbacks.Inc() }
