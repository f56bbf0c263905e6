package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes recorded per finished manage run.
const (
	OutcomeChanged      = "changed"
	OutcomeUnchanged    = "unchanged"
	OutcomeUnclassified = "unclassified"
	OutcomeFailed       = "failed"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "managectl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "managectl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	manageRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "managectl",
			Subsystem: "manage",
			Name:      "runs_total",
			Help:      "manage.py runs by subcommand and outcome.",
		},
		[]string{"command", "outcome"},
	)
	manageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "managectl",
			Subsystem: "manage",
			Name:      "run_duration_seconds",
			Help:      "manage.py run duration in seconds, environment preparation included.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"command", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, manageRuns, manageDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordRun counts one finished run. An empty command is recorded as "unknown".
func RecordRun(command, outcome string, duration time.Duration) {
	RegisterMetrics()
	if command == "" {
		command = "unknown"
	}
	manageRuns.WithLabelValues(command, outcome).Inc()
	manageDuration.WithLabelValues(command, outcome).Observe(duration.Seconds())
}
