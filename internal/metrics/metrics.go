// Package metrics exposes Prometheus counters for the generation layer.
//
// A nil *Recorder is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mythos/internal/retry"
)

const namespace = "mythos"

// Recorder holds the generation and HTTP metrics.
type Recorder struct {
	// Generation endpoint attempts, by failure class
	AttemptsTotal *prometheus.CounterVec
	// Backoff sleeps before a retry
	BackoffSeconds prometheus.Histogram

	// Terminal generation outcomes
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec

	// Parser strategy hits
	ParseTotal *prometheus.CounterVec

	// HTTP surface
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates a Recorder registered with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		AttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "attempt_failures_total",
				Help:      "Failed generation attempts by classification",
			},
			[]string{"class"},
		),
		BackoffSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "backoff_seconds",
				Help:      "Delay slept before retrying an overloaded call",
				Buckets:   []float64{.1, .25, .5, 1, 2, 4, 8, 16, 32},
			},
		),
		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "requests_total",
				Help:      "Generation requests by intent and outcome",
			},
			[]string{"intent", "outcome", "reason"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "duration_seconds",
				Help:      "Generation request duration in seconds, including retries",
				Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"intent"},
		),
		ParseTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "parser",
				Name:      "records_total",
				Help:      "Parsed records by schema and the strategy that produced them",
			},
			[]string{"schema", "strategy"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveAttempt counts a failed attempt.
func (r *Recorder) ObserveAttempt(class retry.Class, err error) {
	if r == nil {
		return
	}
	r.AttemptsTotal.WithLabelValues(class.String()).Inc()
}

// ObserveBackoff records a retry delay.
func (r *Recorder) ObserveBackoff(d time.Duration) {
	if r == nil {
		return
	}
	r.BackoffSeconds.Observe(d.Seconds())
}

// ObserveParse counts the strategy that produced a record.
func (r *Recorder) ObserveParse(schema, strategy string) {
	if r == nil {
		return
	}
	r.ParseTotal.WithLabelValues(schema, strategy).Inc()
}

// ObserveGeneration records the terminal state of one generation request.
// outcome is "success", "fallback" or "error". reason is empty unless the
// request fell back.
func (r *Recorder) ObserveGeneration(intent, outcome, reason string, d time.Duration) {
	if r == nil {
		return
	}
	r.GenerationsTotal.WithLabelValues(intent, outcome, reason).Inc()
	r.GenerationDuration.WithLabelValues(intent).Observe(d.Seconds())
}

// ObserveHTTP records one served request. route is the matched pattern, not the raw path.
func (r *Recorder) ObserveHTTP(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
