package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
type Metrics struct {
	// Registration outcomes: confirmed, rejected, submit_failed,
	// confirmation_timeout, invalid_input
	RegistrationOutcome *prometheus.CounterVec

	// Classifier call latency and fallback count
	ClassifierLatency  prometheus.Histogram
	ClassifierFallback prometheus.Counter

	// Ledger write latency (submit through confirmation)
	SubmitLatency prometheus.Histogram

	// Read-path counters
	Checks   *prometheus.CounterVec
	Resolves *prometheus.CounterVec
}

// New creates a Metrics instance with all registration module metrics registered.
func New() *Metrics {
	return &Metrics{
		RegistrationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "neuradns_registrations_total",
			Help: "Total registration attempts by outcome",
		}, []string{"outcome"}),

		ClassifierLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "neuradns_classifier_duration_seconds",
			Help:    "Duration of classifier calls including fallback decisions",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		ClassifierFallback: promauto.NewCounter(prometheus.CounterOpts{
			Name: "neuradns_classifier_fallbacks_total",
			Help: "Total classifier calls that degraded to the fallback verdict",
		}),

		SubmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "neuradns_ledger_submit_duration_seconds",
			Help:    "Duration of ledger submission through confirmation",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}),

		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "neuradns_checks_total",
			Help: "Total check operations by result",
		}, []string{"result"}), // result: "exists", "available"

		Resolves: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "neuradns_resolves_total",
			Help: "Total resolve operations by result",
		}, []string{"result"}), // result: "found", "not_found"
	}
}

// IncrementOutcome records a registration outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.RegistrationOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveClassifier records a classifier call duration and whether it fell back.
func (m *Metrics) ObserveClassifier(d time.Duration, fallback bool) {
	if m != nil {
		m.ClassifierLatency.Observe(d.Seconds())
		if fallback {
			m.ClassifierFallback.Inc()
		}
	}
}

// ObserveSubmit records a ledger write duration.
func (m *Metrics) ObserveSubmit(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}

// IncrementCheck records a check result.
func (m *Metrics) IncrementCheck(result string) {
	if m != nil {
		m.Checks.WithLabelValues(result).Inc()
	}
}

// IncrementResolve records a resolve result.
func (m *Metrics) IncrementResolve(result string) {
	if m != nil {
		m.Resolves.WithLabelValues(result).Inc()
	}
}
