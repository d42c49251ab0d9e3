package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	// Validator call latencies by kind and source
	ValidatorLatency *prometheus.HistogramVec

	// Validation outcomes by kind and status
	ValidationOutcome *prometheus.CounterVec

	// Step transitions by from/to step
	StepTransition *prometheus.CounterVec

	// Final decisions by decision value
	FinalDecision *prometheus.CounterVec

	// Workflows currently sitting in manual review
	ManualReviewQueue prometheus.Gauge

	// Workflows marked stalled, by the step they stalled on
	StepStalled *prometheus.CounterVec

	// Full Advance latency including validator calls and persistence
	AdvanceLatency prometheus.Histogram
}

// New creates a Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		ValidatorLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "confia_verification_validator_duration_seconds",
			Help:    "Duration of validator calls by kind and source",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind", "source"}),

		ValidationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "confia_verification_outcomes_total",
			Help: "Total validation outcomes by kind and status",
		}, []string{"kind", "status"}),

		StepTransition: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "confia_verification_step_transitions_total",
			Help: "Total workflow step transitions",
		}, []string{"from", "to"}),

		FinalDecision: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "confia_verification_decisions_total",
			Help: "Total final verification decisions",
		}, []string{"decision"}),

		ManualReviewQueue: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "confia_verification_manual_review_queue",
			Help: "Number of workflows currently awaiting manual review",
		}),

		StepStalled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "confia_verification_step_stalls_total",
			Help: "Total workflows marked stalled, by step",
		}, []string{"step"}),

		AdvanceLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "confia_verification_advance_duration_seconds",
			Help:    "Duration of workflow advance operations",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// ObserveValidatorLatency records the duration of one validator call.
func (m *Metrics) ObserveValidatorLatency(kind, source string, d time.Duration) {
	if m != nil {
		m.ValidatorLatency.WithLabelValues(kind, source).Observe(d.Seconds())
	}
}

// IncrementOutcome records a validation outcome.
func (m *Metrics) IncrementOutcome(kind, status string) {
	if m != nil {
		m.ValidationOutcome.WithLabelValues(kind, status).Inc()
	}
}

// IncrementTransition records a step transition.
func (m *Metrics) IncrementTransition(from, to string) {
	if m != nil {
		m.StepTransition.WithLabelValues(from, to).Inc()
	}
}

// IncrementDecision records a final decision.
func (m *Metrics) IncrementDecision(decision string) {
	if m != nil {
		m.FinalDecision.WithLabelValues(decision).Inc()
	}
}

// IncrementStall records a workflow stalling on a step.
func (m *Metrics) IncrementStall(step string) {
	if m != nil {
		m.StepStalled.WithLabelValues(step).Inc()
	}
}

// AdjustManualReviewQueue moves the manual review gauge by delta.
func (m *Metrics) AdjustManualReviewQueue(delta float64) {
	if m != nil {
		m.ManualReviewQueue.Add(delta)
	}
}

// ObserveAdvanceLatency records the total advance duration.
func (m *Metrics) ObserveAdvanceLatency(d time.Duration) {
	if m != nil {
		m.AdvanceLatency.Observe(d.Seconds())
	}
}
