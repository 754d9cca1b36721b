package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records durations and outcomes of checkout stages.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided
// registerer. A nil registerer yields a no-op collector.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_stage_duration_seconds",
		Help:    "Duration of checkout stages in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_stage_outcomes_total",
		Help: "Checkout stage completions by outcome.",
	}, []string{"stage", "outcome"})
	reg.MustRegister(duration, outcomes)
	return &CheckoutMetrics{
		duration: duration,
		outcomes: outcomes,
	}
}

// ObserveStage records one completed stage run.
func (m *CheckoutMetrics) ObserveStage(stage string, d time.Duration, ok bool) {
	if m == nil || m.duration == nil {
		return
	}
	label := stageLabel(stage)
	m.duration.WithLabelValues(label).Observe(d.Seconds())
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.outcomes.WithLabelValues(label, outcome).Inc()
}

func stageLabel(stage string) string {
	if stage == "" {
		return "unknown"
	}
	return stage
}
