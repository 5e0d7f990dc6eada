package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the decision counters and latencies exported on /metrics
type Metrics struct {
	// Transactions by verdict outcome (clean, suspicious, unassessed)
	Transactions *prometheus.CounterVec

	FlaggedCases prometheus.Counter

	// Image uploads by resulting image state
	ImageUploads *prometheus.CounterVec

	// Decision latency by operation (transaction, upload, registration)
	DecisionDuration *prometheus.HistogramVec
}

// New registers all metrics with reg. Passing nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subsidy_transactions_total",
			Help: "Dealer transactions by fraud verdict outcome",
		}, []string{"outcome"}),

		FlaggedCases: factory.NewCounter(prometheus.CounterOpts{
			Name: "subsidy_flagged_cases_total",
			Help: "Flagged cases created for suspicious transactions",
		}),

		ImageUploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subsidy_image_uploads_total",
			Help: "Image uploads by resulting farmer image state",
		}, []string{"state"}),

		DecisionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subsidy_decision_duration_seconds",
			Help:    "Duration of decision operations including persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// IncrementTransaction records one transaction verdict
func (m *Metrics) IncrementTransaction(outcome string) {
	if m != nil {
		m.Transactions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementFlaggedCase() {
	if m != nil {
		m.FlaggedCases.Inc()
	}
}

// IncrementImageUpload records the image state an upload produced
func (m *Metrics) IncrementImageUpload(state string) {
	if m != nil {
		m.ImageUploads.WithLabelValues(state).Inc()
	}
}

// ObserveDecision records the duration of an operation started at start
func (m *Metrics) ObserveDecision(operation string, start time.Time) {
	if m != nil {
		m.DecisionDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
