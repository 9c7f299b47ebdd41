package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the questionnaire server
type Metrics struct {
	sessionsStarted prometheus.Counter
	submissions     *prometheus.CounterVec
	scoringDuration prometheus.Histogram
	exports         *prometheus.CounterVec
	classifications *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg and panics on conflicts.
// Tests pass a fresh prometheus.NewRegistry().
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "compass",
			Name:      "sessions_started_total",
			Help:      "Questionnaire sessions created.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compass",
			Name:      "submissions_total",
			Help:      "Submitted questionnaires by outcome.",
		}, []string{"outcome"}),
		scoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "compass",
			Name:      "assessment_duration_seconds",
			Help:      "Time spent scoring, exporting and narrating one submission.",
			Buckets:   prometheus.DefBuckets,
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compass",
			Name:      "exports_total",
			Help:      "Best-effort row exports by backend and status.",
		}, []string{"backend", "status"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compass",
			Name:      "classifications_total",
			Help:      "Scored submissions by dominant orientation.",
		}, []string{"dominant"}),
	}

	reg.MustRegister(m.sessionsStarted, m.submissions, m.scoringDuration, m.exports, m.classifications)
	return m
}

// SessionStarted counts a new session
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

// ObserveSubmission records the outcome and duration of one submission
func (m *Metrics) ObserveSubmission(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	if outcome == outcomeScored {
		m.scoringDuration.Observe(duration.Seconds())
	}
}

// ObserveExport records one export outcome
func (m *Metrics) ObserveExport(backend string, ok bool) {
	if m == nil {
		return
	}
	status := "failed"
	if ok {
		status = "ok"
	}
	m.exports.WithLabelValues(backend, status).Inc()
}

// ObserveClassification counts a dominant orientation
func (m *Metrics) ObserveClassification(dominant string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(dominant).Inc()
}
