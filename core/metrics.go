package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons recorded by the pipeline
const (
	DropOutOfBounds       = "out_of_bounds"
	DropUnknownCategory   = "unknown_category"
	DropRuneBoundary      = "rune_boundary"
	DropPastScan          = "past_scan_boundary"
	DropInvalidConfidence = "invalid_confidence"
	DropLowConfidence     = "low_confidence"
	DropToken             = "redaction_token"
	DropOverlap           = "overlap"
)

// Metrics tracks redaction pipeline activity.
//
// Metrics:
//   - redact_runs_total: pipeline runs by outcome
//   - redact_detector_invocations_total: detector invocations by detector and status
//   - redact_spans_applied_total: spans replaced by category
//   - redact_spans_dropped_total: spans rejected before or during merging by reason
//   - redact_run_duration_seconds: end-to-end pipeline run duration
type Metrics struct {
	runsTotal          *prometheus.CounterVec
	invocationsTotal   *prometheus.CounterVec
	spansAppliedTotal  *prometheus.CounterVec
	spansDroppedTotal  *prometheus.CounterVec
	runDurationSeconds prometheus.Histogram
}

// NewMetrics creates pipeline metrics and registers them with registry.
// A nil registry gets a fresh private one.
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redact",
				Name:      "runs_total",
				Help:      "Total number of redaction runs by outcome",
			},
			[]string{"outcome"},
		),

		invocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redact",
				Name:      "detector_invocations_total",
				Help:      "Total number of detector invocations by detector and status",
			},
			[]string{"detector", "status"},
		),

		spansAppliedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redact",
				Name:      "spans_applied_total",
				Help:      "Total number of spans replaced by category",
			},
			[]string{"category"},
		),

		spansDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "redact",
				Name:      "spans_dropped_total",
				Help:      "Total number of detector spans rejected by reason",
			},
			[]string{"reason"},
		),

		runDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "redact",
				Name:      "run_duration_seconds",
				Help:      "Duration of redaction runs in seconds",
				// Pattern-only runs take microseconds, remote detectors seconds
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
			},
		),
	}

	collectors := []prometheus.Collector{
		m.runsTotal,
		m.invocationsTotal,
		m.spansAppliedTotal,
		m.spansDroppedTotal,
		m.runDurationSeconds,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordRun records a finished run. outcome is "redacted", "unredacted",
// "cancelled" or "error".
func (m *Metrics) RecordRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDurationSeconds.Observe(duration.Seconds())
}

// RecordDetector records one detector invocation
func (m *Metrics) RecordDetector(detector string, status DetectorStatus) {
	if m == nil {
		return
	}
	m.invocationsTotal.WithLabelValues(detector, string(status)).Inc()
}

// RecordApplied records the spans written by the redactor
func (m *Metrics) RecordApplied(spans []Span) {
	if m == nil {
		return
	}
	for _, s := range spans {
		m.spansAppliedTotal.WithLabelValues(string(s.Label)).Inc()
	}
}

// RecordDropped records n spans rejected for reason
func (m *Metrics) RecordDropped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.spansDroppedTotal.WithLabelValues(reason).Add(float64(n))
}
