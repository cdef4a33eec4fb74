package core

import "time"

// DetectorStatus summarizes how a detector invocation ended
type DetectorStatus string

const (
	// StatusOK means the detector scanned the whole text
	StatusOK DetectorStatus = "ok"

	// StatusFailed means the detector returned an error
	StatusFailed DetectorStatus = "failed"

	// StatusTimeout means the detector exceeded its timeout and was abandoned
	StatusTimeout DetectorStatus = "timeout"

	// StatusTruncated means the detector only scanned a prefix of the text
	StatusTruncated DetectorStatus = "truncated"
)

// Contributed reports whether the detector's findings reached the merger
func (s DetectorStatus) Contributed() bool {
	return s == StatusOK || s == StatusTruncated
}

// DetectorReport describes one detector's part in a redaction run
type DetectorReport struct {
	ID     string         `json:"id"`
	Status DetectorStatus `json:"status"`
	Err    string         `json:"error,omitempty"`

	// SpanCount is the number of spans the detector returned
	SpanCount int `json:"span_count"`

	// Dropped counts returned spans rejected before merging
	Dropped int `json:"dropped,omitempty"`

	// ScannedUpTo is the truncation boundary for StatusTruncated, possibly 0
	ScannedUpTo int `json:"scanned_up_to"`

	Duration time.Duration `json:"duration_ns"`
}

// RedactionResult is the outcome of one pipeline run. Only Text may cross the
// output boundary; AppliedSpans point into the original text and are kept for
// audit and tests.
//
// Runs over the same text and detector outputs are deterministic in
// RedactedText and AppliedSpans only. RunID and DetectorReport.Duration differ
// on every run.
type RedactionResult struct {
	RunID        string           `json:"run_id"`
	RedactedText string           `json:"-"`
	AppliedSpans []Span           `json:"applied_spans"`
	Detectors    []DetectorReport `json:"detectors"`

	// NoRedactionApplied is set when no detector ran or every detector failed,
	// in which case RedactedText is the original text.
	NoRedactionApplied bool `json:"no_redaction_applied"`
}

// Text returns the redacted text
func (r *RedactionResult) Text() string {
	return r.RedactedText
}

// MissingDetectors returns the ids of detectors that failed or timed out
func (r *RedactionResult) MissingDetectors() []string {
	var ids []string
	for _, d := range r.Detectors {
		if !d.Status.Contributed() {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

// Truncated returns the ids of detectors that only scanned part of the text
func (r *RedactionResult) Truncated() []string {
	var ids []string
	for _, d := range r.Detectors {
		if d.Status == StatusTruncated {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

// Degraded reports whether any detector was missing or truncated
func (r *RedactionResult) Degraded() bool {
	for _, d := range r.Detectors {
		if d.Status != StatusOK {
			return true
		}
	}
	return r.NoRedactionApplied
}

// SpanCounts tallies applied spans per category
func (r *RedactionResult) SpanCounts() map[Category]int {
	counts := make(map[Category]int)
	for _, s := range r.AppliedSpans {
		counts[s.Label]++
	}
	return counts
}
