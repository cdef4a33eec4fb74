package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the structured logger (default slog.Default())
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records run, detector and span metrics
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithAuditLogger writes one audit record per run
func WithAuditLogger(a *AuditLogger) Option {
	return func(p *Pipeline) {
		p.audit = a
	}
}

// Pipeline runs a fixed set of detectors over text, merges their findings and
// applies the result. A Pipeline is immutable after construction and safe for
// concurrent use.
type Pipeline struct {
	config     Config
	detectors  []Detector
	priorities PriorityTable

	logger  *slog.Logger
	metrics *Metrics
	audit   *AuditLogger
}

// NewPipeline validates cfg and builds a pipeline over detectors. Detector ids
// must be unique; per-detector settings in cfg are matched by id.
func NewPipeline(cfg Config, detectors []Detector, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	priorities, err := cfg.PriorityTable()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(detectors))
	for i, d := range detectors {
		if d == nil {
			return nil, invalidConfig("detector %d is nil", i)
		}
		id := d.ID()
		if id == "" {
			return nil, invalidConfig("detector %d has an empty id", i)
		}
		if seen[id] {
			return nil, invalidConfig("duplicate detector id %q", id)
		}
		seen[id] = true
	}

	p := &Pipeline{
		config:     cfg,
		detectors:  append([]Detector(nil), detectors...),
		priorities: priorities,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the configuration the pipeline was built with
func (p *Pipeline) Config() Config {
	return p.config
}

// DetectorIDs returns the ids of the pipeline's detectors in run order
func (p *Pipeline) DetectorIDs() []string {
	ids := make([]string, len(p.detectors))
	for i, d := range p.detectors {
		ids[i] = d.ID()
	}
	return ids
}

// invocation is the outcome of one detector call
type invocation struct {
	detection Detection
	err       error
	timedOut  bool
	duration  time.Duration
}

// Redact runs every detector over text and returns the redacted copy. Detector
// failures and timeouts degrade the result instead of failing the run. A
// cancelled ctx or an invariant violation returns an error and no result.
func (p *Pipeline) Redact(ctx context.Context, text string) (*RedactionResult, error) {
	started := time.Now()
	runID := uuid.NewString()

	if err := ctx.Err(); err != nil {
		return nil, p.cancelled(runID, len(text), started, err)
	}

	if len(p.detectors) == 0 {
		p.logger.Warn("no detectors configured, text left unredacted",
			"run_id", runID,
		)
		return p.finish(&RedactionResult{
			RunID:              runID,
			RedactedText:       text,
			NoRedactionApplied: true,
		}, len(text), started), nil
	}

	results := make([]invocation, len(p.detectors))
	var g errgroup.Group
	if p.config.MaxConcurrency > 0 {
		g.SetLimit(p.config.MaxConcurrency)
	}
	for i, d := range p.detectors {
		g.Go(func() error {
			results[i] = p.invoke(ctx, d, text)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, p.cancelled(runID, len(text), started, err)
	}

	tokens := TokenRegions(text)
	reports := make([]DetectorReport, len(p.detectors))
	dropped := make(map[string]int)
	var candidates []Span
	contributed := 0

	for i, d := range p.detectors {
		id := d.ID()
		inv := results[i]
		report := DetectorReport{ID: id, Duration: inv.duration}

		if inv.err != nil {
			derr := &DetectorError{DetectorID: id, TimedOut: inv.timedOut, Err: inv.err}
			report.Status = StatusFailed
			if inv.timedOut {
				report.Status = StatusTimeout
			}
			report.Err = derr.Error()
			reports[i] = report
			p.metrics.RecordDetector(id, report.Status)
			p.logger.Warn("detector unavailable",
				"run_id", runID,
				"detector", id,
				"timed_out", inv.timedOut,
				"error", derr,
			)
			continue
		}

		contributed++
		report.Status = StatusOK
		report.SpanCount = len(inv.detection.Spans)

		limit := len(text)
		if sc, ok := scanLimit(inv.detection, len(text)); ok {
			limit = sc
			report.Status = StatusTruncated
			report.ScannedUpTo = sc
			p.logger.Warn("detector scanned a prefix only",
				"run_id", runID,
				"detector", id,
				"scanned_up_to", sc,
				"text_length", len(text),
			)
		}

		for _, span := range inv.detection.Spans {
			span.Source = id
			if reason := p.reject(span, text, limit, tokens); reason != "" {
				report.Dropped++
				dropped[reason]++
				continue
			}
			candidates = append(candidates, span)
		}

		reports[i] = report
		p.metrics.RecordDetector(id, report.Status)
	}

	for reason, n := range dropped {
		p.metrics.RecordDropped(reason, n)
	}

	if contributed == 0 {
		p.logger.Warn("every detector failed, text left unredacted",
			"run_id", runID,
			"detectors", len(p.detectors),
		)
		return p.finish(&RedactionResult{
			RunID:              runID,
			RedactedText:       text,
			Detectors:          reports,
			NoRedactionApplied: true,
		}, len(text), started), nil
	}

	merged := MergeSpans(candidates, p.priorities)
	p.metrics.RecordDropped(DropOverlap, len(candidates)-len(merged))

	redacted, err := ApplySpans(text, merged)
	if err != nil {
		p.logger.Error("redaction aborted",
			"run_id", runID,
			"error", err,
		)
		p.metrics.RecordRun("error", time.Since(started))
		p.auditFailure(runID, len(text), err)
		return nil, err
	}

	return p.finish(&RedactionResult{
		RunID:        runID,
		RedactedText: redacted,
		AppliedSpans: merged,
		Detectors:    reports,
	}, len(text), started), nil
}

// invoke runs one detector under its own timeout. A detector that ignores its
// context is abandoned at the deadline; its goroutine finishes into a buffered
// channel nobody reads.
func (p *Pipeline) invoke(ctx context.Context, d Detector, text string) invocation {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return invocation{err: err}
	}

	dctx, cancel := context.WithTimeout(ctx, p.config.TimeoutFor(d.ID()))
	defer cancel()

	done := make(chan invocation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invocation{err: fmt.Errorf("detector panicked: %v", r)}
			}
		}()
		detection, err := d.Detect(dctx, text)
		done <- invocation{detection: detection, err: err}
	}()

	var inv invocation
	select {
	case inv = <-done:
	case <-dctx.Done():
		select {
		case inv = <-done:
		default:
			inv = invocation{err: dctx.Err()}
		}
	}

	inv.duration = time.Since(started)
	if inv.err != nil && ctx.Err() == nil && errors.Is(dctx.Err(), context.DeadlineExceeded) {
		inv.timedOut = true
	}
	return inv
}

// scanLimit returns the truncation boundary of detection, if it has one
func scanLimit(detection Detection, textLen int) (int, bool) {
	sc := detection.ScannedUpTo
	if sc < 0 {
		sc = 0
	}
	if sc >= textLen {
		return textLen, false
	}
	if detection.Truncated || sc > 0 {
		return sc, true
	}
	return textLen, false
}

// reject returns the drop reason for span, or "" when it may be merged
func (p *Pipeline) reject(span Span, text string, limit int, tokens [][2]int) string {
	switch {
	case span.Validate(len(text)) != nil:
		return DropOutOfBounds
	case !span.Label.Valid():
		return DropUnknownCategory
	case !IsRuneBoundary(text, span.Start) || !IsRuneBoundary(text, span.End):
		return DropRuneBoundary
	case span.End > limit:
		return DropPastScan
	case math.IsNaN(span.Confidence) || span.Confidence < 0 || span.Confidence > 1:
		return DropInvalidConfidence
	case span.Confidence < p.config.ConfidenceThreshold:
		return DropLowConfidence
	case span.insideAny(tokens):
		return DropToken
	}
	return ""
}

// finish records metrics, logs and audits a completed run
func (p *Pipeline) finish(result *RedactionResult, inputLength int, started time.Time) *RedactionResult {
	outcome := "redacted"
	if result.NoRedactionApplied {
		outcome = "unredacted"
	}
	p.metrics.RecordRun(outcome, time.Since(started))
	p.metrics.RecordApplied(result.AppliedSpans)

	p.logger.Info("redaction complete",
		"run_id", result.RunID,
		"spans", len(result.AppliedSpans),
		"degraded", result.Degraded(),
		"no_redaction_applied", result.NoRedactionApplied,
		"duration", time.Since(started),
	)

	if p.audit != nil {
		if err := p.audit.LogResult(result, inputLength); err != nil {
			p.logger.Error("failed to write audit record",
				"run_id", result.RunID,
				"error", err,
			)
		}
	}
	return result
}

func (p *Pipeline) cancelled(runID string, inputLength int, started time.Time, cause error) error {
	err := fmt.Errorf("redaction run %s cancelled: %w", runID, cause)
	p.logger.Warn("redaction cancelled",
		"run_id", runID,
		"error", cause,
	)
	p.metrics.RecordRun("cancelled", time.Since(started))
	p.auditFailure(runID, inputLength, err)
	return err
}

func (p *Pipeline) auditFailure(runID string, inputLength int, cause error) {
	if p.audit == nil {
		return
	}
	if err := p.audit.LogFailure(runID, inputLength, cause); err != nil {
		p.logger.Error("failed to write audit record",
			"run_id", runID,
			"error", err,
		)
	}
}
