package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditLogLevel defines the verbosity of audit logging
type AuditLogLevel string

const (
	// AuditLogLevelMinimal logs only warnings and errors, with counts instead of spans
	AuditLogLevelMinimal AuditLogLevel = "minimal"

	// AuditLogLevelStandard logs every run with span offsets and categories
	AuditLogLevelStandard AuditLogLevel = "standard"

	// AuditLogLevelVerbose adds span sources, confidences and detector errors
	AuditLogLevelVerbose AuditLogLevel = "verbose"
)

// AuditLogSeverity defines the severity of audit log events
type AuditLogSeverity string

const (
	// SeverityInfo for normal operations
	SeverityInfo AuditLogSeverity = "info"

	// SeverityWarning for degraded runs
	SeverityWarning AuditLogSeverity = "warning"

	// SeverityError for aborted runs
	SeverityError AuditLogSeverity = "error"
)

// AuditSpan is the audit view of an applied span. It never carries the text
// the span covered.
type AuditSpan struct {
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Label      Category `json:"label"`
	Source     string   `json:"source,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
}

// AuditRecord is one JSONL audit entry
type AuditRecord struct {
	RunID     string           `json:"run_id"`
	Timestamp string           `json:"timestamp"`
	EventType string           `json:"event_type"`
	Severity  AuditLogSeverity `json:"severity"`

	// Input size in bytes; content is never recorded
	InputLength int `json:"input_length"`

	Detectors          []DetectorReport `json:"detectors,omitempty"`
	Spans              []AuditSpan      `json:"spans,omitempty"`
	SpanCounts         map[Category]int `json:"span_counts,omitempty"`
	NoRedactionApplied bool             `json:"no_redaction_applied"`

	Error    string            `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AuditConfig configures an AuditLogger
type AuditConfig struct {
	// Path of the JSONL file
	Path string

	// Level of detail recorded
	Level AuditLogLevel

	// RotationSize in bytes after which the log rotates (0 uses 100MB)
	RotationSize int64

	// RetentionDays keeps rotated logs this many days (0 uses 90)
	RetentionDays int

	// Console mirrors records to this writer when set
	Console io.Writer
}

// AuditLogger writes redaction audit records as JSON lines. It is safe for
// concurrent use.
type AuditLogger struct {
	mu           sync.Mutex
	logPath      string
	level        AuditLogLevel
	file         *os.File
	writer       io.Writer
	console      io.Writer
	rotationSize int64 // Size in bytes after which logs should rotate
	currentSize  int64
	logRetention int // Number of days to retain logs
}

// NewAuditLogger opens (or creates) the audit log described by cfg
func NewAuditLogger(cfg AuditConfig) (*AuditLogger, error) {
	if cfg.Path == "" {
		return nil, invalidConfig("audit log path is empty")
	}
	switch cfg.Level {
	case "":
		cfg.Level = AuditLogLevelStandard
	case AuditLogLevelMinimal, AuditLogLevelStandard, AuditLogLevelVerbose:
	default:
		return nil, invalidConfig("unknown audit level %q", cfg.Level)
	}
	if cfg.RotationSize <= 0 {
		cfg.RotationSize = 100 * 1024 * 1024 // 100MB default rotation size
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}

	l := &AuditLogger{
		logPath:      cfg.Path,
		level:        cfg.Level,
		console:      cfg.Console,
		rotationSize: cfg.RotationSize,
		logRetention: cfg.RetentionDays,
	}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

// open the log file for appending
func (l *AuditLogger) open() error {
	// Create log directory if it doesn't exist
	dir := filepath.Dir(l.logPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	// Get current file size for rotation tracking
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to get log file info: %w", err)
	}

	l.file = f
	l.currentSize = info.Size()
	if l.console != nil {
		l.writer = io.MultiWriter(f, l.console)
	} else {
		l.writer = f
	}
	return nil
}

// renameFile is replaced in tests to make rotation fail
var renameFile = os.Rename

// maybeRotateLog checks if log rotation is needed and performs it if so. A
// failed rename reopens the current file so later records are still written.
func (l *AuditLogger) maybeRotateLog() error {
	if l.currentSize < l.rotationSize {
		return nil
	}

	l.file.Close()
	l.file = nil

	timestamp := time.Now().Format("20060102-150405.000000000")
	rotatedPath := fmt.Sprintf("%s.%s", l.logPath, timestamp)
	if err := renameFile(l.logPath, rotatedPath); err != nil {
		if openErr := l.open(); openErr != nil {
			err = errors.Join(err, openErr)
		}
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	l.cleanupOldLogs()

	return l.open()
}

// cleanupOldLogs removes rotated files older than the retention period
func (l *AuditLogger) cleanupOldLogs() {
	dir := filepath.Dir(l.logPath)
	base := filepath.Base(l.logPath)

	cutoffTime := time.Now().AddDate(0, 0, -l.logRetention)

	files, err := filepath.Glob(filepath.Join(dir, base+".*"))
	if err != nil {
		return
	}

	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoffTime) {
			os.Remove(file)
		}
	}
}

// Log writes a record, applying the configured level
func (l *AuditLogger) Log(record AuditRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("audit logger is closed")
	}

	if l.level == AuditLogLevelMinimal && record.Severity == SeverityInfo {
		// Skip routine runs in minimal mode
		return nil
	}

	rotateErr := l.maybeRotateLog()
	if l.file == nil {
		return rotateErr
	}

	if record.Timestamp == "" {
		record.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	entry, err := json.Marshal(l.filter(record))
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	n, err := fmt.Fprintln(l.writer, string(entry))
	if err != nil {
		return fmt.Errorf("failed to write to log: %w", err)
	}
	l.currentSize += int64(n)

	return rotateErr
}

// filter strips detail the configured level does not record
func (l *AuditLogger) filter(record AuditRecord) AuditRecord {
	switch l.level {
	case AuditLogLevelMinimal:
		record.Spans = nil
		record.Detectors = stripDetectorErrors(record.Detectors)
	case AuditLogLevelStandard:
		spans := make([]AuditSpan, len(record.Spans))
		for i, s := range record.Spans {
			spans[i] = AuditSpan{Start: s.Start, End: s.End, Label: s.Label}
		}
		record.Spans = spans
		record.Detectors = stripDetectorErrors(record.Detectors)
	}
	return record
}

func stripDetectorErrors(reports []DetectorReport) []DetectorReport {
	out := make([]DetectorReport, len(reports))
	for i, r := range reports {
		r.Err = ""
		out[i] = r
	}
	return out
}

// LogResult records a finished pipeline run
func (l *AuditLogger) LogResult(result *RedactionResult, inputLength int) error {
	severity := SeverityInfo
	if result.Degraded() {
		severity = SeverityWarning
	}

	spans := make([]AuditSpan, len(result.AppliedSpans))
	for i, s := range result.AppliedSpans {
		spans[i] = AuditSpan{
			Start:      s.Start,
			End:        s.End,
			Label:      s.Label,
			Source:     s.Source,
			Confidence: s.Confidence,
		}
	}

	return l.Log(AuditRecord{
		RunID:              result.RunID,
		EventType:          "redaction",
		Severity:           severity,
		InputLength:        inputLength,
		Detectors:          result.Detectors,
		Spans:              spans,
		SpanCounts:         result.SpanCounts(),
		NoRedactionApplied: result.NoRedactionApplied,
	})
}

// LogFailure records a run that was aborted without a result
func (l *AuditLogger) LogFailure(runID string, inputLength int, err error) error {
	return l.Log(AuditRecord{
		RunID:       runID,
		EventType:   "redaction_aborted",
		Severity:    SeverityError,
		InputLength: inputLength,
		Error:       err.Error(),
	})
}

// Close closes the underlying log file
func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
