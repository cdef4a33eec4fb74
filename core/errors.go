package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDetectorUnavailable marks a detector that failed or timed out. It is
	// absorbed by the pipeline and reported per detector.
	ErrDetectorUnavailable = errors.New("detector unavailable")

	// ErrInvariantViolation marks overlapping or out-of-bounds spans reaching
	// the redactor. It always aborts the run.
	ErrInvariantViolation = errors.New("redaction invariant violated")

	// ErrInvalidConfig marks a configuration rejected at construction time
	ErrInvalidConfig = errors.New("invalid redaction config")
)

// DetectorError wraps a failure of a single detector invocation
type DetectorError struct {
	DetectorID string
	TimedOut   bool
	Err        error
}

func (e *DetectorError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("detector %s timed out: %v", e.DetectorID, e.Err)
	}
	return fmt.Sprintf("detector %s failed: %v", e.DetectorID, e.Err)
}

// Unwrap exposes the underlying cause
func (e *DetectorError) Unwrap() error {
	return e.Err
}

// Is makes every DetectorError match ErrDetectorUnavailable
func (e *DetectorError) Is(target error) bool {
	return target == ErrDetectorUnavailable
}

// InvariantViolation reports a programming error: spans handed to the redactor
// were unordered, overlapping or out of bounds.
type InvariantViolation struct {
	Reason string
	Index  int
	Span   Span
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("%v: %s (span %d: %s)", ErrInvariantViolation, e.Reason, e.Index, e.Span)
}

// Unwrap returns ErrInvariantViolation so callers can use errors.Is
func (e *InvariantViolation) Unwrap() error {
	return ErrInvariantViolation
}

func invalidConfig(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
