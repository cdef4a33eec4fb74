package core

import "context"

// Detection is the output of a single detector invocation
type Detection struct {
	// Spans found in the scanned portion of the text
	Spans []Span

	// ScannedUpTo is the byte offset up to which the detector actually looked.
	// It is only a boundary when Truncated is set, or when it is positive and
	// below len(text); a zero Detection means the whole text was scanned.
	ScannedUpTo int

	// Truncated reports that only text[:ScannedUpTo] was inspected, which may
	// be nothing at all
	Truncated bool
}

// Detector finds sensitive spans in text. Implementations must not mutate the
// input, must return offsets into the exact string they were given, and must be
// safe for concurrent use.
type Detector interface {
	// ID returns the stable identifier used in span sources and audit records
	ID() string

	// Detect scans text and returns the spans it found
	Detect(ctx context.Context, text string) (Detection, error)
}

// DetectorFunc adapts a plain function into a Detector
type DetectorFunc struct {
	Name string
	Fn   func(ctx context.Context, text string) (Detection, error)
}

// ID returns the detector name
func (d DetectorFunc) ID() string {
	return d.Name
}

// Detect calls the wrapped function
func (d DetectorFunc) Detect(ctx context.Context, text string) (Detection, error) {
	return d.Fn(ctx, text)
}
