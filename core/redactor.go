package core

import "strings"

// ApplySpans replaces every span of text with its category token in a single
// left-to-right pass. spans must be sorted ascending, mutually disjoint and in
// bounds; anything else is an InvariantViolation and no text is produced.
func ApplySpans(text string, spans []Span) (string, error) {
	if err := checkApplicable(text, spans); err != nil {
		return "", err
	}
	if len(spans) == 0 {
		return text, nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	lastIndex := 0

	for _, span := range spans {
		builder.WriteString(text[lastIndex:span.Start])
		builder.WriteString(span.Label.Token())
		lastIndex = span.End
	}

	builder.WriteString(text[lastIndex:])
	return builder.String(), nil
}

// checkApplicable verifies the invariants ApplySpans relies on
func checkApplicable(text string, spans []Span) error {
	lastEnd := 0
	for i, span := range spans {
		if err := span.Validate(len(text)); err != nil {
			return &InvariantViolation{Reason: err.Error(), Index: i, Span: span}
		}
		if span.Start < lastEnd {
			return &InvariantViolation{Reason: "span overlaps or precedes the previous span", Index: i, Span: span}
		}
		if !span.Label.Valid() {
			return &InvariantViolation{Reason: "unknown category", Index: i, Span: span}
		}
		lastEnd = span.End
	}
	return nil
}
