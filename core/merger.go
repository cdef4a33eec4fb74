package core

import "sort"

// PriorityTable maps categories to conflict-resolution ranks. Categories missing
// from the table fall back to their default rank.
type PriorityTable map[Category]int

// Rank returns the priority of c
func (p PriorityTable) Rank(c Category) int {
	if r, ok := p[c]; ok {
		return r
	}
	return c.DefaultPriority()
}

// DefaultPriorities returns a copy of the built-in priority table
func DefaultPriorities() PriorityTable {
	p := make(PriorityTable, len(defaultPriorities))
	for c, r := range defaultPriorities {
		p[c] = r
	}
	return p
}

// MergeSpans resolves overlaps across all detectors' spans into an ordered,
// non-overlapping sequence. The input slice is not modified.
//
// Spans are ordered by start ascending, then length descending, then priority
// rank descending, then confidence descending, then source. A left-to-right
// sweep accepts a span only if it starts at or after the end of the last
// accepted span; anything overlapping is discarded whole, never trimmed.
func MergeSpans(spans []Span, priorities PriorityTable) []Span {
	if len(spans) == 0 {
		return nil
	}

	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sortSpans(sorted, priorities)

	merged := make([]Span, 0, len(sorted))
	lastEnd := -1
	for _, sp := range sorted {
		if sp.Start >= lastEnd {
			merged = append(merged, sp)
			lastEnd = sp.End
		}
	}
	return merged
}

// sortSpans applies the precedence order used by MergeSpans
func sortSpans(spans []Span, priorities PriorityTable) {
	sort.SliceStable(spans, func(i, j int) bool {
		a, b := spans[i], spans[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		if ra, rb := priorities.Rank(a.Label), priorities.Rank(b.Label); ra != rb {
			return ra > rb
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Label < b.Label
	})
}
