package core

import "unicode/utf8"

// IsRuneBoundary reports whether byte offset i in s starts a UTF-8 sequence
// (or sits at either end of the string).
func IsRuneBoundary(s string, i int) bool {
	if i == 0 || i == len(s) {
		return true
	}
	if i < 0 || i > len(s) {
		return false
	}
	return utf8.RuneStart(s[i])
}

// TruncateAtRune returns the largest prefix of s that is at most max bytes long
// and does not split a rune. max <= 0 means no limit.
func TruncateAtRune(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// RuneOffsets converts character offsets, as reported by services that count
// code points, into byte offsets of s.
type RuneOffsets struct {
	byteAt []int
}

// NewRuneOffsets indexes s for character-to-byte offset conversion
func NewRuneOffsets(s string) *RuneOffsets {
	byteAt := make([]int, 0, len(s)+1)
	for i := range s {
		byteAt = append(byteAt, i)
	}
	byteAt = append(byteAt, len(s))
	return &RuneOffsets{byteAt: byteAt}
}

// Byte returns the byte offset of character offset r, and false when r is
// outside the string.
func (o *RuneOffsets) Byte(r int) (int, bool) {
	if r < 0 || r >= len(o.byteAt) {
		return 0, false
	}
	return o.byteAt[r], true
}

// Runes returns the number of characters in the indexed string
func (o *RuneOffsets) Runes() int {
	return len(o.byteAt) - 1
}
