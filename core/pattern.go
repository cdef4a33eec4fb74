package core

import (
	"context"
	"fmt"
	"regexp"
	"unicode"
)

// PatternDetectorID is the default identifier of the structured-pattern detector
const PatternDetectorID = "pattern"

// PatternInfo stores a compiled pattern and the metadata attached to its matches
type PatternInfo struct {
	Name        string
	Regex       *regexp.Regexp
	Category    Category
	Confidence  float64
	Description string

	// Validate optionally rejects a raw match the regex alone cannot rule out
	Validate func(match string) bool
}

// builtinPatterns are the structured PII patterns, in evaluation order
var builtinPatterns = []PatternInfo{
	{
		Name:        "email",
		Regex:       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		Category:    CategoryEmail,
		Confidence:  1.0,
		Description: "Email address",
	},
	{
		Name:        "phone",
		Regex:       regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`),
		Category:    CategoryPhone,
		Confidence:  1.0,
		Description: "US phone number",
	},
	{
		Name:        "ssn",
		Regex:       regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		Category:    CategorySSN,
		Confidence:  1.0,
		Description: "US Social Security Number",
	},
	{
		Name:        "credit_card",
		Regex:       regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`),
		Category:    CategoryCreditCard,
		Confidence:  1.0,
		Description: "Credit card number",
	},
	{
		Name:        "ip_address",
		Regex:       regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
		Category:    CategoryIPAddress,
		Confidence:  1.0,
		Description: "IPv4 address",
	},
	{
		Name:        "api_key",
		Regex:       regexp.MustCompile(`\b[A-Za-z0-9_]{20,}\b`),
		Category:    CategoryAPIKey,
		Confidence:  1.0,
		Description: "API key or access token",
		Validate:    hasLetterAndDigit,
	},
}

// hasLetterAndDigit keeps long identifiers that mix letters and digits, which
// filters out ordinary long words and snake_case names.
func hasLetterAndDigit(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r):
			letter = true
		}
		if letter && digit {
			return true
		}
	}
	return false
}

// PatternConfig configures a PatternDetector
type PatternConfig struct {
	// ID overrides the detector identifier (defaults to "pattern")
	ID string

	// Categories restricts built-in patterns to these categories (empty means all)
	Categories []Category

	// CustomPatterns adds user-defined patterns
	CustomPatterns []CustomPattern

	// MaxScanLength bounds the number of bytes scanned (0 means unbounded)
	MaxScanLength int
}

// PatternDetector finds structured PII with regular expressions
type PatternDetector struct {
	id            string
	patterns      []PatternInfo
	maxScanLength int
}

// NewPatternDetector compiles the configured patterns into a detector
func NewPatternDetector(config PatternConfig) (*PatternDetector, error) {
	id := config.ID
	if id == "" {
		id = PatternDetectorID
	}

	enabled := make(map[Category]bool, len(config.Categories))
	for _, c := range config.Categories {
		if !c.Valid() {
			return nil, invalidConfig("pattern detector %s: unknown category %q", id, c)
		}
		enabled[c] = true
	}

	patterns := make([]PatternInfo, 0, len(builtinPatterns)+len(config.CustomPatterns))
	for _, p := range builtinPatterns {
		if len(enabled) > 0 && !enabled[p.Category] {
			continue
		}
		patterns = append(patterns, p)
	}

	// Add custom patterns
	for _, cp := range config.CustomPatterns {
		info, err := cp.compile()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, info)
	}

	return &PatternDetector{
		id:            id,
		patterns:      patterns,
		maxScanLength: config.MaxScanLength,
	}, nil
}

// ID returns the detector identifier
func (d *PatternDetector) ID() string {
	return d.id
}

// Patterns returns the names of the active patterns in evaluation order
func (d *PatternDetector) Patterns() []string {
	names := make([]string, len(d.patterns))
	for i, p := range d.patterns {
		names[i] = p.Name
	}
	return names
}

// Detect runs every active pattern over text. Matches that overlap an existing
// replacement token are discarded so redacted output never re-triggers.
func (d *PatternDetector) Detect(ctx context.Context, text string) (Detection, error) {
	scanned := TruncateAtRune(text, d.maxScanLength)
	tokens := TokenRegions(scanned)

	var spans []Span
	for _, p := range d.patterns {
		if err := ctx.Err(); err != nil {
			return Detection{}, err
		}

		for _, loc := range p.Regex.FindAllStringIndex(scanned, -1) {
			span := Span{
				Start:      loc[0],
				End:        loc[1],
				Label:      p.Category,
				Confidence: p.Confidence,
				Source:     d.id,
			}
			if span.Len() == 0 || span.overlapsAny(tokens) {
				continue
			}
			if p.Validate != nil && !p.Validate(scanned[loc[0]:loc[1]]) {
				continue
			}
			spans = append(spans, span)
		}
	}

	return Detection{Spans: spans, ScannedUpTo: len(scanned), Truncated: len(scanned) < len(text)}, nil
}

// compile turns a configured custom pattern into PatternInfo
func (cp CustomPattern) compile() (PatternInfo, error) {
	if cp.Name == "" {
		return PatternInfo{}, invalidConfig("custom pattern has no name")
	}
	category, err := ParseCategory(cp.Category)
	if err != nil {
		return PatternInfo{}, invalidConfig("custom pattern %q: %v", cp.Name, err)
	}
	re, err := regexp.Compile(cp.Pattern)
	if err != nil {
		return PatternInfo{}, fmt.Errorf("%w: invalid custom pattern '%s': %v", ErrInvalidConfig, cp.Name, err)
	}
	confidence := cp.Confidence
	if confidence == 0 {
		confidence = 1.0
	}
	if confidence < 0 || confidence > 1 {
		return PatternInfo{}, invalidConfig("custom pattern %q: confidence %v outside [0,1]", cp.Name, confidence)
	}
	return PatternInfo{
		Name:        cp.Name,
		Regex:       re,
		Category:    category,
		Confidence:  confidence,
		Description: fmt.Sprintf("Custom pattern: %s", cp.Name),
	}, nil
}
