package core

import (
	"fmt"
	"regexp"
	"strings"
)

// Category classifies the kind of sensitive data a span covers
type Category string

const (
	// CategoryEmail represents email addresses
	CategoryEmail Category = "EMAIL"

	// CategoryPhone represents phone numbers
	CategoryPhone Category = "PHONE"

	// CategorySSN represents US Social Security Numbers
	CategorySSN Category = "SSN"

	// CategoryCreditCard represents payment card numbers
	CategoryCreditCard Category = "CREDIT_CARD"

	// CategoryIPAddress represents IPv4 addresses
	CategoryIPAddress Category = "IP_ADDRESS"

	// CategoryAPIKey represents API keys and other long credential-like tokens
	CategoryAPIKey Category = "API_KEY"

	// CategoryPerson represents person names
	CategoryPerson Category = "PERSON"

	// CategoryOrganization represents organization names
	CategoryOrganization Category = "ORGANIZATION"

	// CategoryLocation represents geopolitical entities and locations
	CategoryLocation Category = "LOCATION"

	// CategoryGenericPII represents PII that fits no narrower category
	CategoryGenericPII Category = "GENERIC_PII"
)

// AllCategories lists every category in declaration order
var AllCategories = []Category{
	CategoryEmail,
	CategoryPhone,
	CategorySSN,
	CategoryCreditCard,
	CategoryIPAddress,
	CategoryAPIKey,
	CategoryPerson,
	CategoryOrganization,
	CategoryLocation,
	CategoryGenericPII,
}

// defaultPriorities ranks categories for conflict resolution. Structured,
// high-specificity patterns outrank the generalized analyzer, which outranks
// the statistical entity categories.
var defaultPriorities = map[Category]int{
	CategorySSN:          100,
	CategoryCreditCard:   95,
	CategoryEmail:        90,
	CategoryAPIKey:       85,
	CategoryPhone:        80,
	CategoryIPAddress:    75,
	CategoryGenericPII:   50,
	CategoryPerson:       30,
	CategoryOrganization: 25,
	CategoryLocation:     20,
}

// ParseCategory converts a string into a Category, rejecting unknown names
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Valid reports whether c is a member of the category enumeration
func (c Category) Valid() bool {
	_, ok := defaultPriorities[c]
	return ok
}

// DefaultPriority returns the built-in priority rank of c (0 for unknown categories)
func (c Category) DefaultPriority() int {
	return defaultPriorities[c]
}

// Token returns the fixed replacement token emitted for spans of this category
func (c Category) Token() string {
	return "[" + string(c) + "_REDACTED]"
}

func (c Category) String() string {
	return string(c)
}

// tokenPattern matches any replacement token the redactor can emit. Detectors
// and the pipeline use it as a negative-match set so that redacted output is
// never re-redacted.
var tokenPattern = buildTokenPattern()

func buildTokenPattern() *regexp.Regexp {
	names := make([]string, len(AllCategories))
	for i, c := range AllCategories {
		names[i] = regexp.QuoteMeta(string(c))
	}
	return regexp.MustCompile(`\[(?:` + strings.Join(names, "|") + `)_REDACTED\]`)
}

// TokenRegions returns the [start, end) byte ranges of replacement tokens in text
func TokenRegions(text string) [][2]int {
	locs := tokenPattern.FindAllStringIndex(text, -1)
	regions := make([][2]int, len(locs))
	for i, loc := range locs {
		regions[i] = [2]int{loc[0], loc[1]}
	}
	return regions
}

// Span is a half-open byte range [Start, End) of the original text flagged by a
// detector. Offsets always refer to the original, unmodified input.
type Span struct {
	Start      int      `json:"start" yaml:"start"`
	End        int      `json:"end" yaml:"end"`
	Label      Category `json:"label" yaml:"label"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Source     string   `json:"source" yaml:"source"`
}

// Len returns the number of bytes the span covers
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether s and o share at least one byte
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Validate checks 0 <= Start < End <= textLen
func (s Span) Validate(textLen int) error {
	if s.Start < 0 || s.End > textLen || s.Start >= s.End {
		return fmt.Errorf("span [%d,%d) out of bounds for text of length %d", s.Start, s.End, textLen)
	}
	return nil
}

func (s Span) String() string {
	return fmt.Sprintf("%s[%d,%d)@%s", s.Label, s.Start, s.End, s.Source)
}

// overlapsAny reports whether s intersects any of the given regions.
// regions must be sorted ascending by start.
func (s Span) overlapsAny(regions [][2]int) bool {
	for _, r := range regions {
		if r[0] >= s.End {
			return false
		}
		if s.Start < r[1] && r[0] < s.End {
			return true
		}
	}
	return false
}

// insideAny reports whether s lies entirely within one of the given regions.
// regions must be sorted ascending by start.
func (s Span) insideAny(regions [][2]int) bool {
	for _, r := range regions {
		if r[0] > s.Start {
			return false
		}
		if s.End <= r[1] {
			return true
		}
	}
	return false
}
