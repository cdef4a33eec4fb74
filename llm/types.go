package llm

import (
	"time"
)

// NarratorConfig holds configuration for narrative generation over MCP
type NarratorConfig struct {
	ToolName     string                 // The MCP tool name to call
	Model        string                 // Model name passed to the tool
	Temperature  float64                // Controls randomness (0.0-1.0)
	MaxTokens    int                    // Maximum tokens to generate
	ExtraParams  map[string]interface{} // Any additional tool arguments
	Timeout      time.Duration          // Timeout for a single tool call
	RetryCount   int                    // Number of retries after the first attempt
	RetryBackoff time.Duration          // Backoff before the first retry, doubled each time
	MaxBackoff   time.Duration          // Upper bound on a single backoff

	// MaxContentChars caps the document content placed in a prompt
	MaxContentChars int

	// MaxDocumentChars caps each document before they are combined
	MaxDocumentChars int
}

// Source is one redacted document handed to the narrator
type Source struct {
	Filename string
	Content  string
}

// Section is one part of a briefing. Exactly one of Text and Items is set.
type Section struct {
	Title string   `json:"title"`
	Text  string   `json:"text,omitempty"`
	Items []string `json:"items,omitempty"`
}

// ReportMetadata describes where a report came from
type ReportMetadata struct {
	GeneratedAt     time.Time `json:"generated_at"`
	RequestID       string    `json:"request_id"`
	SourceType      string    `json:"source_type"`
	Topic           string    `json:"topic,omitempty"`
	SourceDocuments []string  `json:"source_documents,omitempty"`
	TotalDocuments  int       `json:"total_documents,omitempty"`

	// Fallback is set when the model output could not be parsed
	Fallback bool `json:"fallback,omitempty"`
}

// Report is a generated meeting briefing
type Report struct {
	Sections []Section      `json:"sections"`
	Metadata ReportMetadata `json:"metadata"`
}

// Section returns the section with the given title
func (r *Report) Section(title string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Title == title {
			return s, true
		}
	}
	return Section{}, false
}

// SectionTitles are the briefing sections requested from the model, in order
var SectionTitles = []string{
	"Executive Summary",
	"Topic Overview",
	"Technology Stack Analysis",
	"Architecture Overview",
	"Advantages and Benefits",
	"Limitations and Challenges",
	"Alternative Solutions",
	"Competitive Analysis",
	"Key Recommendations",
	"Action Items and Next Steps",
}
