package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	numberPrefix = regexp.MustCompile(`^\d+[.)]\s*`)
	parenSuffix  = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

// canonicalTitles maps a normalized key to its section title
var canonicalTitles = func() map[string]string {
	m := make(map[string]string, len(SectionTitles))
	for _, t := range SectionTitles {
		m[normalizeTitle(t)] = t
	}
	return m
}()

func normalizeTitle(key string) string {
	key = strings.TrimSpace(key)
	key = numberPrefix.ReplaceAllString(key, "")
	key = parenSuffix.ReplaceAllString(key, "")
	key = strings.ReplaceAll(key, "_", " ")
	return strings.ToLower(strings.Join(strings.Fields(key), " "))
}

// stripFences removes a surrounding markdown code fence
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseReport reads a JSON object whose values are strings or string arrays.
// Sections keep the order the model wrote them in. Known section keys are
// normalized to their canonical title.
func parseReport(output string) (*Report, error) {
	dec := json.NewDecoder(strings.NewReader(stripFences(output)))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse briefing: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("parse briefing: expected a JSON object")
	}

	report := &Report{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse briefing: %w", err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse briefing section %q: %w", key, err)
		}

		section, ok := toSection(key, raw)
		if ok {
			report.Sections = append(report.Sections, section)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse briefing: %w", err)
	}
	if len(report.Sections) == 0 {
		return nil, errors.New("parse briefing: no sections")
	}
	return report, nil
}

func toSection(key string, raw json.RawMessage) (Section, bool) {
	title := strings.TrimSpace(key)
	if canonical, ok := canonicalTitles[normalizeTitle(key)]; ok {
		title = canonical
	}
	section := Section{Title: title}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		section.Text = strings.TrimSpace(text)
		return section, section.Text != ""
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		for _, item := range items {
			var s string
			if err := json.Unmarshal(item, &s); err == nil {
				if s = strings.TrimSpace(s); s != "" {
					section.Items = append(section.Items, s)
				}
				continue
			}
			section.Items = append(section.Items, compactJSON(item))
		}
		return section, len(section.Items) > 0
	}

	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return section, false
	}
	section.Text = compactJSON(raw)
	return section, true
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// fallbackReport is returned when the model output cannot be parsed
func fallbackReport(subject string) *Report {
	return &Report{
		Sections: []Section{
			{
				Title: "Executive Summary",
				Text:  fmt.Sprintf("Unable to generate detailed analysis for %s. The model response could not be parsed.", subject),
			},
			{
				Title: "Topic Overview",
				Text:  "Analysis unavailable. Review the source material directly.",
			},
			{
				Title: "Key Recommendations",
				Items: []string{
					"Review the source material manually",
					"Retry the briefing generation",
				},
			},
		},
		Metadata: ReportMetadata{Fallback: true},
	}
}

// Markdown renders the report as a markdown document
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Meeting Briefing\n\n")
	if r.Metadata.Topic != "" {
		fmt.Fprintf(&b, "Topic: %s\n\n", r.Metadata.Topic)
	}
	if len(r.Metadata.SourceDocuments) > 0 {
		fmt.Fprintf(&b, "Sources: %s\n\n", strings.Join(r.Metadata.SourceDocuments, ", "))
	}
	for _, s := range r.Sections {
		fmt.Fprintf(&b, "## %s\n\n", s.Title)
		if s.Text != "" {
			b.WriteString(s.Text)
			b.WriteString("\n\n")
		}
		for _, item := range s.Items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		if len(s.Items) > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
