// Package llm turns redacted documents into a structured meeting briefing by
// calling a language model tool over MCP.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

const systemPrompt = "You are a technical analyst preparing briefing documents for engineering meetings. Always respond with valid JSON."

const briefingInstructions = `

Please structure your response with the following sections:
1. Executive Summary (2-3 sentences)
2. Topic Overview
3. Technology Stack Analysis
4. Architecture Overview (if applicable)
5. Advantages and Benefits
6. Limitations and Challenges
7. Alternative Solutions
8. Competitive Analysis
9. Key Recommendations
10. Action Items and Next Steps

Format the response as valid JSON with these sections as keys. Each value is either a string or an array of strings.`

// ToolCaller calls an MCP tool. *client.StdioMCPClient implements it.
type ToolCaller interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Narrator generates briefings from already-redacted content
type Narrator struct {
	caller ToolCaller
	config NarratorConfig
	guard  *PromptGuard
	logger *slog.Logger
}

// Option configures a Narrator
type Option func(*Narrator)

// WithGuard refuses to send prompts in which the guard still finds spans
func WithGuard(guard *PromptGuard) Option {
	return func(n *Narrator) {
		n.guard = guard
	}
}

// WithLogger sets the narrator logger
func WithLogger(logger *slog.Logger) Option {
	return func(n *Narrator) {
		n.logger = logger
	}
}

// NewNarrator creates a narrator calling tools through caller
func NewNarrator(caller ToolCaller, config NarratorConfig, opts ...Option) (*Narrator, error) {
	if caller == nil {
		return nil, errors.New("narrator requires a tool caller")
	}
	config = config.withDefaults()
	if config.Temperature < 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1, got %v", config.Temperature)
	}
	if config.RetryCount < 0 {
		return nil, fmt.Errorf("retry count must not be negative, got %d", config.RetryCount)
	}

	n := &Narrator{
		caller: caller,
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// FromDocuments briefs on the combined content of docs. Each document is
// capped at MaxDocumentChars and the combined content at MaxContentChars.
func (n *Narrator) FromDocuments(ctx context.Context, docs []Source) (*Report, error) {
	requestID := uuid.NewString()
	if len(docs) == 0 {
		return nil, newNarrativeError(ErrorCategoryValidation, errors.New("no documents to brief on"), requestID)
	}

	content := combineDocuments(docs, n.config.MaxDocumentChars)
	prompt := "Based on the following content, create a comprehensive technical briefing:\n\n" +
		truncateChars(content, n.config.MaxContentChars) + briefingInstructions

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Filename
	}

	report, err := n.generate(ctx, requestID, prompt, strings.Join(names, ", "))
	if err != nil {
		return nil, err
	}
	report.Metadata.SourceType = "documents"
	report.Metadata.SourceDocuments = names
	report.Metadata.TotalDocuments = len(docs)
	return report, nil
}

// FromTopic briefs on a topic without any source documents
func (n *Narrator) FromTopic(ctx context.Context, topic string) (*Report, error) {
	requestID := uuid.NewString()
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, newNarrativeError(ErrorCategoryValidation, errors.New("topic must not be empty"), requestID)
	}

	prompt := "Create a comprehensive technical briefing about: " + topic + briefingInstructions
	report, err := n.generate(ctx, requestID, prompt, topic)
	if err != nil {
		return nil, err
	}
	report.Metadata.SourceType = "topic_query"
	report.Metadata.Topic = topic
	return report, nil
}

func (n *Narrator) generate(ctx context.Context, requestID, prompt, subject string) (*Report, error) {
	found, err := n.guard.Check(ctx, prompt)
	if err != nil {
		return nil, newNarrativeError(ErrorCategoryDLP, err, requestID)
	}
	if len(found) > 0 {
		return nil, newNarrativeError(ErrorCategoryDLP,
			fmt.Errorf("prompt still contains sensitive data: %s", joinCategories(found)), requestID)
	}

	start := time.Now()
	output, err := n.call(ctx, requestID, prompt)
	if err != nil {
		n.logger.Error("briefing generation failed", "request_id", requestID, "error", err)
		return nil, err
	}

	report, err := parseReport(output)
	if err != nil {
		n.logger.Warn("model output is not a valid briefing, using fallback",
			"request_id", requestID,
			"error", err,
		)
		report = fallbackReport(subject)
	}
	report.Metadata.GeneratedAt = time.Now().UTC()
	report.Metadata.RequestID = requestID

	n.logger.Info("briefing generated",
		"request_id", requestID,
		"sections", len(report.Sections),
		"prompt_chars", len(prompt),
		"fallback", report.Metadata.Fallback,
		"duration", time.Since(start),
	)
	return report, nil
}

// call invokes the tool, retrying transport failures with exponential
// backoff. A tool-reported error is not retried.
func (n *Narrator) call(ctx context.Context, requestID, prompt string) (string, error) {
	args := make(map[string]interface{}, len(n.config.ExtraParams)+6)
	for k, v := range n.config.ExtraParams {
		args[k] = v
	}
	args["system"] = systemPrompt
	args["input"] = prompt
	args["model"] = n.config.Model
	args["temperature"] = n.config.Temperature
	args["max_tokens"] = n.config.MaxTokens
	args["request_id"] = requestID

	request := mcp.CallToolRequest{}
	request.Params.Name = n.config.ToolName
	request.Params.Arguments = args

	var lastErr error
	for attempt := 0; attempt <= n.config.RetryCount; attempt++ {
		if attempt > 0 {
			wait := n.backoff(attempt)
			n.logger.Warn("retrying tool call",
				"request_id", requestID,
				"attempt", attempt+1,
				"backoff", wait,
				"previous_error", lastErr,
			)
			select {
			case <-ctx.Done():
				return "", newNarrativeError(ErrorCategoryTimeout, ctx.Err(), requestID)
			case <-time.After(wait):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, n.config.Timeout)
		result, err := n.caller.CallTool(callCtx, request)
		cancel()

		if err == nil {
			text := resultText(result)
			if result.IsError {
				return "", newNarrativeError(ErrorCategoryModel, fmt.Errorf("tool %s reported an error: %s", n.config.ToolName, text), requestID)
			}
			if strings.TrimSpace(text) == "" {
				return "", newNarrativeError(ErrorCategoryModel, fmt.Errorf("tool %s returned no text", n.config.ToolName), requestID)
			}
			return text, nil
		}

		if ctx.Err() != nil {
			return "", newNarrativeError(ErrorCategoryTimeout, fmt.Errorf("tool call canceled: %w", ctx.Err()), requestID)
		}
		lastErr = err
	}

	return "", newNarrativeError(categorizeError(lastErr),
		fmt.Errorf("tool %s failed after %d attempts: %w", n.config.ToolName, n.config.RetryCount+1, lastErr), requestID)
}

func (n *Narrator) backoff(attempt int) time.Duration {
	wait := n.config.RetryBackoff << (attempt - 1)
	if wait <= 0 || wait > n.config.MaxBackoff {
		return n.config.MaxBackoff
	}
	return wait
}

func resultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var b strings.Builder
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			b.WriteString(textContent.Text)
		}
	}
	return b.String()
}

func combineDocuments(docs []Source, perDocument int) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = fmt.Sprintf("Document: %s\nContent: %s", d.Filename, truncateChars(d.Content, perDocument))
	}
	return strings.Join(parts, "\n\n")
}

// truncateChars keeps the first limit characters of s
func truncateChars(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
