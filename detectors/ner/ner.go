// Package ner is a client for a statistical named-entity recognition sidecar.
//
// The sidecar exposes POST /classify taking {"text": "..."} and answering
// {"spans": [{"start", "end", "label", "score"}]} with character offsets.
// Only person, organization and location labels are kept.
package ner

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SamuelRCrider/redact-go/core"
	"github.com/SamuelRCrider/redact-go/detectors/remote"
)

// DefaultID is the detector identifier used when none is configured
const DefaultID = "entity"

// DefaultMaxScanLength is the largest input the recognizer accepts in bytes
const DefaultMaxScanLength = 1000000

// labels maps recognizer labels to redaction categories
var labels = map[string]core.Category{
	"PERSON": core.CategoryPerson,
	"PER":    core.CategoryPerson,
	"ORG":    core.CategoryOrganization,
	"GPE":    core.CategoryLocation,
	"LOC":    core.CategoryLocation,
}

// Config configures the entity detector
type Config struct {
	ID       string
	Endpoint string

	// MaxScanLength in bytes (0 uses DefaultMaxScanLength)
	MaxScanLength int

	// HTTPClient defaults to a client without its own timeout; the pipeline
	// bounds each call through the context.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Detector finds person, organization and location names via the sidecar
type Detector struct {
	id            string
	url           string
	maxScanLength int
	client        *http.Client
	logger        *slog.Logger
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Spans []struct {
		Start int     `json:"start"`
		End   int     `json:"end"`
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"spans"`
}

// New creates an entity detector
func New(cfg Config) (*Detector, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: entity detector needs an endpoint", core.ErrInvalidConfig)
	}
	if cfg.ID == "" {
		cfg.ID = DefaultID
	}
	if cfg.MaxScanLength <= 0 {
		cfg.MaxScanLength = DefaultMaxScanLength
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Detector{
		id:            cfg.ID,
		url:           remote.Endpoint(cfg.Endpoint, "/classify"),
		maxScanLength: cfg.MaxScanLength,
		client:        cfg.HTTPClient,
		logger:        cfg.Logger,
	}, nil
}

// ID returns the detector identifier
func (d *Detector) ID() string {
	return d.id
}

// Detect sends at most MaxScanLength bytes of text to the sidecar
func (d *Detector) Detect(ctx context.Context, text string) (core.Detection, error) {
	scanned := core.TruncateAtRune(text, d.maxScanLength)
	if scanned == "" {
		return core.Detection{Truncated: text != ""}, nil
	}

	var resp classifyResponse
	if err := remote.PostJSON(ctx, d.client, d.url, classifyRequest{Text: scanned}, &resp); err != nil {
		return core.Detection{}, err
	}

	offsets := core.NewRuneOffsets(scanned)
	spans := make([]core.Span, 0, len(resp.Spans))
	skipped := 0
	for _, s := range resp.Spans {
		category, ok := labels[strings.ToUpper(s.Label)]
		if !ok {
			continue
		}
		start, end, ok := remote.ByteRange(offsets, s.Start, s.End)
		if !ok {
			skipped++
			continue
		}
		spans = append(spans, core.Span{
			Start:      start,
			End:        end,
			Label:      category,
			Confidence: s.Score,
			Source:     d.id,
		})
	}

	if skipped > 0 {
		d.logger.Warn("entity detector returned malformed offsets",
			"detector", d.id,
			"skipped", skipped,
		)
	}

	return core.Detection{Spans: spans, ScannedUpTo: len(scanned), Truncated: len(scanned) < len(text)}, nil
}
