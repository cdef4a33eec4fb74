// Package analyzer is a client for a generalized PII analysis service with a
// presidio-compatible /analyze endpoint.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SamuelRCrider/redact-go/core"
	"github.com/SamuelRCrider/redact-go/detectors/remote"
)

// DefaultID is the detector identifier used when none is configured
const DefaultID = "analyzer"

// entities maps analyzer entity types to redaction categories. Anything not
// listed becomes GENERIC_PII.
var entities = map[string]core.Category{
	"EMAIL_ADDRESS": core.CategoryEmail,
	"PHONE_NUMBER":  core.CategoryPhone,
	"US_SSN":        core.CategorySSN,
	"CREDIT_CARD":   core.CategoryCreditCard,
	"IP_ADDRESS":    core.CategoryIPAddress,
	"PERSON":        core.CategoryPerson,
	"LOCATION":      core.CategoryLocation,
	"ORGANIZATION":  core.CategoryOrganization,
	"NRP":           core.CategoryOrganization,
}

// CategoryFor returns the redaction category of an analyzer entity type
func CategoryFor(entityType string) core.Category {
	if c, ok := entities[entityType]; ok {
		return c
	}
	return core.CategoryGenericPII
}

// Config configures the analyzer detector
type Config struct {
	ID       string
	Endpoint string

	// Language sent with each request (default "en")
	Language string

	// ScoreThreshold asks the service to omit weaker results
	ScoreThreshold float64

	// Entities restricts the entity types requested (empty means all)
	Entities []string

	// MaxScanLength in bytes (0 means unbounded)
	MaxScanLength int

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Detector calls the analysis service
type Detector struct {
	cfg    Config
	url    string
	client *http.Client
	logger *slog.Logger
}

type analyzeRequest struct {
	Text           string   `json:"text"`
	Language       string   `json:"language"`
	ScoreThreshold float64  `json:"score_threshold,omitempty"`
	Entities       []string `json:"entities,omitempty"`
}

type analyzeResult struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

// New creates an analyzer detector
func New(cfg Config) (*Detector, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: analyzer detector needs an endpoint", core.ErrInvalidConfig)
	}
	if cfg.ID == "" {
		cfg.ID = DefaultID
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.ScoreThreshold < 0 || cfg.ScoreThreshold > 1 {
		return nil, fmt.Errorf("%w: analyzer score threshold %v outside [0,1]", core.ErrInvalidConfig, cfg.ScoreThreshold)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Detector{
		cfg:    cfg,
		url:    remote.Endpoint(cfg.Endpoint, "/analyze"),
		client: client,
		logger: logger,
	}, nil
}

// ID returns the detector identifier
func (d *Detector) ID() string {
	return d.cfg.ID
}

// Detect analyzes text and maps every result onto a redaction category
func (d *Detector) Detect(ctx context.Context, text string) (core.Detection, error) {
	scanned := core.TruncateAtRune(text, d.cfg.MaxScanLength)
	if scanned == "" {
		return core.Detection{Truncated: text != ""}, nil
	}

	req := analyzeRequest{
		Text:           scanned,
		Language:       d.cfg.Language,
		ScoreThreshold: d.cfg.ScoreThreshold,
		Entities:       d.cfg.Entities,
	}
	var results []analyzeResult
	if err := remote.PostJSON(ctx, d.client, d.url, req, &results); err != nil {
		return core.Detection{}, err
	}

	offsets := core.NewRuneOffsets(scanned)
	spans := make([]core.Span, 0, len(results))
	for _, r := range results {
		start, end, ok := remote.ByteRange(offsets, r.Start, r.End)
		if !ok {
			d.logger.Debug("skipping analyzer result with bad offsets",
				"detector", d.cfg.ID,
				"entity_type", r.EntityType,
				"start", r.Start,
				"end", r.End,
			)
			continue
		}
		spans = append(spans, core.Span{
			Start:      start,
			End:        end,
			Label:      CategoryFor(r.EntityType),
			Confidence: r.Score,
			Source:     d.cfg.ID,
		})
	}

	return core.Detection{Spans: spans, ScannedUpTo: len(scanned), Truncated: len(scanned) < len(text)}, nil
}
