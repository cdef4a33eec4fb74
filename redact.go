// Package redact builds a redaction pipeline from a config file and runs it.
package redact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/SamuelRCrider/redact-go/core"
	"github.com/SamuelRCrider/redact-go/detectors/analyzer"
	"github.com/SamuelRCrider/redact-go/detectors/ner"
)

// DefaultConfigPath is read by Redact when it exists
const DefaultConfigPath = "config/default_redaction.yaml"

type settings struct {
	logger     *slog.Logger
	metrics    *core.Metrics
	audit      *core.AuditLogger
	httpClient *http.Client
}

// Option configures pipeline construction
type Option func(*settings)

// WithLogger sets the logger for the pipeline and remote detectors
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMetrics records pipeline metrics
func WithMetrics(m *core.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithAuditLogger writes an audit record for every run
func WithAuditLogger(a *core.AuditLogger) Option {
	return func(s *settings) {
		s.audit = a
	}
}

// WithHTTPClient sets the client used by remote detectors
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		s.httpClient = c
	}
}

func newSettings(opts []Option) settings {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// LoadConfig reads the config at path and applies environment overrides.
// An empty path starts from core.DefaultConfig.
func LoadConfig(path string) (core.Config, error) {
	cfg := core.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = core.LoadConfig(path)
		if err != nil {
			return core.Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return core.Config{}, err
	}
	return cfg, nil
}

// BuildDetectors creates one detector per enabled config entry
func BuildDetectors(cfg core.Config, opts ...Option) ([]core.Detector, error) {
	s := newSettings(opts)

	enabled := cfg.EnabledDetectors()
	detectors := make([]core.Detector, 0, len(enabled))
	for _, d := range enabled {
		var (
			detector core.Detector
			err      error
		)

		switch d.ResolvedKind() {
		case core.KindPattern:
			var pc core.PatternConfig
			pc, err = cfg.PatternConfig(d)
			if err == nil {
				detector, err = core.NewPatternDetector(pc)
			}
		case core.KindEntity:
			detector, err = ner.New(ner.Config{
				ID:            d.ID,
				Endpoint:      d.Endpoint,
				MaxScanLength: cfg.ScanLimitFor(d.ID),
				HTTPClient:    s.httpClient,
				Logger:        s.logger,
			})
		case core.KindAnalyzer:
			detector, err = analyzer.New(analyzer.Config{
				ID:             d.ID,
				Endpoint:       d.Endpoint,
				Language:       d.Language,
				ScoreThreshold: cfg.ConfidenceThreshold,
				Entities:       d.Entities,
				MaxScanLength:  cfg.ScanLimitFor(d.ID),
				HTTPClient:     s.httpClient,
				Logger:         s.logger,
			})
		default:
			err = fmt.Errorf("%w: detector %q has unknown kind %q", core.ErrInvalidConfig, d.ID, d.ResolvedKind())
		}

		if err != nil {
			return nil, fmt.Errorf("failed to build detector %s: %w", d.ID, err)
		}
		detectors = append(detectors, detector)
	}
	return detectors, nil
}

// NewPipeline builds the detectors named in cfg and wraps them in a pipeline
func NewPipeline(cfg core.Config, opts ...Option) (*core.Pipeline, error) {
	s := newSettings(opts)

	detectors, err := BuildDetectors(cfg, opts...)
	if err != nil {
		return nil, err
	}

	pipelineOpts := []core.Option{core.WithLogger(s.logger)}
	if s.metrics != nil {
		pipelineOpts = append(pipelineOpts, core.WithMetrics(s.metrics))
	}
	if s.audit != nil {
		pipelineOpts = append(pipelineOpts, core.WithAuditLogger(s.audit))
	}
	return core.NewPipeline(cfg, detectors, pipelineOpts...)
}

// Redact redacts text with the config at DefaultConfigPath, or with the
// default pattern-only config when that file does not exist
func Redact(ctx context.Context, text string, opts ...Option) (*core.RedactionResult, error) {
	path := DefaultConfigPath
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		path = ""
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return RedactWithConfig(ctx, text, cfg, opts...)
}

// RedactWithConfig redacts text with a pipeline built from cfg
func RedactWithConfig(ctx context.Context, text string, cfg core.Config, opts ...Option) (*core.RedactionResult, error) {
	pipeline, err := NewPipeline(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	return pipeline.Redact(ctx, text)
}
