package core

import (
	"time"
)

// ConfigBuilder provides a fluent interface for creating redaction configs
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a new config builder with no detectors
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: Config{
			Detectors:      []DetectorSettings{},
			DefaultTimeout: DefaultDetectorTimeout,
		},
	}
}

// WithMetadata sets the config metadata
func (b *ConfigBuilder) WithMetadata(version, description, author string) *ConfigBuilder {
	b.config.Metadata.Version = version
	b.config.Metadata.Description = description
	b.config.Metadata.Author = author
	return b
}

// WithDefaultTimeout sets the timeout applied to detectors without their own
func (b *ConfigBuilder) WithDefaultTimeout(timeout time.Duration) *ConfigBuilder {
	b.config.DefaultTimeout = timeout
	return b
}

// WithConfidenceThreshold sets the minimum span confidence kept before merging
func (b *ConfigBuilder) WithConfidenceThreshold(threshold float64) *ConfigBuilder {
	b.config.ConfidenceThreshold = threshold
	return b
}

// WithMaxScanLength sets the default scan limit of size-bounded detectors
func (b *ConfigBuilder) WithMaxScanLength(n int) *ConfigBuilder {
	b.config.MaxScanLength = n
	return b
}

// WithMaxConcurrency limits the number of detectors running at once
func (b *ConfigBuilder) WithMaxConcurrency(n int) *ConfigBuilder {
	b.config.MaxConcurrency = n
	return b
}

// WithPriority overrides the rank of one category
func (b *ConfigBuilder) WithPriority(category Category, rank int) *ConfigBuilder {
	if b.config.Priorities == nil {
		b.config.Priorities = make(map[string]int)
	}
	b.config.Priorities[string(category)] = rank
	return b
}

// AddPatternDetector adds a structured-pattern detector limited to categories
// (none means every built-in category)
func (b *ConfigBuilder) AddPatternDetector(id string, categories ...Category) *ConfigBuilder {
	var names []string
	for _, c := range categories {
		names = append(names, string(c))
	}
	b.config.Detectors = append(b.config.Detectors, DetectorSettings{
		ID:         id,
		Kind:       KindPattern,
		Categories: names,
	})
	return b
}

// AddEntityDetector adds a statistical named-entity detector served at endpoint
func (b *ConfigBuilder) AddEntityDetector(id, endpoint string) *ConfigBuilder {
	b.config.Detectors = append(b.config.Detectors, DetectorSettings{
		ID:       id,
		Kind:     KindEntity,
		Endpoint: endpoint,
	})
	return b
}

// AddAnalyzerDetector adds a generalized PII analyzer served at endpoint
func (b *ConfigBuilder) AddAnalyzerDetector(id, endpoint string) *ConfigBuilder {
	b.config.Detectors = append(b.config.Detectors, DetectorSettings{
		ID:       id,
		Kind:     KindAnalyzer,
		Endpoint: endpoint,
	})
	return b
}

// AddCustomPattern adds a user-defined pattern to every pattern detector
func (b *ConfigBuilder) AddCustomPattern(name string, category Category, pattern string, confidence float64) *ConfigBuilder {
	b.config.CustomPatterns = append(b.config.CustomPatterns, CustomPattern{
		Name:       name,
		Category:   string(category),
		Pattern:    pattern,
		Confidence: confidence,
	})
	return b
}

// ConfigureLastDetector configures additional properties for the last added detector
func (b *ConfigBuilder) ConfigureLastDetector() *DetectorConfigurator {
	if len(b.config.Detectors) == 0 {
		// Create an empty entry if none exists; Validate rejects it later
		b.config.Detectors = append(b.config.Detectors, DetectorSettings{})
	}

	return &DetectorConfigurator{
		builder:  b,
		settings: &b.config.Detectors[len(b.config.Detectors)-1],
	}
}

// Build validates and returns the final config
func (b *ConfigBuilder) Build() (Config, error) {
	b.config.Metadata.UpdatedAt = time.Now().UTC()
	if err := b.config.Validate(); err != nil {
		return Config{}, err
	}
	return b.config, nil
}

// DetectorConfigurator provides methods to configure one detector entry
type DetectorConfigurator struct {
	builder  *ConfigBuilder
	settings *DetectorSettings
}

// WithTimeout sets the invocation timeout of the detector
func (c *DetectorConfigurator) WithTimeout(timeout time.Duration) *DetectorConfigurator {
	c.settings.Timeout = timeout
	return c
}

// WithMaxScanLength sets the scan limit of the detector
func (c *DetectorConfigurator) WithMaxScanLength(n int) *DetectorConfigurator {
	c.settings.MaxScanLength = n
	return c
}

// WithLanguage sets the language hint for analyzer detectors
func (c *DetectorConfigurator) WithLanguage(lang string) *DetectorConfigurator {
	c.settings.Language = lang
	return c
}

// WithEntities restricts an analyzer detector to the given entity types
func (c *DetectorConfigurator) WithEntities(entities ...string) *DetectorConfigurator {
	c.settings.Entities = entities
	return c
}

// Disabled keeps the detector in the config without running it
func (c *DetectorConfigurator) Disabled() *DetectorConfigurator {
	c.settings.Disabled = true
	return c
}

// Done returns to the config builder
func (c *DetectorConfigurator) Done() *ConfigBuilder {
	return c.builder
}
