package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DetectorKind identifies which implementation backs a configured detector
type DetectorKind string

const (
	// KindPattern is the in-process structured-pattern detector
	KindPattern DetectorKind = "pattern"

	// KindEntity is the statistical named-entity detector
	KindEntity DetectorKind = "entity"

	// KindAnalyzer is the generalized PII analysis service
	KindAnalyzer DetectorKind = "analyzer"
)

// DefaultDetectorTimeout bounds a detector invocation when nothing else is configured
const DefaultDetectorTimeout = 5 * time.Second

// ConfigMetadata contains information about the config file
type ConfigMetadata struct {
	// Version of the config
	Version string `yaml:"version,omitempty"`

	// Description of the config
	Description string `yaml:"description,omitempty"`

	// Author of the config
	Author string `yaml:"author,omitempty"`

	// Last modification time
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`

	// Hash of the file content for integrity verification
	Hash string `yaml:"hash,omitempty"`
}

// DetectorSettings configures one detector of the pipeline
type DetectorSettings struct {
	// Unique identifier, used as the span source
	ID string `yaml:"id"`

	// Kind of detector; defaults to ID when ID names a known kind
	Kind DetectorKind `yaml:"kind,omitempty"`

	// Disabled keeps the entry in the file without running it
	Disabled bool `yaml:"disabled,omitempty"`

	// Timeout for one invocation (0 uses the config default)
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxScanLength in bytes for size-bounded detectors (0 uses the config default)
	MaxScanLength int `yaml:"max_scan_length,omitempty"`

	// Endpoint of a remote detector service
	Endpoint string `yaml:"endpoint,omitempty"`

	// Categories restricts a pattern detector to these categories
	Categories []string `yaml:"categories,omitempty"`

	// Language hint passed to the analyzer service
	Language string `yaml:"language,omitempty"`

	// Entities restricts the analyzer service to these entity types
	Entities []string `yaml:"entities,omitempty"`
}

// ResolvedKind returns the detector kind, inferring it from the ID when unset
func (s DetectorSettings) ResolvedKind() DetectorKind {
	if s.Kind != "" {
		return s.Kind
	}
	return DetectorKind(s.ID)
}

// CustomPattern is a user-defined regex pattern for the pattern detector
type CustomPattern struct {
	Name       string  `yaml:"name"`
	Category   string  `yaml:"category"`
	Pattern    string  `yaml:"pattern"`
	Confidence float64 `yaml:"confidence,omitempty"`
}

// Config is the validated configuration surface of the redaction engine
type Config struct {
	// Metadata about the config
	Metadata ConfigMetadata `yaml:"metadata,omitempty"`

	// Detectors to run; entries that are not disabled form the enabled set
	Detectors []DetectorSettings `yaml:"detectors"`

	// DefaultTimeout applies to detectors without their own timeout
	DefaultTimeout time.Duration `yaml:"default_timeout,omitempty"`

	// MaxScanLength applies to size-bounded detectors without their own limit
	MaxScanLength int `yaml:"max_scan_length,omitempty"`

	// ConfidenceThreshold drops spans scoring below it before merging
	ConfidenceThreshold float64 `yaml:"confidence_threshold,omitempty"`

	// MaxConcurrency limits parallel detector invocations (0 means unlimited)
	MaxConcurrency int `yaml:"max_concurrency,omitempty"`

	// Priorities overrides category ranks used for conflict resolution
	Priorities map[string]int `yaml:"priorities,omitempty"`

	// CustomPatterns are added to every pattern detector
	CustomPatterns []CustomPattern `yaml:"custom_patterns,omitempty"`
}

// DefaultConfig returns a config running only the structured-pattern detector
func DefaultConfig() Config {
	return Config{
		Metadata: ConfigMetadata{
			Version:     "1.0.0",
			Description: "Default redaction config: structured patterns only",
		},
		Detectors: []DetectorSettings{
			{ID: string(KindPattern), Kind: KindPattern},
		},
		DefaultTimeout: DefaultDetectorTimeout,
	}
}

// LoadConfig reads a YAML config file, validates it and records its hash
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cfg.Metadata.Hash = calculateConfigHash(data)
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML
func SaveConfig(cfg Config, path string) error {
	cfg.Metadata.UpdatedAt = time.Now().UTC()
	cfg.Metadata.Hash = ""

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// calculateConfigHash generates a hash of the config content for integrity checking
func calculateConfigHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Validate checks the config for errors that would otherwise surface mid-run
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Detectors))
	for i, d := range c.Detectors {
		if d.ID == "" {
			return invalidConfig("detector %d has no id", i)
		}
		if seen[d.ID] {
			return invalidConfig("duplicate detector id %q", d.ID)
		}
		seen[d.ID] = true

		switch d.ResolvedKind() {
		case KindPattern:
			for _, name := range d.Categories {
				if _, err := ParseCategory(name); err != nil {
					return invalidConfig("detector %q: %v", d.ID, err)
				}
			}
		case KindEntity, KindAnalyzer:
			if d.Endpoint == "" && !d.Disabled {
				return invalidConfig("detector %q needs an endpoint", d.ID)
			}
		default:
			return invalidConfig("detector %q has unknown kind %q", d.ID, d.ResolvedKind())
		}

		if d.Timeout < 0 {
			return invalidConfig("detector %q has negative timeout", d.ID)
		}
		if d.MaxScanLength < 0 {
			return invalidConfig("detector %q has negative max_scan_length", d.ID)
		}
	}

	if c.DefaultTimeout < 0 {
		return invalidConfig("negative default_timeout")
	}
	if c.MaxScanLength < 0 {
		return invalidConfig("negative max_scan_length")
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return invalidConfig("confidence_threshold %v outside [0,1]", c.ConfidenceThreshold)
	}
	if c.MaxConcurrency < 0 {
		return invalidConfig("negative max_concurrency")
	}
	if _, err := c.PriorityTable(); err != nil {
		return err
	}
	for _, cp := range c.CustomPatterns {
		if _, err := cp.compile(); err != nil {
			return err
		}
	}
	return nil
}

// PriorityTable resolves configured priority overrides on top of the defaults
func (c Config) PriorityTable() (PriorityTable, error) {
	table := DefaultPriorities()
	for name, rank := range c.Priorities {
		category, err := ParseCategory(name)
		if err != nil {
			return nil, invalidConfig("priorities: %v", err)
		}
		table[category] = rank
	}
	return table, nil
}

// EnabledDetectors returns the settings of every detector that is not disabled
func (c Config) EnabledDetectors() []DetectorSettings {
	enabled := make([]DetectorSettings, 0, len(c.Detectors))
	for _, d := range c.Detectors {
		if !d.Disabled {
			enabled = append(enabled, d)
		}
	}
	return enabled
}

// Settings returns the settings for detector id, if configured
func (c Config) Settings(id string) (DetectorSettings, bool) {
	for _, d := range c.Detectors {
		if d.ID == id {
			return d, true
		}
	}
	return DetectorSettings{}, false
}

// TimeoutFor returns the invocation timeout of detector id
func (c Config) TimeoutFor(id string) time.Duration {
	if d, ok := c.Settings(id); ok && d.Timeout > 0 {
		return d.Timeout
	}
	if c.DefaultTimeout > 0 {
		return c.DefaultTimeout
	}
	return DefaultDetectorTimeout
}

// ScanLimitFor returns the max scan length of detector id (0 means unbounded)
func (c Config) ScanLimitFor(id string) int {
	if d, ok := c.Settings(id); ok && d.MaxScanLength > 0 {
		return d.MaxScanLength
	}
	return c.MaxScanLength
}

// PatternConfig builds the PatternDetector configuration for a pattern entry
func (c Config) PatternConfig(d DetectorSettings) (PatternConfig, error) {
	categories := make([]Category, 0, len(d.Categories))
	for _, name := range d.Categories {
		category, err := ParseCategory(name)
		if err != nil {
			return PatternConfig{}, invalidConfig("detector %q: %v", d.ID, err)
		}
		categories = append(categories, category)
	}
	return PatternConfig{
		ID:             d.ID,
		Categories:     categories,
		CustomPatterns: c.CustomPatterns,
		MaxScanLength:  c.ScanLimitFor(d.ID),
	}, nil
}

// ApplyEnv overrides config values from environment variables:
// REDACT_ENTITY_URL, REDACT_ANALYZER_URL, REDACT_CONFIDENCE_THRESHOLD and
// REDACT_DEFAULT_TIMEOUT. A URL sets and enables every detector of its kind,
// adding one when none is configured.
func (c *Config) ApplyEnv() error {
	if url := strings.TrimSpace(os.Getenv("REDACT_ENTITY_URL")); url != "" {
		c.setEndpoint(KindEntity, url)
	}
	if url := strings.TrimSpace(os.Getenv("REDACT_ANALYZER_URL")); url != "" {
		c.setEndpoint(KindAnalyzer, url)
	}

	if raw := strings.TrimSpace(os.Getenv("REDACT_CONFIDENCE_THRESHOLD")); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return invalidConfig("REDACT_CONFIDENCE_THRESHOLD: %v", err)
		}
		c.ConfidenceThreshold = threshold
	}

	if raw := strings.TrimSpace(os.Getenv("REDACT_DEFAULT_TIMEOUT")); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return invalidConfig("REDACT_DEFAULT_TIMEOUT: %v", err)
		}
		c.DefaultTimeout = timeout
	}

	return c.Validate()
}

func (c *Config) setEndpoint(kind DetectorKind, url string) {
	found := false
	for i := range c.Detectors {
		if c.Detectors[i].ResolvedKind() == kind {
			c.Detectors[i].Endpoint = url
			c.Detectors[i].Disabled = false
			found = true
		}
	}
	if !found {
		c.Detectors = append(c.Detectors, DetectorSettings{ID: string(kind), Kind: kind, Endpoint: url})
	}
}
