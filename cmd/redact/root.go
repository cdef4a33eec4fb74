package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	redact "github.com/SamuelRCrider/redact-go"
	"github.com/SamuelRCrider/redact-go/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile     string
	logFormat   string
	logLevel    string
	auditLog    string
	auditLevel  string
	metricsFile string
)

var rootCmd = &cobra.Command{
	Use:   "redact",
	Short: "Redact PII from text before it reaches a language model",
	Long: `Redact runs several independent PII detectors over text, merges their
findings into non-overlapping spans and replaces each span with a fixed token
such as [EMAIL_REDACTED].

Detectors that fail or time out are skipped; the run still succeeds with the
remaining detectors and reports which ones were missing.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd.ErrOrStderr(), logFormat, logLevel)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", redact.DefaultConfigPath, "redaction config file (empty for built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&auditLog, "audit-log", "", "append audit records to this JSONL file")
	rootCmd.PersistentFlags().StringVar(&auditLevel, "audit-level", string(core.AuditLogLevelStandard), "audit detail: minimal, standard, verbose")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write prometheus metrics to this file on exit")
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q (want text or json)", format)
	}
}

// loadConfig reads --config. The default path may be absent, in which case
// the built-in defaults are used.
func loadConfig() (core.Config, error) {
	path := cfgFile
	if path == redact.DefaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	return redact.LoadConfig(path)
}

// environment is the pipeline and its collaborators for one command run
type environment struct {
	config   core.Config
	pipeline *core.Pipeline
	registry *prometheus.Registry
	audit    *core.AuditLogger
}

func newEnvironment() (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	env := &environment{config: cfg, registry: prometheus.NewRegistry()}
	metrics, err := core.NewMetrics(env.registry)
	if err != nil {
		return nil, err
	}
	opts := []redact.Option{
		redact.WithLogger(slog.Default()),
		redact.WithMetrics(metrics),
	}

	if auditLog != "" {
		level := core.AuditLogLevel(auditLevel)
		switch level {
		case core.AuditLogLevelMinimal, core.AuditLogLevelStandard, core.AuditLogLevelVerbose:
		default:
			return nil, fmt.Errorf("invalid --audit-level %q", auditLevel)
		}
		env.audit, err = core.NewAuditLogger(core.AuditConfig{Path: auditLog, Level: level})
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		opts = append(opts, redact.WithAuditLogger(env.audit))
	}

	env.pipeline, err = redact.NewPipeline(cfg, opts...)
	if err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

// Close flushes metrics and closes the audit log
func (e *environment) Close() error {
	var errs []error
	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, e.registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	if e.audit != nil {
		if err := e.audit.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// writeOutput writes data to path, or to the command output when path is empty
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}
