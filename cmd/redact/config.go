package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	redact "github.com/SamuelRCrider/redact-go"
	"github.com/SamuelRCrider/redact-go/core"

	"github.com/spf13/cobra"
)

var configInitFlags struct {
	force bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create and validate redaction config files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default config",
	Long: `Write the built-in default config (structured patterns only) as YAML.
The path defaults to ` + redact.DefaultConfigPath + `.`,
	Args: cobra.MaximumNArgs(1),
	RunE: initConfig,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a config file and summarize it",
	Long: `Load a config file, validate it and print its detectors. The path defaults
to --config. Environment overrides are not applied.`,
	Args: cobra.MaximumNArgs(1),
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().BoolVarP(&configInitFlags.force, "force", "f", false, "overwrite an existing file")
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := redact.DefaultConfigPath
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !configInitFlags.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := core.SaveConfig(core.DefaultConfig(), path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote default config to %s\n", path)
	return nil
}

func validateConfig(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no config file given")
	}

	cfg, err := core.LoadConfig(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s is valid\n", path)
	if cfg.Metadata.Version != "" {
		fmt.Fprintf(out, "  version: %s\n", cfg.Metadata.Version)
	}
	fmt.Fprintf(out, "  sha256: %s\n", cfg.Metadata.Hash)
	for _, d := range cfg.Detectors {
		details := []string{string(d.ResolvedKind()), "timeout " + cfg.TimeoutFor(d.ID).String()}
		if d.Endpoint != "" {
			details = append(details, d.Endpoint)
		}
		if d.Disabled {
			details = append(details, "disabled")
		}
		fmt.Fprintf(out, "  detector %s (%s)\n", d.ID, strings.Join(details, ", "))
	}
	if len(cfg.CustomPatterns) > 0 {
		fmt.Fprintf(out, "  custom patterns: %d\n", len(cfg.CustomPatterns))
	}
	return nil
}
