package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/SamuelRCrider/redact-go/docs"

	"github.com/spf13/cobra"
)

var docsFlags struct {
	path            string
	output          string
	blockUnredacted bool
	maxFileSize     int64
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Redact every supported document in a folder",
	Long: `Walk a folder (or read a single file), extract the text of every supported
document and redact it. The result is printed as JSON with one entry per
document plus any warnings.

Only redacted content is written. Files that cannot be extracted are reported
as warnings and skipped.

Examples:
  # Redact a folder
  redact docs --path ./meeting-docs

  # Write the result to a file, dropping documents no detector could inspect
  redact docs --path ./meeting-docs --output redacted.json --block-unredacted`,
	RunE: runDocs,
}

func init() {
	rootCmd.AddCommand(docsCmd)

	docsCmd.Flags().StringVarP(&docsFlags.path, "path", "p", "", "folder or file to process (required)")
	docsCmd.Flags().StringVarP(&docsFlags.output, "output", "o", "", "write JSON here instead of stdout")
	docsCmd.Flags().BoolVar(&docsFlags.blockUnredacted, "block-unredacted", false, "drop documents no detector could inspect")
	docsCmd.Flags().Int64Var(&docsFlags.maxFileSize, "max-file-size", 50<<20, "skip files larger than this many bytes (0 for no limit)")
	docsCmd.MarkFlagRequired("path")
}

func runDocs(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	batch, err := processDocuments(cmd, env, docsFlags.path, docsFlags.blockUnredacted, docsFlags.maxFileSize)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode documents: %w", err)
	}
	return writeOutput(cmd, docsFlags.output, append(data, '\n'))
}

func processDocuments(cmd *cobra.Command, env *environment, path string, blockUnredacted bool, maxFileSize int64) (*docs.Batch, error) {
	proc := docs.NewProcessor(env.pipeline, docs.Options{
		BlockUnredacted: blockUnredacted,
		MaxFileSize:     maxFileSize,
		Logger:          slog.Default(),
	})
	batch, err := proc.Process(cmd.Context(), path)
	if err != nil {
		return nil, err
	}
	for _, w := range batch.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}
	return batch, nil
}
