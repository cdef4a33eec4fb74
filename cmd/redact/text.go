package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/SamuelRCrider/redact-go/core"
	"github.com/SamuelRCrider/redact-go/docs"

	"github.com/spf13/cobra"
)

var textFlags struct {
	audit           bool
	blockUnredacted bool
}

var textCmd = &cobra.Command{
	Use:   "text [file]",
	Short: "Redact a text file or standard input",
	Long: `Redact a single text and print the redacted copy to standard output.

The input is read from the given file, or from standard input when no file
(or "-") is given. Non UTF-8 files are decoded as UTF-16 (with a byte order
mark) or Windows-1252.

Examples:
  # Redact a file
  redact text notes.txt

  # Show which spans were replaced
  echo "mail alice@example.com" | redact text --audit

  # Fail instead of printing text no detector could inspect
  redact text notes.txt --block-unredacted`,
	Args: cobra.MaximumNArgs(1),
	RunE: runText,
}

func init() {
	rootCmd.AddCommand(textCmd)

	textCmd.Flags().BoolVar(&textFlags.audit, "audit", false, "print applied spans and detector status to stderr")
	textCmd.Flags().BoolVar(&textFlags.blockUnredacted, "block-unredacted", false, "fail when no detector could run")
}

func runText(cmd *cobra.Command, args []string) error {
	var input string
	if len(args) == 1 && args[0] != "-" {
		text, err := docs.TextExtractor{}.Extract(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		input = text
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read standard input: %w", err)
		}
		input = string(data)
	}

	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := env.pipeline.Redact(cmd.Context(), input)
	if err != nil {
		return err
	}

	if textFlags.audit {
		printAudit(cmd.ErrOrStderr(), result)
	}
	if result.NoRedactionApplied && textFlags.blockUnredacted {
		return errors.New("no detector could inspect the input; output withheld")
	}

	_, err = io.WriteString(cmd.OutOrStdout(), result.Text())
	return err
}

func printAudit(w io.Writer, result *core.RedactionResult) {
	fmt.Fprintf(w, "run %s: %d spans applied\n", result.RunID, len(result.AppliedSpans))
	for _, s := range result.AppliedSpans {
		fmt.Fprintf(w, "  %s confidence=%.2f\n", s, s.Confidence)
	}
	for _, d := range result.Detectors {
		line := fmt.Sprintf("  detector %s: %s, %d spans", d.ID, d.Status, d.SpanCount)
		if d.Dropped > 0 {
			line += fmt.Sprintf(", %d dropped", d.Dropped)
		}
		if d.Status == core.StatusTruncated {
			line += fmt.Sprintf(", scanned %d bytes", d.ScannedUpTo)
		}
		if d.Err != "" {
			line += ": " + d.Err
		}
		fmt.Fprintln(w, line)
	}
	if result.NoRedactionApplied {
		fmt.Fprintln(w, "  WARNING: no redaction applied, output equals input")
	}
}
