package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SamuelRCrider/redact-go/core"
	"github.com/SamuelRCrider/redact-go/llm"

	"github.com/spf13/cobra"
)

var briefFlags struct {
	path            string
	topic           string
	output          string
	format          string
	mcpServer       string
	tool            string
	model           string
	timeout         time.Duration
	noGuard         bool
	blockUnredacted bool
}

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Generate a meeting briefing from redacted documents or a topic",
	Long: `Generate a technical meeting briefing through a language model tool served
over MCP (stdio).

With --path, every supported document is redacted first and only the redacted
text is placed in the prompt. Before the prompt is sent it is scanned again
with the structured patterns; any finding aborts the call. With --topic, the
briefing is generated from the topic alone.

The MCP server is taken from --mcp-server, REDACT_MCP_SERVER or MCP_SERVER_PATH.

Examples:
  # Brief on a folder of meeting documents
  redact brief --path ./meeting-docs --output briefing.json

  # Brief on a topic as markdown
  redact brief --topic "event streaming with Kafka" --format markdown`,
	RunE: runBrief,
}

func init() {
	rootCmd.AddCommand(briefCmd)

	briefCmd.Flags().StringVarP(&briefFlags.path, "path", "p", "", "folder or file of documents to brief on")
	briefCmd.Flags().StringVarP(&briefFlags.topic, "topic", "t", "", "topic to brief on without documents")
	briefCmd.Flags().StringVarP(&briefFlags.output, "output", "o", "", "write the briefing here instead of stdout")
	briefCmd.Flags().StringVar(&briefFlags.format, "format", "json", "output format: json, markdown")
	briefCmd.Flags().StringVar(&briefFlags.mcpServer, "mcp-server", "", "MCP server command line")
	briefCmd.Flags().StringVar(&briefFlags.tool, "tool", "", "MCP tool name (default from MCP_TOOL_NAME)")
	briefCmd.Flags().StringVar(&briefFlags.model, "model", "", "model passed to the tool (default from MCP_MODEL)")
	briefCmd.Flags().DurationVar(&briefFlags.timeout, "timeout", 2*time.Minute, "timeout for one tool call")
	briefCmd.Flags().BoolVar(&briefFlags.noGuard, "no-guard", false, "skip the final pattern scan of the prompt")
	briefCmd.Flags().BoolVar(&briefFlags.blockUnredacted, "block-unredacted", true, "drop documents no detector could inspect")
	briefCmd.MarkFlagsMutuallyExclusive("path", "topic")
}

func runBrief(cmd *cobra.Command, args []string) error {
	if err := checkBriefFlags(); err != nil {
		return err
	}

	server, err := llm.DiscoverMCPServer(briefFlags.mcpServer)
	if err != nil {
		return err
	}
	client, err := llm.ConnectStdio(cmd.Context(), server)
	if err != nil {
		return err
	}
	defer client.Close()

	return generateBrief(cmd, client)
}

func checkBriefFlags() error {
	if (briefFlags.path == "") == (briefFlags.topic == "") {
		return errors.New("exactly one of --path or --topic is required")
	}
	switch briefFlags.format {
	case "json", "markdown":
		return nil
	default:
		return fmt.Errorf("invalid --format %q (want json or markdown)", briefFlags.format)
	}
}

// generateBrief runs the briefing against caller and writes the report
func generateBrief(cmd *cobra.Command, caller llm.ToolCaller) error {
	if err := checkBriefFlags(); err != nil {
		return err
	}

	config := llm.DefaultNarratorConfig()
	if briefFlags.tool != "" {
		config.ToolName = briefFlags.tool
	}
	if briefFlags.model != "" {
		config.Model = briefFlags.model
	}
	config.Timeout = briefFlags.timeout

	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	opts := []llm.Option{llm.WithLogger(slog.Default())}
	if !briefFlags.noGuard {
		guard, err := core.NewPatternDetector(core.PatternConfig{
			ID:             "prompt-guard",
			CustomPatterns: env.config.CustomPatterns,
		})
		if err != nil {
			return err
		}
		opts = append(opts, llm.WithGuard(llm.NewPromptGuard(guard)))
	}

	narrator, err := llm.NewNarrator(caller, config, opts...)
	if err != nil {
		return err
	}

	var report *llm.Report
	if briefFlags.topic != "" {
		report, err = narrator.FromTopic(cmd.Context(), briefFlags.topic)
	} else {
		report, err = briefDocuments(cmd, env, narrator)
	}
	if err != nil {
		return err
	}

	var data []byte
	if briefFlags.format == "markdown" {
		data = []byte(report.Markdown())
	} else {
		data, err = json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode briefing: %w", err)
		}
		data = append(data, '\n')
	}
	return writeOutput(cmd, briefFlags.output, data)
}

// briefDocuments redacts the documents and their filenames, then briefs on them
func briefDocuments(cmd *cobra.Command, env *environment, narrator *llm.Narrator) (*llm.Report, error) {
	batch, err := processDocuments(cmd, env, briefFlags.path, briefFlags.blockUnredacted, 0)
	if err != nil {
		return nil, err
	}
	if len(batch.Documents) == 0 {
		return nil, fmt.Errorf("no documents to brief on in %s", briefFlags.path)
	}

	sources := make([]llm.Source, len(batch.Documents))
	for i, d := range batch.Documents {
		name, err := env.pipeline.Redact(cmd.Context(), d.Filename)
		if err != nil {
			return nil, err
		}
		sources[i] = llm.Source{Filename: name.Text(), Content: d.Content}
	}
	return narrator.FromDocuments(cmd.Context(), sources)
}
