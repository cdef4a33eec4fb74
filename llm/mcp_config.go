package llm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPServerConfig describes an MCP server reached over stdio
type MCPServerConfig struct {
	// Command is the server executable
	Command string

	// Args are passed to the server on start
	Args []string

	// Env entries ("KEY=value") are added to the server environment
	Env []string
}

// ParseServerCommand splits a command line such as "mcp-server --verbose"
func ParseServerCommand(command string) (MCPServerConfig, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return MCPServerConfig{}, fmt.Errorf("empty MCP server command")
	}
	return MCPServerConfig{Command: fields[0], Args: fields[1:]}, nil
}

// DiscoverMCPServer returns the server to use. An explicit command wins,
// then REDACT_MCP_SERVER, then MCP_SERVER_PATH, then common install paths.
func DiscoverMCPServer(explicit string) (MCPServerConfig, error) {
	if explicit != "" {
		return ParseServerCommand(explicit)
	}

	for _, key := range []string{"REDACT_MCP_SERVER", "MCP_SERVER_PATH"} {
		if command := os.Getenv(key); command != "" {
			return ParseServerCommand(command)
		}
	}

	commonPaths := []string{
		"./mcp-server",
		filepath.Join(os.Getenv("HOME"), ".local/bin/mcp-server"),
		"/usr/local/bin/mcp-server",
	}
	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return MCPServerConfig{Command: path}, nil
		}
	}

	return MCPServerConfig{}, fmt.Errorf("no MCP server found; pass --mcp-server or set REDACT_MCP_SERVER")
}

// DefaultNarratorConfig returns the defaults, overridden by MCP_TOOL_NAME
// and MCP_MODEL when set
func DefaultNarratorConfig() NarratorConfig {
	config := NarratorConfig{
		ToolName:         "llm.generate",
		Model:            "default",
		Temperature:      0.3,
		MaxTokens:        4000,
		Timeout:          2 * time.Minute,
		RetryCount:       2,
		RetryBackoff:     4 * time.Second,
		MaxBackoff:       10 * time.Second,
		MaxContentChars:  10000,
		MaxDocumentChars: 2000,
	}

	if toolName := os.Getenv("MCP_TOOL_NAME"); toolName != "" {
		config.ToolName = toolName
	}
	if model := os.Getenv("MCP_MODEL"); model != "" {
		config.Model = model
	}
	return config
}

// withDefaults fills zero fields from DefaultNarratorConfig
func (c NarratorConfig) withDefaults() NarratorConfig {
	d := DefaultNarratorConfig()
	if c.ToolName == "" {
		c.ToolName = d.ToolName
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.MaxContentChars == 0 {
		c.MaxContentChars = d.MaxContentChars
	}
	if c.MaxDocumentChars == 0 {
		c.MaxDocumentChars = d.MaxDocumentChars
	}
	return c
}

// ConnectStdio starts the server and performs the MCP handshake. The caller
// owns the returned client and must Close it.
func ConnectStdio(ctx context.Context, server MCPServerConfig) (*client.StdioMCPClient, error) {
	mcpClient, err := client.NewStdioMCPClient(server.Command, server.Env, server.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start MCP server %s: %w", server.Command, err)
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "redact-go",
		Version: "1.0.0",
	}
	if _, err := mcpClient.Initialize(ctx, initRequest); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("failed to initialize MCP server %s: %w", server.Command, err)
	}
	return mcpClient, nil
}
