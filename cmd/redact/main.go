// Redact removes PII from free-form text and document folders before the text
// is handed to a language model.
//
// Usage:
//
//	# Redact a file, printing the applied spans to stderr
//	redact text notes.txt --audit
//
//	# Redact standard input with a custom config
//	cat notes.txt | redact text --config redaction.yaml
//
//	# Redact every supported document in a folder as JSON
//	redact docs --path ./meeting-docs
//
//	# Brief on a folder through an MCP language model server
//	redact brief --path ./meeting-docs --output briefing.json --mcp-server ./llm-server
//
//	# Write and check config files
//	redact config init
//	redact config validate config/default_redaction.yaml
package main

import (
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	Execute()
}
