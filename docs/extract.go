package docs

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Extractor turns one file into plain text
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorFunc adapts a plain function into an Extractor
type ExtractorFunc func(ctx context.Context, path string) (string, error)

// Extract calls f
func (f ExtractorFunc) Extract(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// TextExtractor reads plain-text files. UTF-8 is used when the content is
// valid UTF-8, a byte order mark selects UTF-16, and anything else is
// decoded as Windows-1252.
type TextExtractor struct {
	// MaxSize rejects files larger than this many bytes (0 means unlimited)
	MaxSize int64
}

// Extract reads and decodes the file at path
func (e TextExtractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if e.MaxSize > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		if info.Size() > e.MaxSize {
			return "", fmt.Errorf("file is %d bytes, limit is %d", info.Size(), e.MaxSize)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return decodeText(raw)
}

func decodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return strings.TrimPrefix(string(raw), "\ufeff"), nil
	}

	decoder := unicode.BOMOverride(charmap.Windows1252.NewDecoder())
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(out), nil
}
