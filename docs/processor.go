// Package docs walks a document folder, extracts each supported file's text
// and redacts it before anything else sees the content.
package docs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/SamuelRCrider/redact-go/core"
)

// Redactor redacts one text. *core.Pipeline implements it.
type Redactor interface {
	Redact(ctx context.Context, text string) (*core.RedactionResult, error)
}

// Document is one processed file. Content is already redacted.
type Document struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Content  string `json:"content"`

	// Audit is the redaction result; it stays in process
	Audit *core.RedactionResult `json:"-"`
}

// Batch is the outcome of processing a folder
type Batch struct {
	Documents []Document `json:"documents"`
	Warnings  []string   `json:"warnings,omitempty"`
}

// Options configures a Processor
type Options struct {
	// Extractors adds or replaces extractors by file extension (".pdf")
	Extractors map[string]Extractor

	// BlockUnredacted drops documents that no detector could redact
	BlockUnredacted bool

	// MaxFileSize bounds the built-in text extractor (0 means unlimited)
	MaxFileSize int64

	Logger *slog.Logger
}

// Processor extracts and redacts documents
type Processor struct {
	redactor        Redactor
	extractors      map[string]Extractor
	blockUnredacted bool
	logger          *slog.Logger
}

// NewProcessor creates a processor that redacts through r
func NewProcessor(r Redactor, opts Options) *Processor {
	text := TextExtractor{MaxSize: opts.MaxFileSize}
	extractors := map[string]Extractor{
		".txt": text,
		".md":  text,
	}
	for ext, e := range opts.Extractors {
		extractors[normalizeExt(ext)] = e
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		redactor:        r,
		extractors:      extractors,
		blockUnredacted: opts.BlockUnredacted,
		logger:          logger,
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// SupportedExtensions returns the registered extensions in sorted order
func (p *Processor) SupportedExtensions() []string {
	exts := make([]string, 0, len(p.extractors))
	for ext := range p.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Process extracts and redacts every supported file under root, which may
// also be a single file. Extraction failures become warnings. Cancellation
// and redaction invariant violations abort the batch.
func (p *Processor) Process(ctx context.Context, root string) (*Batch, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("document path %s: %w", root, err)
	}

	var files []string
	if info.IsDir() {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && p.supported(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	} else if p.supported(root) {
		files = append(files, root)
	}

	batch := &Batch{Documents: []Document{}}
	if len(files) == 0 {
		batch.warn(p.logger, fmt.Sprintf("no supported documents found in %s (supported: %s)",
			root, strings.Join(p.SupportedExtensions(), ", ")))
		return batch, nil
	}

	for _, path := range files {
		doc, err := p.processFile(ctx, root, path, batch)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			batch.Documents = append(batch.Documents, *doc)
		}
	}

	p.logger.Info("documents processed",
		"root", root,
		"documents", len(batch.Documents),
		"warnings", len(batch.Warnings),
	)
	return batch, nil
}

func (p *Processor) supported(path string) bool {
	_, ok := p.extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// processFile returns nil without error when the file was skipped
func (p *Processor) processFile(ctx context.Context, root, path string, batch *Batch) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	name := filepath.Base(path)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		rel = name
	}

	p.logger.Debug("processing document", "path", rel)

	text, err := p.extractors[ext].Extract(ctx, path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		batch.warn(p.logger, fmt.Sprintf("could not extract %s: %v", rel, err))
		return nil, nil
	}

	result, err := p.redactor.Redact(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("redact %s: %w", rel, err)
	}

	if result.NoRedactionApplied {
		if p.blockUnredacted {
			batch.warn(p.logger, fmt.Sprintf("skipped %s: no detector could redact it", rel))
			return nil, nil
		}
		batch.warn(p.logger, fmt.Sprintf("%s was not redacted: no detector available", rel))
	} else if missing := result.MissingDetectors(); len(missing) > 0 {
		batch.warn(p.logger, fmt.Sprintf("%s redacted without detectors: %s", rel, strings.Join(missing, ", ")))
	}
	if truncated := result.Truncated(); len(truncated) > 0 {
		batch.warn(p.logger, fmt.Sprintf("%s only partially scanned by: %s", rel, strings.Join(truncated, ", ")))
	}

	return &Document{
		Filename: name,
		Path:     rel,
		Type:     ext,
		Content:  result.Text(),
		Audit:    result,
	}, nil
}

func (b *Batch) warn(logger *slog.Logger, msg string) {
	b.Warnings = append(b.Warnings, msg)
	logger.Warn(msg)
}
