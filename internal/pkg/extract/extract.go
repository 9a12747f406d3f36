package extract

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/futig/foodsafety-backend/internal/entity"
)

// Extractor turns a document into per-page text.
type Extractor interface {
	Extract(ctx context.Context, r io.ReaderAt, size int64) ([]entity.DocumentPage, error)
}

// Registry picks an extractor by file extension.
type Registry struct {
	extractors map[string]Extractor
}

type Option func(*Registry)

// WithDOCX enables .docx extraction. It needs an activated office license.
func WithDOCX() Option {
	return func(r *Registry) {
		r.extractors[".docx"] = &DocxExtractor{}
	}
}

func NewRegistry(opts ...Option) *Registry {
	plain := &PlainExtractor{}
	r := &Registry{
		extractors: map[string]Extractor{
			".pdf":      &PDFExtractor{},
			".html":     &HTMLExtractor{},
			".htm":      &HTMLExtractor{},
			".txt":      plain,
			".md":       plain,
			".markdown": plain,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supported reports whether filename has an extension with a registered extractor.
func (r *Registry) Supported(filename string) bool {
	_, ok := r.extractors[extension(filename)]
	return ok
}

func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	return exts
}

// Extract dispatches on the filename extension and drops pages without text.
func (r *Registry) Extract(ctx context.Context, filename string, content io.ReaderAt, size int64) ([]entity.DocumentPage, error) {
	ext := extension(filename)
	extractor, ok := r.extractors[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedFileType, ext)
	}

	pages, err := extractor.Extract(ctx, content, size)
	if err != nil {
		return nil, err
	}

	nonEmpty := pages[:0]
	for _, page := range pages {
		page.Text = normalize(page.Text)
		if page.Text != "" {
			nonEmpty = append(nonEmpty, page)
		}
	}
	if len(nonEmpty) == 0 {
		return nil, fmt.Errorf("%w: %s", entity.ErrNoExtractableText, filepath.Base(filename))
	}
	return nonEmpty, nil
}

func extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// normalize trims trailing spaces and collapses runs of blank lines.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t ")
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func readAll(r io.ReaderAt, size int64) ([]byte, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

// PlainExtractor handles text and markdown files as a single unpaginated page.
type PlainExtractor struct{}

func (e *PlainExtractor) Extract(_ context.Context, r io.ReaderAt, size int64) ([]entity.DocumentPage, error) {
	data, err := readAll(r, size)
	if err != nil {
		return nil, err
	}
	return []entity.DocumentPage{{Text: string(data)}}, nil
}
