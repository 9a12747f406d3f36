package formatter

import (
	"fmt"
	"strings"

	"github.com/futig/foodsafety-backend/internal/entity"
)

const (
	baseTitle     = "Food Safety Compliance Answer"
	sourcesTitle  = "Sources"
	questionLabel = "Question"
	countyLabel   = "County"
	disclaimer    = "This answer is based on county regulation documents and is not legal advice. Confirm requirements with your local health department."
)

type Formatter interface {
	Format(answer *entity.ExportRequest) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct {
	docx bool
}

type FactoryOption func(*Factory)

// WithDOCX enables DOCX export. It needs an activated office license.
func WithDOCX() FactoryOption {
	return func(f *Factory) {
		f.docx = true
	}
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) Create(format entity.ExportFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		if !f.docx {
			return nil, fmt.Errorf("%w: docx export is disabled without an office license", entity.ErrConfiguration)
		}
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", entity.ErrInvalidFormat, format)
	}
}

// citationLine renders one source entry, e.g. "Food Code 2022, Pages 45-47".
func citationLine(c entity.Citation) string {
	label := "Page"
	if strings.ContainsAny(c.Pages, ",-–") {
		label = "Pages"
	}
	return fmt.Sprintf("%s, %s %s", c.Document, label, c.Pages)
}

// plainText drops markdown emphasis for formats that render text verbatim.
func plainText(text string) string {
	return strings.NewReplacer("**", "", "__", "").Replace(text)
}
