package extract

import (
	"context"
	"io"
	"strings"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/futig/foodsafety-backend/internal/pkg/office"
	"github.com/unidoc/unioffice/document"
)

// DocxExtractor flattens paragraphs and table cells into one unpaginated page.
type DocxExtractor struct{}

func (e *DocxExtractor) Extract(_ context.Context, r io.ReaderAt, size int64) ([]entity.DocumentPage, error) {
	doc, err := document.Read(r, size)
	if err != nil {
		return nil, office.WrapError("open docx", err, entity.ErrInvalidFormat)
	}

	var sb strings.Builder
	for _, p := range doc.Paragraphs() {
		writeParagraph(&sb, p)
	}
	for _, table := range doc.Tables() {
		for _, row := range table.Rows() {
			for _, cell := range row.Cells() {
				for _, p := range cell.Paragraphs() {
					writeParagraph(&sb, p)
				}
			}
		}
	}

	return []entity.DocumentPage{{Text: sb.String()}}, nil
}

func writeParagraph(sb *strings.Builder, p document.Paragraph) {
	for _, run := range p.Runs() {
		sb.WriteString(run.Text())
	}
	sb.WriteString("\n")
}
