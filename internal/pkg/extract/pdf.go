package extract

import (
	"context"
	"fmt"
	"io"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads text page by page so citations can carry page numbers.
type PDFExtractor struct{}

func (e *PDFExtractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (pages []entity.DocumentPage, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("%w: malformed pdf: %v", entity.ErrInvalidFormat, rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", entity.ErrInvalidFormat, err)
	}

	total := reader.NumPage()
	pages = make([]entity.DocumentPage, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", entity.ErrInvalidFormat, i, err)
		}

		num := i
		pages = append(pages, entity.DocumentPage{Page: &num, Text: text})
	}
	return pages, nil
}
