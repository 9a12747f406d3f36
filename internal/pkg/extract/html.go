package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/futig/foodsafety-backend/internal/entity"
)

// HTMLExtractor converts saved regulation pages to markdown, keeping headings and lists.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(_ context.Context, r io.ReaderAt, size int64) ([]entity.DocumentPage, error) {
	data, err := readAll(r, size)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", entity.ErrInvalidFormat, err)
	}
	doc.Find("script, style, noscript, nav, header, footer, iframe").Remove()

	converter := md.NewConverter("", true, nil)
	markdown := converter.Convert(doc.Selection)

	return []entity.DocumentPage{{Text: markdown}}, nil
}
