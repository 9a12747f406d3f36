package ingest

import (
	"context"
	"io"

	"github.com/futig/foodsafety-backend/internal/entity"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, filename string, content io.ReaderAt, size int64) ([]entity.DocumentPage, error)
}

type CountyCatalog interface {
	Contains(id string) bool
}
