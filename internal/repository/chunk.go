package repository

import (
	"context"

	"github.com/futig/foodsafety-backend/internal/entity"
)

// ChunkRepository persists the embedded corpus.
type ChunkRepository interface {
	Insert(ctx context.Context, chunk *entity.Chunk) error
	// InsertMany stores a batch atomically: either every chunk is written or none is.
	InsertMany(ctx context.Context, chunks []*entity.Chunk) error
	ListByCounty(ctx context.Context, county string) ([]entity.Chunk, error)
	NextChunkIndex(ctx context.Context, county, source string) (int, error)
	ListSources(ctx context.Context, county string) ([]entity.SourceSummary, error)
	DeleteSource(ctx context.Context, county, source string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}
