package document

import (
	"context"

	"github.com/futig/foodsafety-backend/internal/entity"
)

type IngestUsecase interface {
	IngestText(ctx context.Context, req *entity.IngestTextRequest) (*entity.IngestResult, error)
	IngestFile(ctx context.Context, req *entity.IngestFileRequest) (*entity.IngestResult, error)
	ListSources(ctx context.Context, county string) ([]entity.SourceSummary, error)
	DeleteSource(ctx context.Context, county, source string) (int64, error)
}
