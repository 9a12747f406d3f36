package chat

import (
	"context"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/futig/foodsafety-backend/internal/integration/llm"
	"github.com/futig/foodsafety-backend/internal/retrieval"
)

type Retriever interface {
	SearchVariants(ctx context.Context, queries []string, county string) (*retrieval.Outcome, error)
}

type LLMConnector interface {
	Generate(ctx context.Context, req *llm.GenerateRequest) (string, error)
}

type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*entity.Profile, error)
	IncrementUsage(ctx context.Context, userID string) error
}

type CountyCatalog interface {
	Contains(id string) bool
}
