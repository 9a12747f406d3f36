package chat

import (
	"context"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/futig/foodsafety-backend/internal/pkg/formatter"
)

type ChatUsecase interface {
	Chat(ctx context.Context, userID string, req *entity.ChatRequest) (*entity.ChatResponse, error)
}

type FormatterFactory interface {
	Create(format entity.ExportFormat) (formatter.Formatter, error)
}
