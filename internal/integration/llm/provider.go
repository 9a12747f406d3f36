package llm

import (
	"context"
	"fmt"

	geminiModel "github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/futig/foodsafety-backend/internal/config"
	"google.golang.org/genai"
)

// NewGeminiModel creates a Gemini chat model, through Vertex AI when a project is configured.
func NewGeminiModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.UseVertex() {
		clientCfg = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return geminiModel.NewChatModel(ctx, &geminiModel.Config{
		Client: client,
		Model:  cfg.Model,
	})
}
