package builder

import (
	"context"
	"fmt"

	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/futig/foodsafety-backend/internal/api/middleware"
	"github.com/futig/foodsafety-backend/internal/config"
	"github.com/futig/foodsafety-backend/internal/integration/auth"
	"github.com/futig/foodsafety-backend/internal/integration/embedding"
	"github.com/futig/foodsafety-backend/internal/integration/llm"
	"github.com/futig/foodsafety-backend/internal/pkg/extract"
	"github.com/futig/foodsafety-backend/internal/pkg/formatter"
	"github.com/futig/foodsafety-backend/internal/pkg/office"
	"go.uber.org/zap"
)

// setupEmbedder builds the embedding connector, mocked when ENABLE_MOCKS is set
func setupEmbedder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*embedding.Connector, error) {
	var embedder einoEmbedding.Embedder
	if cfg.EnableMocks {
		logger.Info("Using mock embedder")
		embedder = embedding.NewMockEmbedder()
	} else {
		var err error
		embedder, err = embedding.NewOpenAIEmbedder(ctx, cfg.EmbeddingCfg)
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		logger.Info("Using OpenAI embedder", zap.String("model", cfg.EmbeddingCfg.Model))
	}
	return embedding.NewConnector(embedder, cfg.EmbeddingCfg, logger), nil
}

// setupLLM builds the generation connector, mocked when ENABLE_MOCKS is set
func setupLLM(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*llm.Connector, error) {
	var chatModel model.BaseChatModel
	if cfg.EnableMocks {
		logger.Info("Using mock chat model")
		chatModel = llm.NewMockChatModel()
	} else {
		var err error
		chatModel, err = llm.NewGeminiModel(ctx, cfg.LLMCfg)
		if err != nil {
			return nil, fmt.Errorf("create chat model: %w", err)
		}
		logger.Info("Using Gemini chat model",
			zap.String("model", cfg.LLMCfg.Model),
			zap.Bool("vertex", cfg.LLMCfg.UseVertex()),
		)
	}
	return llm.NewConnector(chatModel, cfg.LLMCfg, logger), nil
}

func setupTokenVerifier(cfg *config.Config, logger *zap.Logger) middleware.TokenVerifier {
	if cfg.EnableMocks {
		return auth.NewMockConnector(logger)
	}
	return auth.NewConnector(cfg.AuthCfg, logger)
}

type officeOptions struct {
	extract []extract.Option
	export  []formatter.FactoryOption
}

// setupOffice activates unioffice and enables DOCX upload and export only when a key is configured
func setupOffice(cfg *config.Config, logger *zap.Logger) officeOptions {
	if cfg.UnidocLicenseKey == "" {
		logger.Warn("UNIDOC_LICENSE_API_KEY not set, DOCX upload and export disabled")
		return officeOptions{}
	}
	if err := office.Activate(cfg.UnidocLicenseKey); err != nil {
		logger.Error("Failed to activate office license, DOCX upload and export disabled", zap.Error(err))
		return officeOptions{}
	}
	logger.Info("Office license activated, DOCX enabled")
	return officeOptions{
		extract: []extract.Option{extract.WithDOCX()},
		export:  []formatter.FactoryOption{formatter.WithDOCX()},
	}
}
