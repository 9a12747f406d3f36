package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/futig/foodsafety-backend/internal/config"
	"github.com/futig/foodsafety-backend/internal/entity"
	pkgRetry "github.com/futig/foodsafety-backend/internal/pkg/retry"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const DefaultBatchSize = 100

// Connector turns text into vectors through an eino embedder, batching large inputs.
type Connector struct {
	embedder  embedding.Embedder
	batchSize int
	timeout   time.Duration
	retry     pkgRetry.RetryConfig
	logger    *zap.Logger
}

func NewConnector(embedder embedding.Embedder, cfg config.EmbeddingConfig, logger *zap.Logger) *Connector {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Connector{
		embedder:  embedder,
		batchSize: batchSize,
		timeout:   cfg.Timeout,
		retry:     cfg.Retry,
		logger:    logger,
	}
}

// Embed embeds a single text.
func (c *Connector) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds texts in provider-sized batches. Any failed batch fails the whole call.
func (c *Connector) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctxzap.Debug(ctx, "embedding texts",
		zap.Int("count", len(texts)),
		zap.Int("batch_size", c.batchSize),
	)

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))

		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		out = append(out, vectors...)
	}

	return out, nil
}

func (c *Connector) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var raw [][]float64
	err := pkgRetry.Do(ctx, c.retry, func() error {
		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		var err error
		raw, err = c.embedder.EmbedStrings(callCtx, texts)
		return err
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w: %v", entity.ErrEmbeddingProvider, entity.ErrRequestTimedOut, err)
		}
		return nil, fmt.Errorf("%w: %v", entity.ErrEmbeddingProvider, err)
	}

	if len(raw) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", entity.ErrEmbeddingProvider, len(texts), len(raw))
	}

	vectors := make([][]float32, len(raw))
	for i, vec := range raw {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: empty vector at position %d", entity.ErrEmbeddingProvider, i)
		}
		vectors[i] = make([]float32, len(vec))
		for j, v := range vec {
			vectors[i][j] = float32(v)
		}
	}

	return vectors, nil
}

// EstimateTokens approximates the token count of text as a quarter of its characters.
func EstimateTokens(text string) int {
	return len([]rune(text)) / 4
}
