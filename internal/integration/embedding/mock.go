package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const mockDimension = 64

var _ embedding.Embedder = (*MockEmbedder)(nil)

// MockEmbedder produces deterministic bag-of-words vectors, so texts sharing words score as similar.
type MockEmbedder struct {
	dim int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{dim: mockDimension}
}

func (m *MockEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	ctxzap.Debug(ctx, "[MOCK] embedding texts", zap.Int("count", len(texts)))

	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = m.vector(text)
	}
	return out, nil
}

func (m *MockEmbedder) vector(text string) []float64 {
	vec := make([]float64, m.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?()[]\"'")
		if word == "" {
			continue
		}
		sum := sha256.Sum256([]byte(word))
		idx := binary.BigEndian.Uint32(sum[:4]) % uint32(m.dim)
		vec[idx] += 1
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
