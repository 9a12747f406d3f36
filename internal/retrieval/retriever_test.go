package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCorpus struct {
	chunks map[string][]entity.Chunk
	err    error
}

func (f *fakeCorpus) ListByCounty(_ context.Context, county string) ([]entity.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks[county], nil
}

// fakeEmbedder maps a query onto a fixed vector; unknown queries fail.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	v, ok := f.vectors[text]
	if !ok {
		return nil, fmt.Errorf("%w: no vector for %q", entity.ErrEmbeddingProvider, text)
	}
	return v, nil
}

func chunk(source, county, text string, page int, embedding ...float32) entity.Chunk {
	return entity.Chunk{Source: source, County: county, Text: text, Page: &page, Embedding: embedding}
}

func TestRank_ThresholdDedupeOrderAndCap(t *testing.T) {
	prefix := strings.Repeat("p", 100)
	results := []entity.ScoredResult{
		{Chunk: entity.Chunk{Text: "low"}, Score: 0.3},
		{Chunk: entity.Chunk{Text: prefix + " first copy"}, Score: 0.5},
		{Chunk: entity.Chunk{Text: "best"}, Score: 0.9},
		{Chunk: entity.Chunk{Text: prefix + " second copy"}, Score: 0.8},
		{Chunk: entity.Chunk{Text: "negative"}, Score: -0.4},
	}

	ranked := Rank(results, 0.3, 30)
	require.Len(t, ranked, 2)
	assert.Equal(t, "best", ranked[0].Text)
	assert.Equal(t, prefix+" first copy", ranked[1].Text)
}

func TestRank_Cap(t *testing.T) {
	results := make([]entity.ScoredResult, 0, 50)
	for i := 0; i < 50; i++ {
		results = append(results, entity.ScoredResult{
			Chunk: entity.Chunk{Text: fmt.Sprintf("passage %d", i)},
			Score: 0.31 + float64(i)/100,
		})
	}

	ranked := Rank(results, 0.3, 30)
	require.Len(t, ranked, 30)
	assert.Equal(t, "passage 49", ranked[0].Text)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

func TestSearch_TopKWithinCounty(t *testing.T) {
	corpus := &fakeCorpus{chunks: map[string][]entity.Chunk{
		"washtenaw": {
			chunk("code.pdf", "washtenaw", "near", 1, 1, 0.1),
			chunk("code.pdf", "washtenaw", "far", 2, 0, 1),
			chunk("code.pdf", "washtenaw", "exact", 3, 1, 0),
		},
		"wayne": {chunk("other.pdf", "wayne", "exact elsewhere", 1, 1, 0)},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}

	r := NewRetriever(corpus, embedder, DefaultOptions())
	results, err := r.Search(context.Background(), "q", 2, "washtenaw")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].Text)
	assert.Equal(t, "near", results[1].Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestSearchVariants_PoultryTemperature(t *testing.T) {
	poultry := "Poultry must reach an internal temperature of 165°F for 15 seconds. " + strings.Repeat("Applies to all raw poultry. ", 4)
	corpus := &fakeCorpus{chunks: map[string][]entity.Chunk{
		"washtenaw": {
			chunk("Food Code.pdf", "washtenaw", poultry, 42, 0.9, 0.1, 0),
			chunk("Food Code.pdf", "washtenaw", "Handwashing sinks must be accessible at all times.", 12, 0, 0, 1),
		},
	}}

	q := "What temperature should chicken be cooked to?"
	variants := BuildQueryVariants(q, false)
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		variants[0]: {1, 0, 0},
		variants[1]: {0.8, 0.2, 0},
		variants[2]: {0.7, 0.3, 0.1},
	}}

	r := NewRetriever(corpus, embedder, DefaultOptions())
	outcome, err := r.SearchVariants(context.Background(), variants, "washtenaw")
	require.NoError(t, err)

	require.Len(t, outcome.Results, 1, "same passage from three variants is kept once and the unrelated one is below threshold")
	assert.Contains(t, outcome.Results[0].Text, "165°F")
	assert.Greater(t, outcome.Results[0].Score, 0.3)
	assert.Equal(t, 3, outcome.QueriesIssued)
	assert.Zero(t, outcome.QueriesFailed)
	assert.Len(t, embedder.calls, 3)
}

func TestSearchVariants_FailedVariantIsSkipped(t *testing.T) {
	corpus := &fakeCorpus{chunks: map[string][]entity.Chunk{
		"washtenaw": {chunk("a.pdf", "washtenaw", "cold holding at 41°F or below", 1, 1, 0)},
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{"ok": {1, 0}}}

	r := NewRetriever(corpus, embedder, DefaultOptions())
	outcome, err := r.SearchVariants(context.Background(), []string{"broken", "ok"}, "washtenaw")
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.QueriesFailed)
	require.Len(t, outcome.Results, 1)
}

func TestSearchVariants_AllVariantsFail(t *testing.T) {
	corpus := &fakeCorpus{chunks: map[string][]entity.Chunk{
		"washtenaw": {chunk("a.pdf", "washtenaw", "text", 1, 1, 0)},
	}}
	r := NewRetriever(corpus, &fakeEmbedder{}, DefaultOptions())

	_, err := r.SearchVariants(context.Background(), []string{"x", "y"}, "washtenaw")
	require.ErrorIs(t, err, entity.ErrEmbeddingProvider)
}

func TestSearchVariants_EmptyCountyCorpus(t *testing.T) {
	embedder := &fakeEmbedder{}
	r := NewRetriever(&fakeCorpus{}, embedder, DefaultOptions())

	outcome, err := r.SearchVariants(context.Background(), []string{"anything"}, "oakland")
	require.NoError(t, err)
	assert.Empty(t, outcome.Results)
	assert.Empty(t, embedder.calls, "no embedding calls for an empty corpus")
}

func TestSearchVariants_CorpusError(t *testing.T) {
	r := NewRetriever(&fakeCorpus{err: errors.New("db down")}, &fakeEmbedder{}, DefaultOptions())

	_, err := r.SearchVariants(context.Background(), []string{"q"}, "washtenaw")
	require.Error(t, err)
}

func TestBuildQueryVariants(t *testing.T) {
	text := BuildQueryVariants(" raw chicken storage ", false)
	assert.Equal(t, []string{
		"raw chicken storage",
		"raw chicken storage requirements regulations",
		"raw chicken storage violations standards",
	}, text)

	image := BuildQueryVariants("is this sink ok?", true)
	assert.Len(t, image, len(imageProbes)+1)
	assert.Equal(t, "is this sink ok?", image[len(image)-1])

	assert.Len(t, BuildQueryVariants("", true), len(imageProbes))
	assert.Empty(t, BuildQueryVariants("  ", false))
}
