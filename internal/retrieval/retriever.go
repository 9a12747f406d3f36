package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPerQueryTopK = 10
	DefaultMinScore     = 0.3
	DefaultMaxResults   = 30
	DefaultMaxParallel  = 4

	// fingerprintLength is the text prefix used to detect the same passage reached by several probes.
	fingerprintLength = 100
)

// CorpusReader loads the county-scoped corpus.
type CorpusReader interface {
	ListByCounty(ctx context.Context, county string) ([]entity.Chunk, error)
}

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Options struct {
	PerQueryTopK int
	MinScore     float64
	MaxResults   int
	MaxParallel  int
}

func DefaultOptions() Options {
	return Options{
		PerQueryTopK: DefaultPerQueryTopK,
		MinScore:     DefaultMinScore,
		MaxResults:   DefaultMaxResults,
		MaxParallel:  DefaultMaxParallel,
	}
}

// Outcome is the merged result of a multi-query search.
type Outcome struct {
	Results        []entity.ScoredResult
	QueriesIssued  int
	QueriesFailed  int
	CorpusSize     int
	CandidateCount int
}

type Retriever struct {
	corpus   CorpusReader
	embedder QueryEmbedder
	opts     Options
}

func NewRetriever(corpus CorpusReader, embedder QueryEmbedder, opts Options) *Retriever {
	defaults := DefaultOptions()
	if opts.PerQueryTopK <= 0 {
		opts.PerQueryTopK = defaults.PerQueryTopK
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaults.MaxResults
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaults.MaxParallel
	}
	return &Retriever{corpus: corpus, embedder: embedder, opts: opts}
}

// Search embeds query and returns the topK chunks of county ranked by similarity.
func (r *Retriever) Search(ctx context.Context, query string, topK int, county string) ([]entity.ScoredResult, error) {
	chunks, err := r.corpus.ListByCounty(ctx, county)
	if err != nil {
		return nil, fmt.Errorf("load corpus for county %s: %w", county, err)
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return scoreChunks(vector, chunks, topK), nil
}

// SearchVariants runs every query variant against the county corpus and ranks the merged results.
// A variant whose embedding fails contributes nothing; the call fails only when all variants fail.
func (r *Retriever) SearchVariants(ctx context.Context, queries []string, county string) (*Outcome, error) {
	outcome := &Outcome{QueriesIssued: len(queries)}
	if len(queries) == 0 {
		return outcome, nil
	}

	chunks, err := r.corpus.ListByCounty(ctx, county)
	if err != nil {
		return nil, fmt.Errorf("load corpus for county %s: %w", county, err)
	}
	outcome.CorpusSize = len(chunks)

	if len(chunks) == 0 {
		ctxzap.Info(ctx, "county corpus is empty", zap.String("county", county))
		return outcome, nil
	}

	perQuery := make([][]entity.ScoredResult, len(queries))
	failures := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.MaxParallel)
	for i, query := range queries {
		g.Go(func() error {
			vector, err := r.embedder.Embed(gctx, query)
			if err != nil {
				failures[i] = err
				ctxzap.Warn(ctx, "query variant embedding failed",
					zap.Int("variant", i),
					zap.Error(err),
				)
				return nil
			}
			perQuery[i] = scoreChunks(vector, chunks, r.opts.PerQueryTopK)
			return nil
		})
	}
	_ = g.Wait()

	var merged []entity.ScoredResult
	for i := range queries {
		if failures[i] != nil {
			outcome.QueriesFailed++
			continue
		}
		merged = append(merged, perQuery[i]...)
	}
	outcome.CandidateCount = len(merged)

	if outcome.QueriesFailed == len(queries) {
		return nil, fmt.Errorf("all %d query variants failed: %w", len(queries), failures[0])
	}

	outcome.Results = Rank(merged, r.opts.MinScore, r.opts.MaxResults)

	ctxzap.Debug(ctx, "retrieval completed",
		zap.String("county", county),
		zap.Int("corpus_size", outcome.CorpusSize),
		zap.Int("candidates", outcome.CandidateCount),
		zap.Int("results", len(outcome.Results)),
		zap.Int("failed_variants", outcome.QueriesFailed),
	)

	return outcome, nil
}

// Rank keeps results scoring above minScore, drops repeats of the same passage (first occurrence wins),
// orders the rest by descending score and truncates to maxResults.
func Rank(results []entity.ScoredResult, minScore float64, maxResults int) []entity.ScoredResult {
	seen := make(map[string]struct{}, len(results))
	ranked := make([]entity.ScoredResult, 0, len(results))

	for _, res := range results {
		if res.Score <= minScore {
			continue
		}
		key := fingerprint(res.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ranked = append(ranked, res)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if maxResults > 0 && len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}
	return ranked
}

func scoreChunks(query []float32, chunks []entity.Chunk, topK int) []entity.ScoredResult {
	scored := make([]entity.ScoredResult, 0, len(chunks))
	for _, chunk := range chunks {
		scored = append(scored, entity.ScoredResult{
			Chunk: chunk,
			Score: CosineSimilarity(query, chunk.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

func fingerprint(text string) string {
	runes := []rune(text)
	if len(runes) > fingerprintLength {
		runes = runes[:fingerprintLength]
	}
	return string(runes)
}
