package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/futig/foodsafety-backend/internal/integration/embedding"
	"github.com/futig/foodsafety-backend/internal/pkg/logger"
	"github.com/futig/foodsafety-backend/internal/repository"
	"github.com/futig/foodsafety-backend/internal/retrieval"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// IngestUsecase turns documents into embedded, county-tagged chunks.
type IngestUsecase struct {
	chunkRepo      repository.ChunkRepository
	embedder       Embedder
	extractor      TextExtractor
	counties       CountyCatalog
	chunker        *retrieval.Chunker
	minChunkLength int
	now            func() time.Time
}

func NewUsecase(
	chunkRepo repository.ChunkRepository,
	embedder Embedder,
	extractor TextExtractor,
	counties CountyCatalog,
	chunker *retrieval.Chunker,
	minChunkLength int,
) *IngestUsecase {
	if minChunkLength < entity.MinChunkLength {
		minChunkLength = entity.MinChunkLength
	}
	return &IngestUsecase{
		chunkRepo:      chunkRepo,
		embedder:       embedder,
		extractor:      extractor,
		counties:       counties,
		chunker:        chunker,
		minChunkLength: minChunkLength,
		now:            time.Now,
	}
}

type pendingChunk struct {
	text string
	page *int
}

// IngestText chunks, embeds and stores a block of already extracted text.
func (uc *IngestUsecase) IngestText(ctx context.Context, req *entity.IngestTextRequest) (*entity.IngestResult, error) {
	county, err := uc.checkTarget(req.Source, req.County)
	if err != nil {
		return nil, err
	}

	ctx = logger.AddFields(ctx, zap.String("source", req.Source), zap.String("county", county))
	return uc.ingestPages(ctx, req.Source, county, []entity.DocumentPage{{Page: req.Page, Text: req.Text}})
}

// IngestFile extracts the document by extension and ingests every page.
// Source defaults to the file's base name.
func (uc *IngestUsecase) IngestFile(ctx context.Context, req *entity.IngestFileRequest) (*entity.IngestResult, error) {
	source := req.Source
	if source == "" {
		source = filepath.Base(req.Filename)
	}
	county, err := uc.checkTarget(source, req.County)
	if err != nil {
		return nil, err
	}

	ctx = logger.AddFields(ctx, zap.String("source", source), zap.String("county", county))

	pages, err := uc.extractor.Extract(ctx, req.Filename, req.Content, req.Size)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", req.Filename, err)
	}

	ctxzap.Info(ctx, "document extracted", zap.Int("pages", len(pages)))
	return uc.ingestPages(ctx, source, county, pages)
}

// Rebuild drops the whole corpus before a full re-ingestion.
func (uc *IngestUsecase) Rebuild(ctx context.Context) (int64, error) {
	deleted, err := uc.chunkRepo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear corpus: %w", err)
	}
	ctxzap.Info(ctx, "corpus cleared", zap.Int64("chunks_deleted", deleted))
	return deleted, nil
}

func (uc *IngestUsecase) ListSources(ctx context.Context, county string) ([]entity.SourceSummary, error) {
	county = entity.NormalizeCounty(county)
	if county != "" && !uc.counties.Contains(county) {
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidCounty, county)
	}

	sources, err := uc.chunkRepo.ListSources(ctx, county)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return sources, nil
}

func (uc *IngestUsecase) DeleteSource(ctx context.Context, county, source string) (int64, error) {
	county, err := uc.checkTarget(source, county)
	if err != nil {
		return 0, err
	}

	deleted, err := uc.chunkRepo.DeleteSource(ctx, county, source)
	if err != nil {
		return 0, fmt.Errorf("delete source %s: %w", source, err)
	}

	ctxzap.Info(ctx, "source deleted",
		zap.String("source", source),
		zap.String("county", county),
		zap.Int64("chunks_deleted", deleted),
	)
	return deleted, nil
}

func (uc *IngestUsecase) checkTarget(source, county string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", fmt.Errorf("%w: source", entity.ErrMissingField)
	}
	county = entity.NormalizeCounty(county)
	if county == "" {
		return "", fmt.Errorf("%w: county", entity.ErrMissingField)
	}
	if !uc.counties.Contains(county) {
		return "", fmt.Errorf("%w: %q", entity.ErrInvalidCounty, county)
	}
	return county, nil
}

func (uc *IngestUsecase) ingestPages(ctx context.Context, source, county string, pages []entity.DocumentPage) (*entity.IngestResult, error) {
	result := &entity.IngestResult{Source: source, County: county}

	var pending []pendingChunk
	for _, page := range pages {
		for _, piece := range uc.chunker.Split(page.Text) {
			piece = strings.TrimSpace(piece)
			if len([]rune(piece)) < uc.minChunkLength {
				result.ChunksSkipped++
				continue
			}
			pending = append(pending, pendingChunk{text: piece, page: page.Page})
		}
	}

	if len(pending) == 0 {
		ctxzap.Warn(ctx, "no chunks long enough to ingest", zap.Int("skipped", result.ChunksSkipped))
		return result, nil
	}

	vectors := uc.embedAll(ctx, pending)

	next, err := uc.chunkRepo.NextChunkIndex(ctx, county, source)
	if err != nil {
		return nil, fmt.Errorf("next chunk index: %w", err)
	}

	batch := make([]*entity.Chunk, 0, len(pending))
	for i, p := range pending {
		if vectors[i] == nil {
			result.ChunksSkipped++
			continue
		}
		batch = append(batch, &entity.Chunk{
			ID:            uuid.New().String(),
			Source:        source,
			County:        county,
			ChunkIndex:    next + len(batch),
			Text:          p.text,
			WordCount:     retrieval.WordCount(p.text),
			Page:          p.page,
			Embedding:     vectors[i],
			TokenEstimate: embedding.EstimateTokens(p.text),
			CreatedAt:     uc.now().UTC(),
		})
	}

	if err := uc.chunkRepo.InsertMany(ctx, batch); err == nil {
		for _, chunk := range batch {
			result.ChunksCreated++
			result.Tokens += chunk.TokenEstimate
		}
	} else {
		ctxzap.Warn(ctx, "batch insert failed, persisting chunks one by one",
			zap.Int("chunks", len(batch)),
			zap.Error(err),
		)
		uc.insertEach(ctx, batch, next, result)
	}

	ctxzap.Info(ctx, "document ingested",
		zap.Int("chunks_created", result.ChunksCreated),
		zap.Int("chunks_skipped", result.ChunksSkipped),
		zap.Int("token_estimate", result.Tokens),
	)
	return result, nil
}

// insertEach stores chunks individually, skipping failures while keeping indices dense.
func (uc *IngestUsecase) insertEach(ctx context.Context, chunks []*entity.Chunk, next int, result *entity.IngestResult) {
	for _, chunk := range chunks {
		chunk.ChunkIndex = next
		if err := uc.chunkRepo.Insert(ctx, chunk); err != nil {
			ctxzap.Error(ctx, "failed to persist chunk, skipping",
				zap.Int("chunk_index", next),
				zap.Error(err),
			)
			result.ChunksSkipped++
			continue
		}

		next++
		result.ChunksCreated++
		result.Tokens += chunk.TokenEstimate
	}
}

// embedAll tries one batched call first and falls back to per-chunk calls.
// A nil entry marks a chunk whose embedding failed.
func (uc *IngestUsecase) embedAll(ctx context.Context, pending []pendingChunk) [][]float32 {
	texts := make([]string, len(pending))
	for i, p := range pending {
		texts[i] = p.text
	}

	vectors, err := uc.embedder.EmbedTexts(ctx, texts)
	if err == nil && len(vectors) == len(texts) {
		return vectors
	}
	ctxzap.Warn(ctx, "batch embedding failed, embedding chunks one by one", zap.Error(err))

	vectors = make([][]float32, len(texts))
	for i, text := range texts {
		if ctx.Err() != nil {
			break
		}
		vector, err := uc.embedder.Embed(ctx, text)
		if err != nil {
			ctxzap.Error(ctx, "failed to embed chunk, skipping", zap.Int("position", i), zap.Error(err))
			continue
		}
		vectors[i] = vector
	}
	return vectors
}
