package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/futig/foodsafety-backend/internal/pkg/extract"
	"github.com/futig/foodsafety-backend/internal/repository"
	"github.com/futig/foodsafety-backend/internal/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	v, _ := args.Get(0).([]float32)
	return v, args.Error(1)
}

func (m *mockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	v, _ := args.Get(0).([][]float32)
	return v, args.Error(1)
}

type countySet map[string]bool

func (c countySet) Contains(id string) bool { return c[id] }

// flakyRepo counts writes. With failBatch set, batches are rejected and the first single insert fails.
type flakyRepo struct {
	repository.ChunkRepository
	failBatch   bool
	failed      bool
	batchCalls  int
	singleCalls int
}

func (r *flakyRepo) Insert(ctx context.Context, chunk *entity.Chunk) error {
	r.singleCalls++
	if r.failBatch && !r.failed {
		r.failed = true
		return fmt.Errorf("%w: connection reset", entity.ErrPersistence)
	}
	return r.ChunkRepository.Insert(ctx, chunk)
}

func (r *flakyRepo) InsertMany(ctx context.Context, chunks []*entity.Chunk) error {
	r.batchCalls++
	if r.failBatch {
		return fmt.Errorf("%w: batch rejected", entity.ErrPersistence)
	}
	return r.ChunkRepository.InsertMany(ctx, chunks)
}

func paragraphs(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("rule %d %s", i, strings.Repeat("food safety ", 12))
	}
	return strings.Join(parts, "\n")
}

func newTestUsecase(t *testing.T, repo repository.ChunkRepository, emb Embedder) *IngestUsecase {
	t.Helper()
	return NewUsecase(repo, emb, extract.NewRegistry(), countySet{"washtenaw": true, "wayne": true}, retrieval.NewChunker(200, 0), 100)
}

func newStore(t *testing.T) *repository.ChunkFile {
	return repository.NewChunkFile(filepath.Join(t.TempDir(), "chunks.json"))
}

func TestIngestText_StoresDenseChunks(t *testing.T) {
	store := newStore(t)
	emb := &mockEmbedder{}
	emb.On("EmbedTexts", mock.Anything, mock.MatchedBy(func(texts []string) bool { return len(texts) == 3 })).
		Return([][]float32{{1, 0}, {0, 1}, {1, 1}}, nil).Once()

	uc := newTestUsecase(t, store, emb)
	page := 12
	res, err := uc.IngestText(context.Background(), &entity.IngestTextRequest{
		Source: "food-code.pdf", County: " Washtenaw ", Text: paragraphs(3), Page: &page,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ChunksCreated)
	assert.Equal(t, 0, res.ChunksSkipped)
	assert.Equal(t, "washtenaw", res.County)
	assert.Positive(t, res.Tokens)

	chunks, err := store.ListByCounty(context.Background(), "washtenaw")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, "food-code.pdf", c.Source)
		require.NotNil(t, c.Page)
		assert.Equal(t, 12, *c.Page)
		assert.GreaterOrEqual(t, len(c.Text), entity.MinChunkLength)
	}
	emb.AssertExpectations(t)
}

func TestIngestText_BatchFailureFallsBackPerChunk(t *testing.T) {
	store := newStore(t)
	emb := &mockEmbedder{}
	emb.On("EmbedTexts", mock.Anything, mock.Anything).Return(nil, entity.ErrEmbeddingProvider).Once()
	emb.On("Embed", mock.Anything, mock.MatchedBy(func(s string) bool { return strings.HasPrefix(s, "rule 1 ") })).
		Return(nil, entity.ErrEmbeddingProvider)
	emb.On("Embed", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	uc := newTestUsecase(t, store, emb)
	res, err := uc.IngestText(context.Background(), &entity.IngestTextRequest{
		Source: "food-code.pdf", County: "washtenaw", Text: paragraphs(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ChunksCreated)
	assert.Equal(t, 1, res.ChunksSkipped)

	chunks, err := store.ListByCounty(context.Background(), "washtenaw")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "rule 2 "))
}

func TestIngestText_PersistFailureSkipsWithoutGap(t *testing.T) {
	repo := &flakyRepo{ChunkRepository: newStore(t), failBatch: true}
	emb := &mockEmbedder{}
	emb.On("EmbedTexts", mock.Anything, mock.Anything).Return([][]float32{{1}, {2}, {3}}, nil)

	uc := newTestUsecase(t, repo, emb)
	res, err := uc.IngestText(context.Background(), &entity.IngestTextRequest{
		Source: "a.txt", County: "wayne", Text: paragraphs(3),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ChunksCreated)
	assert.Equal(t, 1, res.ChunksSkipped)

	chunks, err := repo.ListByCounty(context.Background(), "wayne")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, []int{0, 1}, []int{chunks[0].ChunkIndex, chunks[1].ChunkIndex})
	assert.Equal(t, 1, repo.batchCalls)
	assert.Equal(t, 3, repo.singleCalls)
}

func TestIngestText_OneWritePerDocument(t *testing.T) {
	repo := &flakyRepo{ChunkRepository: newStore(t)}
	emb := &mockEmbedder{}
	emb.On("EmbedTexts", mock.Anything, mock.Anything).Return([][]float32{{1}, {2}, {3}, {4}, {5}}, nil).Once()
	emb.On("EmbedTexts", mock.Anything, mock.Anything).Return([][]float32{{1}, {2}}, nil).Once()

	uc := newTestUsecase(t, repo, emb)
	res, err := uc.IngestText(context.Background(), &entity.IngestTextRequest{
		Source: "a.txt", County: "wayne", Text: paragraphs(5),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.ChunksCreated)
	assert.Equal(t, 1, repo.batchCalls)

	_, err = uc.IngestText(context.Background(), &entity.IngestTextRequest{
		Source: "b.txt", County: "wayne", Text: paragraphs(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.batchCalls)
	assert.Zero(t, repo.singleCalls)

	chunks, err := repo.ListByCounty(context.Background(), "wayne")
	require.NoError(t, err)
	require.Len(t, chunks, 7)
	assert.Equal(t, 4, chunks[4].ChunkIndex)
	assert.Equal(t, 1, chunks[6].ChunkIndex)
}

func TestIngestText_ContinuesExistingSource(t *testing.T) {
	store := newStore(t)
	emb := &mockEmbedder{}
	emb.On("EmbedTexts", mock.Anything, mock.Anything).Return([][]float32{{1}, {2}}, nil)

	uc := newTestUsecase(t, store, emb)
	req := &entity.IngestTextRequest{Source: "a.txt", County: "wayne", Text: paragraphs(2)}
	_, err := uc.IngestText(context.Background(), req)
	require.NoError(t, err)
	_, err = uc.IngestText(context.Background(), req)
	require.NoError(t, err)

	next, err := store.NextChunkIndex(context.Background(), "wayne", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 4, next)
}

func TestIngestText_ShortTextIsSkipped(t *testing.T) {
	emb := &mockEmbedder{}
	uc := newTestUsecase(t, newStore(t), emb)

	res, err := uc.IngestText(context.Background(), &entity.IngestTextRequest{
		Source: "note.txt", County: "wayne", Text: "Wash hands often.",
	})
	require.NoError(t, err)
	assert.Zero(t, res.ChunksCreated)
	assert.Equal(t, 1, res.ChunksSkipped)
	emb.AssertNotCalled(t, "EmbedTexts", mock.Anything, mock.Anything)
}

func TestIngestText_Validation(t *testing.T) {
	uc := newTestUsecase(t, newStore(t), &mockEmbedder{})
	ctx := context.Background()

	_, err := uc.IngestText(ctx, &entity.IngestTextRequest{Source: "a.txt", County: "cook", Text: paragraphs(1)})
	require.ErrorIs(t, err, entity.ErrInvalidCounty)

	_, err = uc.IngestText(ctx, &entity.IngestTextRequest{County: "wayne", Text: paragraphs(1)})
	require.ErrorIs(t, err, entity.ErrMissingField)

	_, err = uc.IngestText(ctx, &entity.IngestTextRequest{Source: "a.txt", Text: paragraphs(1)})
	require.ErrorIs(t, err, entity.ErrMissingField)
}

func TestIngestFile_DefaultsSourceToFilename(t *testing.T) {
	store := newStore(t)
	emb := &mockEmbedder{}
	emb.On("EmbedTexts", mock.Anything, mock.Anything).Return([][]float32{{1}, {2}}, nil)

	uc := newTestUsecase(t, store, emb)
	content := paragraphs(2)
	res, err := uc.IngestFile(context.Background(), &entity.IngestFileRequest{
		County:   "washtenaw",
		Filename: "/srv/docs/cooling.md",
		Size:     int64(len(content)),
		Content:  strings.NewReader(content),
	})
	require.NoError(t, err)
	assert.Equal(t, "cooling.md", res.Source)
	assert.Equal(t, 2, res.ChunksCreated)

	chunks, err := store.ListByCounty(context.Background(), "washtenaw")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Nil(t, chunks[0].Page)
}

func TestIngestFile_UnsupportedType(t *testing.T) {
	uc := newTestUsecase(t, newStore(t), &mockEmbedder{})

	_, err := uc.IngestFile(context.Background(), &entity.IngestFileRequest{
		County: "washtenaw", Filename: "menu.xlsx", Size: 1, Content: strings.NewReader("x"),
	})
	require.ErrorIs(t, err, entity.ErrUnsupportedFileType)
}

func TestDeleteSourceAndRebuild(t *testing.T) {
	store := newStore(t)
	emb := &mockEmbedder{}
	emb.On("EmbedTexts", mock.Anything, mock.Anything).Return([][]float32{{1}, {2}}, nil)
	uc := newTestUsecase(t, store, emb)
	ctx := context.Background()

	for _, src := range []string{"a.txt", "b.txt"} {
		_, err := uc.IngestText(ctx, &entity.IngestTextRequest{Source: src, County: "wayne", Text: paragraphs(2)})
		require.NoError(t, err)
	}

	sources, err := uc.ListSources(ctx, "wayne")
	require.NoError(t, err)
	assert.Len(t, sources, 2)

	deleted, err := uc.DeleteSource(ctx, "wayne", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = uc.DeleteSource(ctx, "wayne", "a.txt")
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	deleted, err = uc.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = uc.ListSources(ctx, "cook")
	require.ErrorIs(t, err, entity.ErrInvalidCounty)
}
