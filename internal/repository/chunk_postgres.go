package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ ChunkRepository = &ChunkPostgres{}

// ChunkPostgres stores chunks in the chunks table with embeddings as REAL[].
type ChunkPostgres struct {
	db *pgxpool.Pool
}

func NewChunkPostgres(db *pgxpool.Pool) *ChunkPostgres {
	return &ChunkPostgres{db: db}
}

func (r *ChunkPostgres) Insert(ctx context.Context, chunk *entity.Chunk) error {
	if chunk.ID == "" {
		chunk.ID = uuid.NewString()
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx, `
INSERT INTO chunks (id, source, county, chunk_index, text, word_count, page, embedding, token_estimate, created_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		chunk.ID, chunk.Source, chunk.County, chunk.ChunkIndex, chunk.Text,
		chunk.WordCount, chunk.Page, chunk.Embedding, chunk.TokenEstimate, chunk.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert chunk %s#%d: %v", entity.ErrPersistence, chunk.Source, chunk.ChunkIndex, err)
	}
	return nil
}

// InsertMany streams the batch through COPY, which Postgres applies as one statement.
func (r *ChunkPostgres) InsertMany(ctx context.Context, chunks []*entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([][]interface{}, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = uuid.NewString()
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}

		id, err := uuid.Parse(chunk.ID)
		if err != nil {
			return fmt.Errorf("%w: invalid chunk ID %q: %v", entity.ErrPersistence, chunk.ID, err)
		}
		page := pgtype.Int4{}
		if chunk.Page != nil {
			page = pgtype.Int4{Int32: int32(*chunk.Page), Valid: true}
		}

		rows = append(rows, []interface{}{
			pgtype.UUID{Bytes: id, Valid: true},
			chunk.Source,
			chunk.County,
			int32(chunk.ChunkIndex),
			chunk.Text,
			int32(chunk.WordCount),
			page,
			chunk.Embedding,
			int32(chunk.TokenEstimate),
			chunk.CreatedAt,
		})
	}

	_, err := r.db.CopyFrom(
		ctx,
		pgx.Identifier{"chunks"},
		[]string{"id", "source", "county", "chunk_index", "text", "word_count", "page", "embedding", "token_estimate", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("%w: copy %d chunks: %v", entity.ErrPersistence, len(chunks), err)
	}
	return nil
}

func (r *ChunkPostgres) ListByCounty(ctx context.Context, county string) ([]entity.Chunk, error) {
	rows, err := r.db.Query(ctx, `
SELECT id::text, source, county, chunk_index, text, word_count, page, embedding, token_estimate, created_at
FROM chunks
WHERE county = $1
ORDER BY source, chunk_index`, county)
	if err != nil {
		return nil, fmt.Errorf("%w: list chunks by county: %v", entity.ErrPersistence, err)
	}
	defer rows.Close()

	out := make([]entity.Chunk, 0, 256)
	for rows.Next() {
		var c entity.Chunk
		if err := rows.Scan(&c.ID, &c.Source, &c.County, &c.ChunkIndex, &c.Text, &c.WordCount,
			&c.Page, &c.Embedding, &c.TokenEstimate, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", entity.ErrPersistence, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate chunks: %v", entity.ErrPersistence, err)
	}
	return out, nil
}

func (r *ChunkPostgres) NextChunkIndex(ctx context.Context, county, source string) (int, error) {
	var next int
	err := r.db.QueryRow(ctx, `
SELECT COALESCE(MAX(chunk_index) + 1, 0)
FROM chunks
WHERE county = $1 AND source = $2`, county, source).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("%w: next chunk index: %v", entity.ErrPersistence, err)
	}
	return next, nil
}

func (r *ChunkPostgres) ListSources(ctx context.Context, county string) ([]entity.SourceSummary, error) {
	rows, err := r.db.Query(ctx, `
SELECT source, county, COUNT(*), MIN(created_at)
FROM chunks
WHERE $1 = '' OR county = $1
GROUP BY county, source
ORDER BY county, source`, county)
	if err != nil {
		return nil, fmt.Errorf("%w: list sources: %v", entity.ErrPersistence, err)
	}
	defer rows.Close()

	var out []entity.SourceSummary
	for rows.Next() {
		var s entity.SourceSummary
		if err := rows.Scan(&s.Source, &s.County, &s.ChunkCount, &s.IngestedAt); err != nil {
			return nil, fmt.Errorf("%w: scan source: %v", entity.ErrPersistence, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate sources: %v", entity.ErrPersistence, err)
	}
	return out, nil
}

func (r *ChunkPostgres) DeleteSource(ctx context.Context, county, source string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE county = $1 AND source = $2`, county, source)
	if err != nil {
		return 0, fmt.Errorf("%w: delete source: %v", entity.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("source %q in county %q: %w", source, county, entity.ErrNotFound)
	}
	return tag.RowsAffected(), nil
}

func (r *ChunkPostgres) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM chunks`)
	if err != nil {
		return 0, fmt.Errorf("%w: delete all chunks: %v", entity.ErrPersistence, err)
	}
	return tag.RowsAffected(), nil
}
