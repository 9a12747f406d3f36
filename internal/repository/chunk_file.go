package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/futig/foodsafety-backend/internal/entity"
	"github.com/google/uuid"
)

var _ ChunkRepository = &ChunkFile{}

// fileChunk is the persisted record: {source, county, text, chunkIndex, page?, embedding}.
type fileChunk struct {
	ID         string    `json:"id,omitempty"`
	Source     string    `json:"source"`
	County     string    `json:"county"`
	Text       string    `json:"text"`
	ChunkIndex int       `json:"chunkIndex"`
	Page       *int      `json:"page,omitempty"`
	Embedding  []float32 `json:"embedding"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// ChunkFile keeps the corpus in a single JSON array, loaded on first use and rewritten atomically.
type ChunkFile struct {
	path   string
	mu     sync.RWMutex
	loaded bool
	chunks []fileChunk
	writes int
}

func NewChunkFile(path string) *ChunkFile {
	return &ChunkFile{path: path}
}

func (r *ChunkFile) Insert(ctx context.Context, chunk *entity.Chunk) error {
	return r.InsertMany(ctx, []*entity.Chunk{chunk})
}

// InsertMany appends the batch with a single rewrite of the corpus file.
func (r *ChunkFile) InsertMany(_ context.Context, chunks []*entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(); err != nil {
		return err
	}

	type key struct {
		county, source string
		index          int
	}
	taken := make(map[key]struct{}, len(r.chunks)+len(chunks))
	for _, c := range r.chunks {
		taken[key{c.County, c.Source, c.ChunkIndex}] = struct{}{}
	}

	next := make([]fileChunk, len(r.chunks), len(r.chunks)+len(chunks))
	copy(next, r.chunks)
	now := time.Now().UTC()
	for _, chunk := range chunks {
		k := key{chunk.County, chunk.Source, chunk.ChunkIndex}
		if _, ok := taken[k]; ok {
			return fmt.Errorf("%w: chunk %s#%d already exists", entity.ErrPersistence, chunk.Source, chunk.ChunkIndex)
		}
		taken[k] = struct{}{}

		if chunk.ID == "" {
			chunk.ID = uuid.NewString()
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}
		next = append(next, fileChunk{
			ID:         chunk.ID,
			Source:     chunk.Source,
			County:     chunk.County,
			Text:       chunk.Text,
			ChunkIndex: chunk.ChunkIndex,
			Page:       chunk.Page,
			Embedding:  chunk.Embedding,
			CreatedAt:  chunk.CreatedAt,
		})
	}

	if err := r.writeLocked(next); err != nil {
		return err
	}
	r.chunks = next
	return nil
}

func (r *ChunkFile) ListByCounty(_ context.Context, county string) ([]entity.Chunk, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Chunk
	for _, c := range r.chunks {
		if c.County == county {
			out = append(out, toEntityChunk(c))
		}
	}
	return out, nil
}

func (r *ChunkFile) NextChunkIndex(_ context.Context, county, source string) (int, error) {
	if err := r.ensureLoaded(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	next := 0
	for _, c := range r.chunks {
		if c.County == county && c.Source == source && c.ChunkIndex >= next {
			next = c.ChunkIndex + 1
		}
	}
	return next, nil
}

func (r *ChunkFile) ListSources(_ context.Context, county string) ([]entity.SourceSummary, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	type key struct{ county, source string }
	summaries := make(map[key]*entity.SourceSummary)
	for _, c := range r.chunks {
		if county != "" && c.County != county {
			continue
		}
		k := key{c.County, c.Source}
		s, ok := summaries[k]
		if !ok {
			s = &entity.SourceSummary{Source: c.Source, County: c.County, IngestedAt: c.CreatedAt}
			summaries[k] = s
		}
		s.ChunkCount++
		if c.CreatedAt.Before(s.IngestedAt) {
			s.IngestedAt = c.CreatedAt
		}
	}

	out := make([]entity.SourceSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].County != out[j].County {
			return out[i].County < out[j].County
		}
		return out[i].Source < out[j].Source
	})
	return out, nil
}

func (r *ChunkFile) DeleteSource(_ context.Context, county, source string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(); err != nil {
		return 0, err
	}

	kept := make([]fileChunk, 0, len(r.chunks))
	for _, c := range r.chunks {
		if c.County == county && c.Source == source {
			continue
		}
		kept = append(kept, c)
	}

	removed := int64(len(r.chunks) - len(kept))
	if removed == 0 {
		return 0, fmt.Errorf("source %q in county %q: %w", source, county, entity.ErrNotFound)
	}
	if err := r.writeLocked(kept); err != nil {
		return 0, err
	}
	r.chunks = kept
	return removed, nil
}

func (r *ChunkFile) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(); err != nil {
		return 0, err
	}

	removed := int64(len(r.chunks))
	if err := r.writeLocked([]fileChunk{}); err != nil {
		return 0, err
	}
	r.chunks = nil
	return removed, nil
}

func (r *ChunkFile) ensureLoaded() error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

func (r *ChunkFile) loadLocked() error {
	if r.loaded {
		return nil
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		r.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read corpus file: %v", entity.ErrPersistence, err)
	}

	var chunks []fileChunk
	if len(data) > 0 {
		if err := json.Unmarshal(data, &chunks); err != nil {
			return fmt.Errorf("%w: parse corpus file %s: %v", entity.ErrPersistence, r.path, err)
		}
	}

	r.chunks = chunks
	r.loaded = true
	return nil
}

func (r *ChunkFile) writeLocked(chunks []fileChunk) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create corpus dir: %v", entity.ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, "corpus-*.json")
	if err != nil {
		return fmt.Errorf("%w: create temp corpus file: %v", entity.ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(chunks); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: encode corpus: %v", entity.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp corpus file: %v", entity.ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("%w: replace corpus file: %v", entity.ErrPersistence, err)
	}
	r.writes++
	return nil
}

func toEntityChunk(c fileChunk) entity.Chunk {
	return entity.Chunk{
		ID:         c.ID,
		Source:     c.Source,
		County:     c.County,
		ChunkIndex: c.ChunkIndex,
		Text:       c.Text,
		Page:       c.Page,
		Embedding:  c.Embedding,
		CreatedAt:  c.CreatedAt,
	}
}
