package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	gocache "github.com/patrickmn/go-cache"
)

// Cache stores query vectors. The process-local implementation can be swapped for a shared one.
type Cache interface {
	Get(key string) ([]float32, bool)
	Set(key string, vector []float32)
}

type MemoryCache struct {
	cache *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{cache: gocache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(key string) ([]float32, bool) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, false
	}
	vector, ok := v.([]float32)
	return vector, ok
}

func (m *MemoryCache) Set(key string, vector []float32) {
	m.cache.SetDefault(key, vector)
}

type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CachedEmbedder memoizes query embeddings. Repeated probes like the image queries hit the cache.
type CachedEmbedder struct {
	next  QueryEmbedder
	cache Cache
}

func NewCachedEmbedder(next QueryEmbedder, cache Cache) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if vector, ok := c.cache.Get(key); ok {
		ctxzap.Debug(ctx, "query embedding cache hit")
		return vector, nil
	}

	vector, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, vector)
	return vector, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
