// Package cache provides a process-local read-through TTL cache in front
// of the embedding layer, so repeated queries skip model inference and
// the remote sparse service.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/kirillkom/docs-assistant/internal/core/domain"
	"github.com/kirillkom/docs-assistant/internal/core/ports"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

type store[T any] struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry[T]
	now func() time.Time
}

func newStore[T any](ttl time.Duration) *store[T] {
	return &store[T]{
		ttl: ttl,
		m:   make(map[string]entry[T]),
		now: time.Now,
	}
}

// get evaluates expiry at read time; there is no background sweep.
func (s *store[T]) get(key string) (T, bool) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok || s.now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (s *store[T]) put(key string, value T) {
	s.mu.Lock()
	s.m[key] = entry[T]{value: value, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
}

func cacheKey(text string) string {
	return strconv.FormatUint(xxhash.Sum64String(text), 16)
}

// DenseCache is a read-through cache over a DenseEmbedder. Only the
// single-text query path is cached; batch ingestion traffic bypasses it.
type DenseCache struct {
	inner ports.DenseEmbedder
	store *store[[]float32]
}

func NewDenseCache(inner ports.DenseEmbedder, ttl time.Duration) *DenseCache {
	return &DenseCache{inner: inner, store: newStore[[]float32](ttl)}
}

func (c *DenseCache) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if vector, ok := c.store.get(key); ok {
		return vector, nil
	}
	vector, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store.put(key, vector)
	return vector, nil
}

func (c *DenseCache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedBatch(ctx, texts)
}

// SparseCache is the sparse counterpart of DenseCache. Degraded empty
// vectors are cached too, so a failing sparse service is not re-probed
// on every query within the TTL window.
type SparseCache struct {
	inner ports.SparseEmbedder
	store *store[domain.SparseVector]
}

func NewSparseCache(inner ports.SparseEmbedder, ttl time.Duration) *SparseCache {
	return &SparseCache{inner: inner, store: newStore[domain.SparseVector](ttl)}
}

func (c *SparseCache) EmbedQuery(ctx context.Context, text string) (domain.SparseVector, error) {
	key := cacheKey(text)
	if vector, ok := c.store.get(key); ok {
		return vector, nil
	}
	vector, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return domain.SparseVector{}, err
	}
	c.store.put(key, vector)
	return vector, nil
}

func (c *SparseCache) EmbedBatch(ctx context.Context, texts []string) ([]domain.SparseVector, error) {
	return c.inner.EmbedBatch(ctx, texts)
}
