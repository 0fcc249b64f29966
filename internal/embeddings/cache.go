package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultCacheEntries is the default embedding cache capacity.
const DefaultCacheEntries = 4096

// CachedProvider decorates a Provider with a content-addressed vector
// cache, giving get-or-compute semantics.
//
// Keys are content hashes of the normalized text, so identical text across
// requests reuses the vector regardless of which document it came from.
// Eviction policy: LRU capped by entry count (DefaultCacheEntries unless
// configured); unbounded growth is not acceptable for a process-lifetime
// cache.
//
// The cache is safe for concurrent use. Two workers racing on the same
// text may both compute the vector and overwrite each other's entry; that
// is idempotent and harmless. Vectors are only ever inserted once fully
// computed, and lookups return a copy so callers cannot corrupt cached
// data.
type CachedProvider struct {
	provider Provider
	cache    *lru.Cache[string, []float32]
	metrics  *Metrics
	logger   *zap.Logger
}

// NewCachedProvider wraps a provider with an LRU vector cache of the given
// capacity. A capacity of 0 uses DefaultCacheEntries.
func NewCachedProvider(provider Provider, capacity int, logger *zap.Logger) (*CachedProvider, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: provider is required", ErrInvalidConfig)
	}
	if capacity == 0 {
		capacity = DefaultCacheEntries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cache, err := lru.New[string, []float32](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	return &CachedProvider{
		provider: provider,
		cache:    cache,
		metrics:  NewMetrics(logger),
		logger:   logger,
	}, nil
}

// contentKey hashes the normalized text. Normalization collapses runs of
// whitespace and lowercases, so trivially reformatted text shares a vector.
// Query and document embeddings live in separate keyspaces because some
// models prefix them differently.
func contentKey(kind, text string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := sha256.Sum256([]byte(normalized))
	return kind + ":" + hex.EncodeToString(sum[:])
}

// EmbedDocuments returns cached vectors where available and computes only
// the misses in one batch through the underlying provider.
func (c *CachedProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if vec, ok := c.cache.Get(contentKey("d", text)); ok {
			out[i] = cloneVector(vec)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	c.metrics.RecordCache(ctx, len(texts)-len(missIdx), len(missIdx))

	if len(missTexts) > 0 {
		computed, err := c.provider.EmbedDocuments(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(computed) != len(missTexts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(computed), len(missTexts))
		}
		for j, vec := range computed {
			c.cache.Add(contentKey("d", missTexts[j]), cloneVector(vec))
			out[missIdx[j]] = vec
		}
	}

	return out, nil
}

// EmbedQuery returns the cached query vector or computes and caches it.
func (c *CachedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	key := contentKey("q", text)
	if vec, ok := c.cache.Get(key); ok {
		c.metrics.RecordCache(ctx, 1, 0)
		return cloneVector(vec), nil
	}
	c.metrics.RecordCache(ctx, 0, 1)

	vec, err := c.provider.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cloneVector(vec))
	return vec, nil
}

// Dimension returns the underlying provider's embedding dimension.
func (c *CachedProvider) Dimension() int {
	return c.provider.Dimension()
}

// Close releases the underlying provider. The cache itself holds no
// external resources.
func (c *CachedProvider) Close() error {
	c.cache.Purge()
	return c.provider.Close()
}

// Len returns the number of cached vectors.
func (c *CachedProvider) Len() int {
	return c.cache.Len()
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
