package embeddings

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingProvider is a deterministic in-memory provider that counts how
// many texts it actually embeds.
type countingProvider struct {
	mu        sync.Mutex
	docCalls  int
	docTexts  int
	queryKeys []string
	fail      error
}

func (p *countingProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return nil, p.fail
	}
	p.docCalls++
	p.docTexts += len(texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func (p *countingProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return nil, p.fail
	}
	p.queryKeys = append(p.queryKeys, text)
	return []float32{float32(len(text)), 2}, nil
}

func (p *countingProvider) Dimension() int { return 2 }
func (p *countingProvider) Close() error   { return nil }

func newCached(t *testing.T, inner Provider, capacity int) *CachedProvider {
	t.Helper()
	c, err := NewCachedProvider(inner, capacity, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewCachedProvider_RequiresProvider(t *testing.T) {
	_, err := NewCachedProvider(nil, 0, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestContentKey(t *testing.T) {
	// Whitespace and case changes hash identically.
	assert.Equal(t, contentKey("d", "Hello   World"), contentKey("d", "hello world"))
	assert.Equal(t, contentKey("d", "a b"), contentKey("d", " a\n\tb "))

	// Query and document spaces never collide.
	assert.NotEqual(t, contentKey("q", "same text"), contentKey("d", "same text"))
	assert.NotEqual(t, contentKey("d", "one"), contentKey("d", "two"))
}

func TestEmbedDocuments_CachesRepeats(t *testing.T) {
	inner := &countingProvider{}
	c := newCached(t, inner, 0)
	ctx := context.Background()

	first, err := c.EmbedDocuments(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 2, inner.docTexts)

	// Second round: one hit, one new text. Only the miss reaches the
	// provider.
	second, err := c.EmbedDocuments(ctx, []string{"alpha", "gamma"})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, 3, inner.docTexts)
	assert.Equal(t, first[0], second[0])
	assert.Equal(t, 3, c.Len())
}

func TestEmbedDocuments_AllHitsSkipProvider(t *testing.T) {
	inner := &countingProvider{}
	c := newCached(t, inner, 0)
	ctx := context.Background()

	_, err := c.EmbedDocuments(ctx, []string{"alpha"})
	require.NoError(t, err)
	calls := inner.docCalls

	_, err = c.EmbedDocuments(ctx, []string{"alpha", "ALPHA", "  alpha  "})
	require.NoError(t, err)
	assert.Equal(t, calls, inner.docCalls, "normalized duplicates must not re-embed")
}

func TestEmbedDocuments_Empty(t *testing.T) {
	c := newCached(t, &countingProvider{}, 0)
	_, err := c.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedDocuments_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("backend down")
	c := newCached(t, &countingProvider{fail: boom}, 0)
	_, err := c.EmbedDocuments(context.Background(), []string{"text"})
	assert.ErrorIs(t, err, boom)
}

func TestEmbedQuery_Caches(t *testing.T) {
	inner := &countingProvider{}
	c := newCached(t, inner, 0)
	ctx := context.Background()

	first, err := c.EmbedQuery(ctx, "find storage sections")
	require.NoError(t, err)
	second, err := c.EmbedQuery(ctx, "find storage sections")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, inner.queryKeys, 1)
}

func TestEmbedQuery_Empty(t *testing.T) {
	c := newCached(t, &countingProvider{}, 0)
	_, err := c.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestCachedVectorsAreIsolated(t *testing.T) {
	c := newCached(t, &countingProvider{}, 0)
	ctx := context.Background()

	first, err := c.EmbedQuery(ctx, "probe")
	require.NoError(t, err)
	first[0] = -999

	second, err := c.EmbedQuery(ctx, "probe")
	require.NoError(t, err)
	assert.NotEqual(t, float32(-999), second[0], "mutating a returned vector must not corrupt the cache")
}

func TestCacheEviction(t *testing.T) {
	inner := &countingProvider{}
	c := newCached(t, inner, 2)
	ctx := context.Background()

	_, err := c.EmbedDocuments(ctx, []string{"one", "two", "three"})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestDimensionAndClose(t *testing.T) {
	c := newCached(t, &countingProvider{}, 0)
	assert.Equal(t, 2, c.Dimension())
	assert.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
}
