package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitfind/fitfind/internal/storage"
)

type memoryCache struct {
	entries map[string]*storage.ExtractionCacheEntry
}

func (m *memoryCache) GetExtractionCache(hash string) (*storage.ExtractionCacheEntry, error) {
	return m.entries[hash], nil
}

func (m *memoryCache) SetExtractionCache(hash string, entry *storage.ExtractionCacheEntry) error {
	m.entries[hash] = entry
	return nil
}

func TestHashImage(t *testing.T) {
	assert.Equal(t, HashImage([]byte("abc")), HashImage([]byte("abc")))
	assert.NotEqual(t, HashImage([]byte("abc")), HashImage([]byte("abd")))
	assert.Len(t, HashImage(nil), 64)
}

func TestCachedExtractor(t *testing.T) {
	models := &fakeModels{replies: []string{`["olive cargo pants"]`, `["olive green relaxed cargo pants"]`}}
	cache := &memoryCache{entries: map[string]*storage.ExtractionCacheEntry{}}
	x := NewCachedExtractor(newTestExtractor(models), cache)

	first, err := x.Extract(context.Background(), testImage, "")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Len(t, cache.entries, 1)

	hit, err := x.Extract(context.Background(), testImage, "")
	require.NoError(t, err)
	assert.True(t, hit.Cached)
	assert.Equal(t, first.Queries, hit.Queries)
	assert.Equal(t, first.Conversation.History, hit.Conversation.History)
	assert.Equal(t, testImage, hit.Conversation.Image())
	assert.Zero(t, hit.Usage.InputTokens)
	assert.Len(t, models.calls, 1)

	// Redo from a cached conversation still reaches the model.
	redo, err := x.Redo(context.Background(), hit.Conversation, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"olive green relaxed cargo pants"}, redo.Queries)
	assert.Len(t, models.calls, 2)
}

func TestCachedExtractorSkipsFailures(t *testing.T) {
	models := &fakeModels{replies: []string{"nope", `["x"]`}}
	cache := &memoryCache{entries: map[string]*storage.ExtractionCacheEntry{}}
	x := NewCachedExtractor(newTestExtractor(models), cache)

	_, err := x.Extract(context.Background(), testImage, "")
	require.Error(t, err)
	assert.Empty(t, cache.entries)

	ext, err := x.Extract(context.Background(), testImage, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ext.Queries)
}
