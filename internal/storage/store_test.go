package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitfind/fitfind/internal/results"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)

	session, err := store.CreateSession("uploads/abc.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, StatusProcessing, session.Status)

	got, err := store.GetSession(session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "uploads/abc.jpg", got.ImagePath)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Empty(t, got.Queries)

	err = store.UpdateSessionResult(session.ID, SessionResult{
		Queries:       []string{"red midi dress", "white sneakers"},
		Conversation:  `{"model":"m"}`,
		FeedbackUsed:  "more detail",
		TotalItems:    2,
		TotalProducts: 37,
	})
	require.NoError(t, err)

	got, err = store.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, []string{"red midi dress", "white sneakers"}, got.Queries)
	assert.Equal(t, `{"model":"m"}`, got.Conversation)
	assert.Equal(t, "more detail", got.FeedbackUsed)
	assert.Equal(t, 37, got.TotalProducts)

	require.NoError(t, store.FailSession(session.ID, "upstream down"))
	got, err = store.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, "upstream down", got.Error)
}

func TestGetSessionMissing(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetSession("nope")
	assert.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, store.FailSession("nope", "x"))
	assert.Error(t, store.UpdateSessionResult("nope", SessionResult{}))
}

func TestClothingItemsReplaced(t *testing.T) {
	store := newTestStore(t)
	session, err := store.CreateSession("a.jpg", "image/jpeg")
	require.NoError(t, err)

	price := 19.99
	first := []results.ClothingItem{
		{Query: "q1", ItemType: "dress", TotalProducts: 1, Products: []results.CleanedProduct{{ID: "1", Title: "Dress", PriceNumeric: &price}}},
		{Query: "q2", ItemType: "shoes", Products: []results.CleanedProduct{}},
	}
	require.NoError(t, store.SaveClothingItems(session.ID, first))

	items, err := store.GetClothingItems(session.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "q1", items[0].Query)
	require.Len(t, items[0].Products, 1)
	assert.Equal(t, 19.99, *items[0].Products[0].PriceNumeric)

	require.NoError(t, store.SaveClothingItems(session.ID, first[1:]))
	items, err = store.GetClothingItems(session.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "q2", items[0].Query)

	empty, err := store.GetClothingItems("other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestExtractionCache(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetExtractionCache("hash")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.SetExtractionCache("hash", &ExtractionCacheEntry{Queries: []string{"a"}, Conversation: "{}"}))
	require.NoError(t, store.SetExtractionCache("hash", &ExtractionCacheEntry{Queries: []string{"b"}, Conversation: "{}"}))

	got, err = store.GetExtractionCache("hash")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"b"}, got.Queries)
}

func TestPruneOlderThan(t *testing.T) {
	store := newTestStore(t)
	session, err := store.CreateSession("uploads/old.jpg", "image/jpeg")
	require.NoError(t, err)
	require.NoError(t, store.SaveClothingItems(session.ID, []results.ClothingItem{{Query: "q"}}))
	require.NoError(t, store.SetExtractionCache("h", &ExtractionCacheEntry{Conversation: "{}"}))

	res, err := store.PruneOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, res.Sessions)
	assert.Zero(t, res.CacheEntries)

	res, err = store.PruneOlderThan(-time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Sessions)
	assert.Equal(t, int64(1), res.CacheEntries)
	assert.Equal(t, []string{"uploads/old.jpg"}, res.ImagePaths)

	got, err := store.GetSession(session.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	items, err := store.GetClothingItems(session.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}
