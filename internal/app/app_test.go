package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitfind/fitfind/internal/blobstore"
	"github.com/fitfind/fitfind/internal/config"
	"github.com/fitfind/fitfind/internal/llm"
)

func TestNewExtractorRequiresKey(t *testing.T) {
	_, err := NewExtractor(context.Background(), config.Config{VisionProvider: config.ProviderGemini}, nil)
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	_, err = NewExtractor(context.Background(), config.Config{VisionProvider: config.ProviderOpenAI}, nil)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestNewExtractorOpenAI(t *testing.T) {
	ext, err := NewExtractor(context.Background(), config.Config{
		VisionProvider: config.ProviderOpenAI,
		OpenAIAPIKey:   "sk-test",
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &llm.Extractor{}, ext)
}

func TestNewBlobStore(t *testing.T) {
	store, err := NewBlobStore(config.Config{UploadDir: filepath.Join(t.TempDir(), "uploads")})
	require.NoError(t, err)
	assert.IsType(t, &blobstore.LocalStore{}, store)

	store, err = NewBlobStore(config.Config{
		SupabaseURL:    "https://xyz.supabase.co",
		SupabaseKey:    "secret",
		SupabaseBucket: "images",
	})
	require.NoError(t, err)
	assert.IsType(t, &blobstore.SupabaseStore{}, store)
}

func TestLocale(t *testing.T) {
	l := Locale(config.Config{Country: "fi", Language: "fi"})
	assert.Equal(t, "fi", l.Country)
	assert.Equal(t, "fi", l.Language)
}
