package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/fitfind/fitfind/internal/storage"
	"github.com/rs/zerolog/log"
)

// ExtractionCache persists initial extraction results by image hash.
type ExtractionCache interface {
	GetExtractionCache(hash string) (*storage.ExtractionCacheEntry, error)
	SetExtractionCache(hash string, entry *storage.ExtractionCacheEntry) error
}

// CachedExtractor wraps a QueryExtractor with a cache of initial extractions.
// Redo always goes to the model.
type CachedExtractor struct {
	inner QueryExtractor
	store ExtractionCache
}

func NewCachedExtractor(inner QueryExtractor, store ExtractionCache) *CachedExtractor {
	return &CachedExtractor{inner: inner, store: store}
}

// HashImage creates a SHA256 hash of the image, prefixed with its length.
func HashImage(image []byte) string {
	h := sha256.New()
	binary.Write(h, binary.LittleEndian, int64(len(image)))
	h.Write(image)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *CachedExtractor) Extract(ctx context.Context, image []byte, mimeType string) (*Extraction, error) {
	if len(image) == 0 {
		return nil, ErrNoImage
	}
	hash := HashImage(image)

	if c.store != nil {
		if ext := c.lookup(hash, image); ext != nil {
			return ext, nil
		}
	}

	ext, err := c.inner.Extract(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		conv, err := json.Marshal(ext.Conversation.Serializable())
		if err != nil {
			log.Warn().Err(err).Msg("failed to encode conversation for cache")
			return ext, nil
		}
		entry := &storage.ExtractionCacheEntry{Queries: ext.Queries, Conversation: string(conv)}
		if err := c.store.SetExtractionCache(hash, entry); err != nil {
			log.Warn().Err(err).Msg("failed to cache extraction")
		} else {
			log.Debug().Str("hash", hash[:16]).Int("queries", len(ext.Queries)).Msg("extraction cached")
		}
	}

	return ext, nil
}

func (c *CachedExtractor) lookup(hash string, image []byte) *Extraction {
	cached, err := c.store.GetExtractionCache(hash)
	if err != nil {
		log.Warn().Err(err).Msg("failed to check extraction cache")
		return nil
	}
	if cached == nil {
		return nil
	}

	var conv Conversation
	if err := json.Unmarshal([]byte(cached.Conversation), &conv); err != nil {
		log.Warn().Err(err).Str("hash", hash[:16]).Msg("corrupt extraction cache entry")
		return nil
	}

	log.Debug().Str("hash", hash[:16]).Msg("extraction cache hit")
	return &Extraction{
		Queries:      cached.Queries,
		Conversation: conv.WithImage(image),
		Cached:       true,
	}
}

func (c *CachedExtractor) Redo(ctx context.Context, conv Conversation, feedback string) (*Extraction, error) {
	return c.inner.Redo(ctx, conv, feedback)
}
