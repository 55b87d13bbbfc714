// Package app wires configured components into a pipeline.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fitfind/fitfind/internal/blobstore"
	"github.com/fitfind/fitfind/internal/config"
	"github.com/fitfind/fitfind/internal/directlinks"
	"github.com/fitfind/fitfind/internal/llm"
	"github.com/fitfind/fitfind/internal/pipeline"
	"github.com/fitfind/fitfind/internal/shopping"
)

// NewExtractor creates the vision extractor for the configured provider,
// wrapped with the extraction cache when one is given.
func NewExtractor(ctx context.Context, cfg config.Config, cache llm.ExtractionCache) (llm.QueryExtractor, error) {
	var ext llm.QueryExtractor
	switch cfg.VisionProvider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		ext = llm.NewOpenAIExtractor(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.VisionModel, cfg.BrandHints)
	default:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		gemini, err := llm.NewGeminiExtractor(ctx, cfg.GeminiAPIKey, cfg.VisionModel, cfg.BrandHints)
		if err != nil {
			return nil, err
		}
		ext = gemini
	}
	log.Info().Str("provider", cfg.VisionProvider).Msg("vision extractor initialized")

	if cache == nil {
		return ext, nil
	}
	log.Info().Msg("extraction caching enabled")
	return llm.NewCachedExtractor(ext, cache), nil
}

// NewEnricher creates the direct link enricher. observer may be nil.
func NewEnricher(cfg config.Config, observer directlinks.Observer) *directlinks.Enricher {
	opts := directlinks.DefaultOptions()
	opts.Workers = cfg.LinkWorkers
	opts.BaseDelay = cfg.LinkBaseDelay
	opts.MaxRetries = cfg.LinkMaxRetries
	opts.Backoff = cfg.LinkBackoff
	opts.RequestsPerSecond = cfg.LinkRPS
	opts.Observer = observer
	return directlinks.NewEnricher(directlinks.NewScraper(directlinks.NewHTTPFetcher(0), opts))
}

// NewPipeline builds the full pipeline from configuration.
func NewPipeline(ctx context.Context, cfg config.Config, cache llm.ExtractionCache, observer directlinks.Observer) (*pipeline.Pipeline, error) {
	ext, err := NewExtractor(ctx, cfg, cache)
	if err != nil {
		return nil, err
	}
	searcher := shopping.NewSearcher(shopping.NewClient(shopping.ClientOpts{APIKey: cfg.SerpAPIKey}), cfg.SearchWorkers)
	return pipeline.New(ext, searcher, NewEnricher(cfg, observer)), nil
}

// NewBlobStore returns Supabase Storage when configured, otherwise a local
// directory store under UploadDir.
func NewBlobStore(cfg config.Config) (blobstore.Store, error) {
	if cfg.UseSupabase() {
		log.Info().Str("bucket", cfg.SupabaseBucket).Msg("using supabase storage for images")
		return blobstore.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket), nil
	}
	log.Info().Str("dir", cfg.UploadDir).Msg("using local storage for images")
	return blobstore.NewLocalStore(cfg.UploadDir)
}

// Locale is the configured default search locale.
func Locale(cfg config.Config) shopping.Locale {
	return shopping.Locale{Country: cfg.Country, Language: cfg.Language}
}
