package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fitfind/fitfind/internal/directlinks"
	"github.com/fitfind/fitfind/internal/llm"
	"github.com/fitfind/fitfind/internal/metrics"
	"github.com/fitfind/fitfind/internal/results"
	"github.com/fitfind/fitfind/internal/shopping"
)

const noItemsMessage = "No clothing items identified in the image"

// Searcher runs shopping searches for a batch of queries.
type Searcher interface {
	SearchAll(ctx context.Context, queries []string, locale shopping.Locale) []shopping.RawResultSet
}

// LinkEnricher fills in direct retailer links.
type LinkEnricher interface {
	Enrich(ctx context.Context, items []results.ClothingItem) ([]results.ClothingItem, directlinks.Stats)
}

// Pipeline composes the outfit-to-products stages.
type Pipeline struct {
	extractor llm.QueryExtractor
	searcher  Searcher
	enricher  LinkEnricher
}

// New builds a Pipeline. enricher may be nil, in which case direct link
// extraction is reported as disabled.
func New(extractor llm.QueryExtractor, searcher Searcher, enricher LinkEnricher) *Pipeline {
	return &Pipeline{extractor: extractor, searcher: searcher, enricher: enricher}
}

// Options control one run.
type Options struct {
	Locale shopping.Locale
	// IncludeConversation returns the conversation state for later redo.
	IncludeConversation bool
	// OutputBase enables artifact files derived with ArtifactPaths.
	OutputBase  string
	SaveRaw     bool
	SaveCleaned bool
	SaveCSV     bool
	// ExtractDirectLinks runs the direct link stage.
	ExtractDirectLinks bool
	Progress           ProgressFunc
}

// Request is the input to Run. Image wins over ImagePath when both are set.
type Request struct {
	ImagePath string
	Image     []byte
	MIMEType  string
	Options
}

// Result bundles everything a run produced. When Failure is set the run
// stopped early, but fields filled before that point stay populated.
type Result struct {
	ItemsIdentified int                     `json:"num_items_identified"`
	ProductsFound   int                     `json:"num_products_found"`
	Queries         []string                `json:"search_queries"`
	CleanedData     *results.CleanedData    `json:"cleaned_data,omitempty"`
	RawResults      []shopping.RawResultSet `json:"-"`
	Conversation    *llm.Conversation       `json:"conversation_context,omitempty"`
	Usage           llm.Usage               `json:"-"`
	Cached          bool                    `json:"cached,omitempty"`
	Artifacts

	DirectLinks            *directlinks.Stats `json:"direct_links_stats,omitempty"`
	DirectLinksExtracted   bool               `json:"direct_links_extracted"`
	DirectLinksExtractedAt *time.Time         `json:"direct_links_extraction_time,omitempty"`
	DirectLinksError       string             `json:"direct_links_error,omitempty"`
	DirectLinksReason      string             `json:"direct_links_reason,omitempty"`

	Stage   Stage    `json:"-"`
	Failure *Failure `json:"failure,omitempty"`
}

// Analyze runs the initial vision extraction.
func (p *Pipeline) Analyze(ctx context.Context, image []byte, mimeType string) (*llm.Extraction, error) {
	if p.extractor == nil {
		return nil, errors.New("vision extractor not configured")
	}
	ext, err := p.extractor.Extract(ctx, image, mimeType)
	recordExtraction("extract", ext, err)
	return ext, err
}

// Redo continues a conversation with feedback.
func (p *Pipeline) Redo(ctx context.Context, conv llm.Conversation, feedback string) (*llm.Extraction, error) {
	if p.extractor == nil {
		return nil, errors.New("vision extractor not configured")
	}
	ext, err := p.extractor.Redo(ctx, conv, feedback)
	recordExtraction("redo", ext, err)
	return ext, err
}

// Search runs the shopping searches for queries.
func (p *Pipeline) Search(ctx context.Context, queries []string, locale shopping.Locale) []shopping.RawResultSet {
	sets := p.searcher.SearchAll(ctx, queries, locale)
	for _, set := range sets {
		if set.Failed() {
			metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		} else {
			metrics.SearchQueriesTotal.WithLabelValues("ok").Inc()
		}
	}
	return sets
}

// Clean converts raw result sets into the cleaned structure.
func (p *Pipeline) Clean(sets []shopping.RawResultSet) results.CleanedData {
	return results.Clean(sets)
}

// EnrichDirectLinks fills in direct links. On error the returned items
// carry empty direct link lists.
func (p *Pipeline) EnrichDirectLinks(ctx context.Context, items []results.ClothingItem) (out []results.ClothingItem, stats directlinks.Stats, err error) {
	if p.enricher == nil {
		return directlinks.ClearLinks(items), stats, errors.New("direct link extraction not configured")
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("direct link extraction panicked")
			out = directlinks.ClearLinks(items)
			err = fmt.Errorf("direct link extraction panicked: %v", r)
		}
	}()

	out, stats = p.enricher.Enrich(ctx, items)
	metrics.ScrapedURLsTotal.WithLabelValues("ok").Add(float64(stats.Successful))
	metrics.ScrapedURLsTotal.WithLabelValues("error").Add(float64(stats.Failed))
	metrics.ScrapeRequestsTotal.Add(float64(stats.TotalRequests))
	metrics.RateLimitHitsTotal.Add(float64(stats.RateLimitHits))
	return out, stats, nil
}

// Run executes the full pipeline on one image.
func (p *Pipeline) Run(ctx context.Context, req Request) *Result {
	r := &run{p: p, opts: req.Options, res: &Result{Queries: []string{}}}

	r.enter(StageIdentifying)
	image := req.Image
	if len(image) == 0 {
		if req.ImagePath == "" {
			return r.fail(FailureInput, "no image provided", "")
		}
		b, err := os.ReadFile(req.ImagePath)
		if err != nil {
			return r.fail(FailureInput, fmt.Sprintf("failed to read image: %v", err), "")
		}
		image = b
	}
	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = mimeFromPath(req.ImagePath)
	}

	ext, err := p.Analyze(ctx, image, mimeType)
	return r.afterExtraction(ctx, ext, err)
}

// Continue redoes the extraction of a previous run with feedback and runs
// the remaining stages on the new queries.
func (p *Pipeline) Continue(ctx context.Context, conv llm.Conversation, feedback string, opts Options) *Result {
	r := &run{p: p, opts: opts, res: &Result{Queries: []string{}}}
	r.enter(StageIdentifying)
	ext, err := p.Redo(ctx, conv, feedback)
	return r.afterExtraction(ctx, ext, err)
}

type run struct {
	p       *Pipeline
	opts    Options
	res     *Result
	started time.Time
	begin   time.Time
}

func (r *run) enter(stage Stage) {
	now := time.Now()
	if r.begin.IsZero() {
		r.begin = now
	} else {
		metrics.StageDurationSeconds.WithLabelValues(r.res.Stage.String()).Observe(now.Sub(r.started).Seconds())
	}
	r.started = now
	r.res.Stage = stage
	r.progress(stage, stage.Message())
}

func (r *run) progress(stage Stage, msg string) {
	if msg == "" {
		return
	}
	log.Info().Str("stage", stage.String()).Msg(msg)
	if r.opts.Progress != nil {
		r.opts.Progress(stage, msg)
	}
}

func (r *run) fail(kind FailureKind, msg, raw string) *Result {
	log.Warn().Str("kind", string(kind)).Str("stage", r.res.Stage.String()).Msg(msg)
	r.res.Stage = StageFailed
	r.res.Failure = &Failure{Kind: kind, Message: msg, RawResponse: raw}
	metrics.PipelineRunsTotal.WithLabelValues(string(kind)).Inc()
	return r.res
}

func (r *run) keepConversation(conv llm.Conversation) {
	if r.opts.IncludeConversation {
		r.res.Conversation = &conv
	}
}

func (r *run) afterExtraction(ctx context.Context, ext *llm.Extraction, err error) *Result {
	if err != nil {
		var parseErr *llm.ParseError
		var upstreamErr *llm.UpstreamError
		switch {
		case errors.As(err, &parseErr):
			r.keepConversation(parseErr.Conversation)
			return r.fail(FailureParse, err.Error(), parseErr.Raw)
		case errors.As(err, &upstreamErr):
			return r.fail(FailureUpstream, err.Error(), "")
		case errors.Is(err, llm.ErrNoImage), errors.Is(err, llm.ErrFailedConversation):
			return r.fail(FailureInput, err.Error(), "")
		default:
			return r.fail(FailureConfig, err.Error(), "")
		}
	}

	r.res.Usage = ext.Usage
	r.res.Cached = ext.Cached
	r.keepConversation(ext.Conversation)
	if len(ext.Queries) == 0 {
		return r.fail(FailureNoItems, noItemsMessage, "")
	}
	r.res.Queries = ext.Queries
	r.res.ItemsIdentified = len(ext.Queries)
	for i, q := range ext.Queries {
		log.Info().Int("item", i+1).Str("query", q).Msg("identified clothing item")
	}

	return r.rest(ctx)
}

func (r *run) rest(ctx context.Context) *Result {
	p, res := r.p, r.res
	raw, cleanedPath, csvPath := ArtifactPaths(r.opts.OutputBase)

	if p.searcher == nil {
		return r.fail(FailureConfig, "shopping searcher not configured", "")
	}
	r.enter(StageSearching)
	sets := p.Search(ctx, res.Queries, r.opts.Locale)
	res.RawResults = sets
	if missingAPIKey(sets) {
		return r.fail(FailureConfig, shopping.ErrMissingAPIKey.Error(), "")
	}

	if r.opts.OutputBase != "" && r.opts.SaveRaw {
		if err := writeRawJSON(raw, sets); err != nil {
			log.Warn().Err(err).Str("path", raw).Msg("failed to save raw results")
		} else {
			res.RawPath = raw
		}
	}
	if r.opts.OutputBase != "" && r.opts.SaveCSV {
		if err := writeCSV(csvPath, sets); err != nil {
			return r.fail(FailureArtifact, fmt.Sprintf("failed to save CSV results: %v", err), "")
		}
		res.CSVPath = csvPath
	}

	r.enter(StageCleaning)
	cleaned := p.Clean(sets)
	res.CleanedData = &cleaned
	res.ProductsFound = cleaned.Summary.TotalProducts

	switch {
	case !r.opts.ExtractDirectLinks || len(cleaned.ClothingItems) == 0:
		cleaned.ClothingItems = directlinks.ClearLinks(cleaned.ClothingItems)
		res.DirectLinksReason = "Disabled or no products found"
	default:
		r.enter(StageLinkExtraction)
		items, stats, err := p.EnrichDirectLinks(ctx, cleaned.ClothingItems)
		cleaned.ClothingItems = items
		if err != nil {
			res.DirectLinksError = err.Error()
			r.progress(StageLinkExtraction, "Direct link extraction failed, continuing without direct links...")
			break
		}
		now := time.Now().UTC()
		res.DirectLinks = &stats
		res.DirectLinksExtracted = true
		res.DirectLinksExtractedAt = &now
		r.progress(StageLinkExtraction, linkSummary(stats, items))
	}

	r.enter(StageFinalizing)
	if r.opts.OutputBase != "" && r.opts.SaveCleaned {
		if err := writeCleanedJSON(cleanedPath, cleaned); err != nil {
			log.Warn().Err(err).Str("path", cleanedPath).Msg("failed to save cleaned results")
		} else {
			res.CleanedPath = cleanedPath
		}
	}

	r.enter(StageDone)
	metrics.PipelineRunsTotal.WithLabelValues("ok").Inc()
	log.Info().
		Int("items", res.ItemsIdentified).
		Int("products", res.ProductsFound).
		Bool("hasErrors", cleaned.Summary.HasErrors).
		Dur("duration", time.Since(r.begin)).
		Msg("pipeline run complete")
	return res
}

func linkSummary(stats directlinks.Stats, items []results.ClothingItem) string {
	if stats.TotalURLs == 0 {
		return "No Google Shopping URLs found for direct link extraction"
	}
	links := 0
	for _, item := range items {
		for _, p := range item.Products {
			links += len(p.DirectLinks)
		}
	}
	rate := float64(stats.Successful) / float64(stats.TotalURLs) * 100
	return fmt.Sprintf("Direct link extraction complete: %.1f%% success rate, %d total links found", rate, links)
}

func missingAPIKey(sets []shopping.RawResultSet) bool {
	if len(sets) == 0 {
		return false
	}
	for _, set := range sets {
		if set.Error != shopping.ErrMissingAPIKey.Error() {
			return false
		}
	}
	return true
}

func recordExtraction(kind string, ext *llm.Extraction, err error) {
	switch {
	case err != nil:
		metrics.LLMCallsTotal.WithLabelValues(kind, "error").Inc()
	case ext.Cached:
		metrics.LLMCallsTotal.WithLabelValues("cached", "ok").Inc()
	default:
		metrics.LLMCallsTotal.WithLabelValues(kind, "ok").Inc()
		metrics.LLMCostUSDTotal.Add(ext.Usage.CostUSD)
	}
}

func mimeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
