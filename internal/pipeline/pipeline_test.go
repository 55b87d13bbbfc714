package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitfind/fitfind/internal/directlinks"
	"github.com/fitfind/fitfind/internal/llm"
	"github.com/fitfind/fitfind/internal/results"
	"github.com/fitfind/fitfind/internal/shopping"
)

type fakeExtractor struct {
	queries  []string
	err      error
	feedback string
	images   int
}

func (f *fakeExtractor) conversation() llm.Conversation {
	return llm.Conversation{
		Model: "fake-vision",
		History: []llm.Turn{
			{Role: llm.RoleUser, Parts: []string{llm.ImagePlaceholder, "identify"}},
			{Role: llm.RoleModel, Parts: []string{`["x"]`}},
		},
	}
}

func (f *fakeExtractor) Extract(ctx context.Context, image []byte, mimeType string) (*llm.Extraction, error) {
	if len(image) == 0 {
		return nil, llm.ErrNoImage
	}
	f.images++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Extraction{Queries: f.queries, Conversation: f.conversation(), Usage: llm.Usage{CostUSD: 0.001}}, nil
}

func (f *fakeExtractor) Redo(ctx context.Context, conv llm.Conversation, feedback string) (*llm.Extraction, error) {
	if conv.Failed {
		return nil, llm.ErrFailedConversation
	}
	f.feedback = feedback
	if f.err != nil {
		return nil, f.err
	}
	next := f.conversation()
	next.FeedbackUsed = feedback
	return &llm.Extraction{Queries: f.queries, Conversation: next}, nil
}

type fakeSearcher struct {
	fail map[string]string
	got  []string
}

func (f *fakeSearcher) SearchAll(ctx context.Context, queries []string, locale shopping.Locale) []shopping.RawResultSet {
	f.got = queries
	var sets []shopping.RawResultSet
	for i := len(queries) - 1; i >= 0; i-- {
		q := queries[i]
		if msg, ok := f.fail[q]; ok {
			sets = append(sets, shopping.RawResultSet{Query: q, Error: msg})
			continue
		}
		sets = append(sets, shopping.RawResultSet{Query: q, Products: []shopping.RawProduct{
			{ProductID: q + "-1", Title: q + " one", ExtractedPrice: "40", ProductLink: "https://www.google.com/shopping/product/" + q},
			{ProductID: q + "-2", Title: q + " two", Price: "$60.00", Link: "https://shop.example.com/" + q},
		}})
	}
	return sets
}

type fakeEnricher struct {
	panic bool
}

func (f *fakeEnricher) Enrich(ctx context.Context, items []results.ClothingItem) ([]results.ClothingItem, directlinks.Stats) {
	if f.panic {
		panic("selector exploded")
	}
	out := directlinks.ClearLinks(items)
	for i := range out {
		for j, p := range out[i].Products {
			if directlinks.IsAggregatorURL(p.ProductURL) {
				out[i].Products[j].DirectLinks = []results.DirectLink{{ID: "dl_live_0", RetailerURL: "https://www.asos.com/x", IsActive: true}}
			}
		}
	}
	return out, directlinks.Stats{TotalURLs: 2, Successful: 2, TotalRequests: 2}
}

type progressLog struct {
	stages   []Stage
	messages []string
}

func (l *progressLog) record(stage Stage, msg string) {
	l.stages = append(l.stages, stage)
	l.messages = append(l.messages, msg)
}

var testImage = []byte{0xff, 0xd8, 0xff, 0xe0}

func TestRunFullPipeline(t *testing.T) {
	ext := &fakeExtractor{queries: []string{"black leather biker jacket", "blue slim jeans", "white sneakers"}}
	search := &fakeSearcher{fail: map[string]string{"blue slim jeans": "Google hasn't returned any results for this query."}}
	p := New(ext, search, &fakeEnricher{})
	base := filepath.Join(t.TempDir(), "out", "look.csv")
	progress := &progressLog{}

	res := p.Run(context.Background(), Request{
		Image: testImage,
		Options: Options{
			Locale:              shopping.Locale{Country: "gb", Language: "en"},
			IncludeConversation: true,
			OutputBase:          base,
			SaveRaw:             true,
			SaveCleaned:         true,
			SaveCSV:             true,
			ExtractDirectLinks:  true,
			Progress:            progress.record,
		},
	})

	require.Nil(t, res.Failure)
	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, 3, res.ItemsIdentified)
	assert.Equal(t, 4, res.ProductsFound)
	assert.Equal(t, ext.queries, search.got)
	require.NotNil(t, res.Conversation)
	assert.Equal(t, "fake-vision", res.Conversation.Model)

	require.NotNil(t, res.CleanedData)
	assert.Len(t, res.CleanedData.ClothingItems, 2)
	assert.True(t, res.CleanedData.Summary.HasErrors)
	require.Len(t, res.CleanedData.Summary.ErrorItems, 1)
	assert.Equal(t, "blue slim jeans", res.CleanedData.Summary.ErrorItems[0].Query)
	for _, item := range res.CleanedData.ClothingItems {
		assert.Len(t, item.Products[0].DirectLinks, 1)
		assert.NotNil(t, item.Products[1].DirectLinks)
		assert.Empty(t, item.Products[1].DirectLinks)
	}

	assert.True(t, res.DirectLinksExtracted)
	assert.NotNil(t, res.DirectLinksExtractedAt)
	require.NotNil(t, res.DirectLinks)
	assert.Equal(t, 2, res.DirectLinks.Successful)

	assert.Equal(t, []Stage{
		StageIdentifying, StageSearching, StageCleaning, StageLinkExtraction,
		StageLinkExtraction, StageFinalizing, StageDone,
	}, progress.stages)
	assert.Equal(t, "Identifying clothing items...", progress.messages[0])
	assert.Equal(t, "Direct link extraction complete: 100.0% success rate, 2 total links found", progress.messages[4])
	assert.Equal(t, "Search and extraction complete!", progress.messages[6])

	raw, cleaned, csvPath := ArtifactPaths(base)
	assert.Equal(t, raw, res.RawPath)
	assert.Equal(t, cleaned, res.CleanedPath)
	assert.Equal(t, csvPath, res.CSVPath)

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, csvHeader, rows[0])

	b, err := os.ReadFile(cleaned)
	require.NoError(t, err)
	var data results.CleanedData
	require.NoError(t, json.Unmarshal(b, &data))
	assert.Equal(t, 4, data.Summary.TotalProducts)

	b, err = os.ReadFile(raw)
	require.NoError(t, err)
	var sets []shopping.RawResultSet
	require.NoError(t, json.Unmarshal(b, &sets))
	assert.Len(t, sets, 3)
}

func TestRunNoItemsIsDistinctFailure(t *testing.T) {
	progress := &progressLog{}
	search := &fakeSearcher{}
	p := New(&fakeExtractor{queries: []string{}}, search, nil)

	res := p.Run(context.Background(), Request{Image: testImage, Options: Options{IncludeConversation: true, Progress: progress.record}})

	require.NotNil(t, res.Failure)
	assert.Equal(t, FailureNoItems, res.Failure.Kind)
	assert.Equal(t, "No clothing items identified in the image", res.Failure.Message)
	assert.Equal(t, StageFailed, res.Stage)
	assert.Empty(t, res.Queries)
	assert.NotNil(t, res.Conversation)
	assert.Nil(t, search.got)
	assert.Equal(t, []Stage{StageIdentifying}, progress.stages)
}

func TestRunExtractionFailures(t *testing.T) {
	failed := llm.Conversation{Model: "m", Failed: true}
	tests := []struct {
		name string
		err  error
		kind FailureKind
		raw  string
	}{
		{"parse", &llm.ParseError{Raw: "I see a jacket", Conversation: failed, Err: errors.New("no JSON array found")}, FailureParse, "I see a jacket"},
		{"upstream", &llm.UpstreamError{Model: "m", Err: errors.New("503")}, FailureUpstream, ""},
		{"other", errors.New("vision extractor not configured"), FailureConfig, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(&fakeExtractor{err: tt.err}, &fakeSearcher{}, nil)
			res := p.Run(context.Background(), Request{Image: testImage})
			require.NotNil(t, res.Failure)
			assert.Equal(t, tt.kind, res.Failure.Kind)
			assert.Equal(t, tt.raw, res.Failure.RawResponse)
			assert.Nil(t, res.CleanedData)
			assert.Nil(t, res.Conversation)
		})
	}
}

func TestRunInputErrors(t *testing.T) {
	p := New(&fakeExtractor{queries: []string{"q"}}, &fakeSearcher{}, nil)

	res := p.Run(context.Background(), Request{})
	require.NotNil(t, res.Failure)
	assert.Equal(t, FailureInput, res.Failure.Kind)

	res = p.Run(context.Background(), Request{ImagePath: filepath.Join(t.TempDir(), "missing.jpg")})
	require.NotNil(t, res.Failure)
	assert.Equal(t, FailureInput, res.Failure.Kind)
}

func TestRunReadsImagePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outfit.png")
	require.NoError(t, os.WriteFile(path, testImage, 0644))
	ext := &fakeExtractor{queries: []string{"red midi dress"}}
	p := New(ext, &fakeSearcher{}, nil)

	res := p.Run(context.Background(), Request{ImagePath: path, Options: Options{ExtractDirectLinks: true}})

	require.Nil(t, res.Failure)
	assert.Equal(t, 1, ext.images)
	assert.False(t, res.DirectLinksExtracted)
	assert.Equal(t, "direct link extraction not configured", res.DirectLinksError)
	assert.Nil(t, res.Conversation)
	assert.Empty(t, res.RawPath)
}

func TestRunLinkStagePanicIsNotFatal(t *testing.T) {
	p := New(&fakeExtractor{queries: []string{"white sneakers"}}, &fakeSearcher{}, &fakeEnricher{panic: true})

	res := p.Run(context.Background(), Request{Image: testImage, Options: Options{ExtractDirectLinks: true}})

	require.Nil(t, res.Failure)
	assert.Equal(t, StageDone, res.Stage)
	assert.False(t, res.DirectLinksExtracted)
	assert.Contains(t, res.DirectLinksError, "selector exploded")
	for _, p := range res.CleanedData.ClothingItems[0].Products {
		assert.NotNil(t, p.DirectLinks)
		assert.Empty(t, p.DirectLinks)
	}
}

func TestRunLinksDisabled(t *testing.T) {
	progress := &progressLog{}
	p := New(&fakeExtractor{queries: []string{"white sneakers"}}, &fakeSearcher{}, &fakeEnricher{})

	res := p.Run(context.Background(), Request{Image: testImage, Options: Options{Progress: progress.record}})

	require.Nil(t, res.Failure)
	assert.False(t, res.DirectLinksExtracted)
	assert.Equal(t, "Disabled or no products found", res.DirectLinksReason)
	assert.NotContains(t, progress.stages, StageLinkExtraction)
	assert.NotNil(t, res.CleanedData.ClothingItems[0].Products[0].DirectLinks)
}

func TestRunMissingSearchKey(t *testing.T) {
	searcher := shopping.NewSearcher(shopping.NewClient(shopping.ClientOpts{Timeout: time.Second}), 2)
	p := New(&fakeExtractor{queries: []string{"a", "b"}}, searcher, nil)
	progress := &progressLog{}

	res := p.Run(context.Background(), Request{Image: testImage, Options: Options{Progress: progress.record}})

	require.NotNil(t, res.Failure)
	assert.Equal(t, FailureConfig, res.Failure.Kind)
	assert.Equal(t, "SERPAPI_API_KEY not set in environment", res.Failure.Message)
	assert.Equal(t, StageFailed, res.Stage)
	assert.Equal(t, []Stage{StageIdentifying, StageSearching}, progress.stages)
}

func TestRunCSVFailureStopsAtSearching(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	p := New(&fakeExtractor{queries: []string{"white sneakers"}}, &fakeSearcher{}, nil)
	progress := &progressLog{}

	res := p.Run(context.Background(), Request{Image: testImage, Options: Options{
		OutputBase: filepath.Join(blocker, "look"),
		SaveCSV:    true,
		Progress:   progress.record,
	}})

	require.NotNil(t, res.Failure)
	assert.Equal(t, FailureArtifact, res.Failure.Kind)
	assert.Equal(t, []Stage{StageIdentifying, StageSearching}, progress.stages)
}

func TestContinueRunsRedo(t *testing.T) {
	ext := &fakeExtractor{queries: []string{"cropped denim jacket"}}
	search := &fakeSearcher{}
	p := New(ext, search, nil)

	prev := ext.conversation()
	res := p.Continue(context.Background(), prev, "focus on the jacket", Options{IncludeConversation: true})

	require.Nil(t, res.Failure)
	assert.Equal(t, "focus on the jacket", ext.feedback)
	assert.Equal(t, []string{"cropped denim jacket"}, search.got)
	require.NotNil(t, res.Conversation)
	assert.Equal(t, "focus on the jacket", res.Conversation.FeedbackUsed)

	prev.Failed = true
	res = p.Continue(context.Background(), prev, "", Options{})
	require.NotNil(t, res.Failure)
	assert.Equal(t, FailureInput, res.Failure.Kind)
}

func TestArtifactPaths(t *testing.T) {
	raw, cleaned, csvPath := ArtifactPaths("results/look_1.csv")
	assert.Equal(t, "results/look_1_raw.json", raw)
	assert.Equal(t, "results/look_1_cleaned.json", cleaned)
	assert.Equal(t, "results/look_1.csv", csvPath)

	raw, _, csvPath = ArtifactPaths("results/look_2")
	assert.Equal(t, "results/look_2_raw.json", raw)
	assert.Equal(t, "results/look_2.csv", csvPath)
}

func TestCSVRows(t *testing.T) {
	rows := csvRows([]shopping.RawResultSet{
		{Query: "scarf", Error: "timeout"},
		{Query: "boots"},
		{Query: "hat", Products: []shopping.RawProduct{{Title: "Wool Hat", ExtractedPrice: "25.5", Rating: "4.6", Reviews: "1,204", Tag: "Sale"}}},
	})
	require.Len(t, rows, 3)
	assert.Equal(t, "timeout", rows[0][1])
	assert.Equal(t, "No shopping results found", rows[1][1])
	assert.Equal(t, []string{"hat", "", "Wool Hat", "", "", "25.5", "", "4.6", "1,204", "", "", "", "Sale"}, rows[2])
}
