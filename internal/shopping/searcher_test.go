package shopping

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	calls    []string
	fail     map[string]error
	panics   map[string]bool
	delay    time.Duration
	inFlight int32
	peak     int32
}

func (f *fakeAPI) Search(ctx context.Context, query string, locale Locale) (RawResultSet, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, query)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panics[query] {
		panic("boom")
	}
	if err := f.fail[query]; err != nil {
		return RawResultSet{}, err
	}
	return RawResultSet{Products: []RawProduct{{Title: query + " result"}}}, nil
}

func TestSearchAllPartialFailure(t *testing.T) {
	queries := []string{"red wool scarf", "black leather boots", "white linen shirt"}
	api := &fakeAPI{fail: map[string]error{queries[1]: errors.New("connection reset")}}

	results := NewSearcher(api, 5).SearchAll(context.Background(), queries, Locale{})
	require.Len(t, results, 3)

	var failed []RawResultSet
	seen := map[string]bool{}
	for _, r := range results {
		seen[r.Query] = true
		if r.Error != "" {
			failed = append(failed, r)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, queries[1], failed[0].Query)
	assert.Contains(t, failed[0].Error, "connection reset")
	for _, q := range queries {
		assert.True(t, seen[q], q)
	}
}

func TestSearchAllRecoversPanics(t *testing.T) {
	api := &fakeAPI{panics: map[string]bool{"bad": true}}

	results := NewSearcher(api, 2).SearchAll(context.Background(), []string{"good", "bad"}, Locale{})
	require.Len(t, results, 2)

	sort.Slice(results, func(i, j int) bool { return results[i].Query < results[j].Query })
	assert.Equal(t, "bad", results[0].Query)
	assert.Contains(t, results[0].Error, "panicked")
	assert.Empty(t, results[1].Error)
}

func TestSearchAllRespectsWorkerLimit(t *testing.T) {
	api := &fakeAPI{delay: 20 * time.Millisecond}
	queries := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	results := NewSearcher(api, 3).SearchAll(context.Background(), queries, Locale{})
	assert.Len(t, results, len(queries))
	assert.LessOrEqual(t, atomic.LoadInt32(&api.peak), int32(3))
}

func TestRawResultSetFailed(t *testing.T) {
	assert.True(t, RawResultSet{Query: "x"}.Failed())
	assert.True(t, RawResultSet{Query: "x", Error: "nope", Products: []RawProduct{{}}}.Failed())
	assert.False(t, RawResultSet{Query: "x", Products: []RawProduct{{}}}.Failed())
}
