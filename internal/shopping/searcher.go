package shopping

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 5

// Searcher fans queries out to an API with bounded concurrency.
type Searcher struct {
	api     API
	workers int
}

func NewSearcher(api API, workers int) *Searcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Searcher{api: api, workers: workers}
}

// SearchAll returns one result set per query, in completion order. A failing
// query yields a result set with Error set; the others still complete.
func (s *Searcher) SearchAll(ctx context.Context, queries []string, locale Locale) []RawResultSet {
	var (
		mu      sync.Mutex
		results = make([]RawResultSet, 0, len(queries))
	)

	g := new(errgroup.Group)
	g.SetLimit(s.workers)

	for _, query := range queries {
		query := query
		g.Go(func() error {
			set := s.searchOne(ctx, query, locale)
			mu.Lock()
			results = append(results, set)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Searcher) searchOne(ctx context.Context, query string, locale Locale) (set RawResultSet) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("query", query).Interface("panic", r).Msg("shopping search panicked")
			set = RawResultSet{Query: query, Error: fmt.Sprintf("search panicked: %v", r)}
		}
	}()

	set, err := s.api.Search(ctx, query, locale)
	set.Query = query
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("shopping search failed")
		set.Error = err.Error()
		return set
	}
	if set.Error != "" {
		log.Warn().Str("query", query).Str("error", set.Error).Msg("shopping search returned error")
		return set
	}
	log.Info().Str("query", query).Int("products", len(set.Products)).Msg("shopping search done")
	return set
}
