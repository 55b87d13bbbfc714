package directlinks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options tune the scraping worker pool and retry policy.
type Options struct {
	Workers int
	// BaseDelay is waited before the first request of each URL and is the
	// starting point of the retry backoff.
	BaseDelay  time.Duration
	MaxRetries int
	Backoff    float64
	// MinRetryDelay is the backoff starting point when BaseDelay is zero.
	MinRetryDelay time.Duration
	// RequestsPerSecond paces all fetches globally; zero means unlimited.
	RequestsPerSecond float64
	Observer          Observer
}

// DefaultOptions are the settings used by the pipeline.
func DefaultOptions() Options {
	return Options{
		Workers:       20,
		MaxRetries:    1,
		Backoff:       1.5,
		MinRetryDelay: 500 * time.Millisecond,
	}
}

func (o Options) normalized() Options {
	if o.Workers <= 0 {
		o.Workers = 20
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Backoff < 1 {
		o.Backoff = 1.5
	}
	if o.BaseDelay < 0 {
		o.BaseDelay = 0
	}
	return o
}

// ScrapeResult is the outcome for one aggregator URL.
type ScrapeResult struct {
	URL          string        `json:"url"`
	Success      bool          `json:"success"`
	RetailerURLs []string      `json:"retailer_urls"`
	Error        string        `json:"error,omitempty"`
	Attempts     int           `json:"attempts"`
	RateLimited  bool          `json:"rate_limited"`
	Duration     time.Duration `json:"duration"`
}

// Scraper resolves aggregator URLs to retailer URLs.
type Scraper struct {
	fetcher Fetcher
	opts    Options
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewScraper(fetcher Fetcher, opts Options) *Scraper {
	opts = opts.normalized()
	s := &Scraper{fetcher: fetcher, opts: opts, sleep: sleepContext}
	if opts.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return s
}

// ScrapeAll scrapes every URL with bounded concurrency. Results arrive in
// completion order and are merged by a single consumer.
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string) ([]ScrapeResult, Stats) {
	agg := newAggregator(len(urls), s.opts)
	out := make(chan ScrapeResult, len(urls))
	merged := make(chan struct{})

	go func() {
		defer close(merged)
		for r := range out {
			agg.add(r)
			if s.opts.Observer != nil {
				s.opts.Observer.Observe(agg.snapshot())
			}
		}
	}()

	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			out <- s.scrapeOneSafe(ctx, u)
			return nil
		})
	}
	_ = g.Wait()
	close(out)
	<-merged

	stats := agg.finish()
	log.Info().
		Int("urls", stats.TotalURLs).
		Int("successful", stats.Successful).
		Int("failed", stats.Failed).
		Int("rateLimitHits", stats.RateLimitHits).
		Int("requests", stats.TotalRequests).
		Dur("duration", stats.Duration).
		Msg("direct link scraping done")

	return agg.results, stats
}

func (s *Scraper) scrapeOneSafe(ctx context.Context, u string) (res ScrapeResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("url", u).Interface("panic", r).Msg("scrape worker panicked")
			res = ScrapeResult{URL: u, Attempts: max(res.Attempts, 1), Error: fmt.Sprintf("Unexpected error: %v", r)}
		}
	}()
	return s.ScrapeOne(ctx, u)
}

// ScrapeOne fetches one aggregator page. Empty pages and 429 responses are
// retried with exponential backoff; any other failure ends the attempt loop.
func (s *Scraper) ScrapeOne(ctx context.Context, u string) ScrapeResult {
	start := time.Now()
	res := ScrapeResult{URL: u, RetailerURLs: []string{}}
	delay := s.opts.BaseDelay
	last := s.opts.MaxRetries

	if delay > 0 {
		if err := s.sleep(ctx, delay); err != nil {
			res.Error = err.Error()
			res.Duration = time.Since(start)
			return res
		}
	}

	for attempt := 0; attempt <= last; attempt++ {
		res.Attempts = attempt + 1

		urls, err := s.attempt(ctx, u)
		if err == nil && len(urls) > 0 {
			res.Success = true
			res.RetailerURLs = urls
			res.Error = ""
			break
		}

		var statusErr *StatusError
		switch {
		case err == nil:
			res.Error = fmt.Sprintf("No retailer URLs found after %d attempts", attempt+1)
		case errors.As(err, &statusErr) && statusErr.RateLimited():
			res.RateLimited = true
			res.Error = fmt.Sprintf("Rate limited after %d attempts", attempt+1)
		default:
			res.Error = err.Error()
			log.Debug().Err(err).Str("url", u).Msg("scrape failed")
			res.Duration = time.Since(start)
			return res
		}

		if attempt == last {
			break
		}
		delay = s.nextDelay(delay)
		log.Debug().Str("url", u).Int("attempt", attempt+1).Dur("backoff", delay).Bool("rateLimited", res.RateLimited).Msg("retrying scrape")
		if err := s.sleep(ctx, delay); err != nil {
			res.Error = err.Error()
			break
		}
	}

	res.Duration = time.Since(start)
	return res
}

func (s *Scraper) attempt(ctx context.Context, u string) ([]string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	body, err := s.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	return ParseRetailerURLs(body)
}

func (s *Scraper) nextDelay(current time.Duration) time.Duration {
	if current < s.opts.MinRetryDelay {
		current = s.opts.MinRetryDelay
	}
	return time.Duration(float64(current) * s.opts.Backoff)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
