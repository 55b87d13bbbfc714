package directlinks

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Stats summarise one ScrapeAll run.
type Stats struct {
	TotalURLs         int           `json:"total_urls"`
	Successful        int           `json:"successful_count"`
	Failed            int           `json:"failed_count"`
	RateLimitHits     int           `json:"rate_limit_hits"`
	TotalRequests     int           `json:"total_requests"`
	Workers           int           `json:"max_workers"`
	BaseDelay         time.Duration `json:"base_delay"`
	StartedAt         time.Time     `json:"start_time"`
	FinishedAt        time.Time     `json:"end_time,omitempty"`
	Duration          time.Duration `json:"total_duration"`
	RequestsPerSecond float64       `json:"avg_requests_per_second"`
}

// Progress is a point-in-time copy of a running ScrapeAll.
type Progress struct {
	Completed  int                 `json:"completed"`
	Successful map[string][]string `json:"successful"`
	Failed     map[string]string   `json:"failed"`
	Stats      Stats               `json:"stats"`
}

// Observer receives progress after every completed URL. Implementations
// must return quickly; they run on the merging goroutine.
type Observer interface {
	Observe(p Progress)
}

type aggregator struct {
	start      time.Time
	stats      Stats
	results    []ScrapeResult
	successful map[string][]string
	failed     map[string]string
}

func newAggregator(total int, opts Options) *aggregator {
	now := time.Now()
	return &aggregator{
		start: now,
		stats: Stats{
			TotalURLs: total,
			Workers:   opts.Workers,
			BaseDelay: opts.BaseDelay,
			StartedAt: now,
		},
		results:    make([]ScrapeResult, 0, total),
		successful: map[string][]string{},
		failed:     map[string]string{},
	}
}

func (a *aggregator) add(r ScrapeResult) {
	a.results = append(a.results, r)
	a.stats.TotalRequests += r.Attempts
	if r.Success {
		a.successful[r.URL] = r.RetailerURLs
		a.stats.Successful++
	} else {
		a.failed[r.URL] = r.Error
		a.stats.Failed++
	}
	if r.RateLimited {
		a.stats.RateLimitHits++
	}
}

func (a *aggregator) snapshot() Progress {
	p := Progress{
		Completed:  len(a.results),
		Successful: make(map[string][]string, len(a.successful)),
		Failed:     make(map[string]string, len(a.failed)),
		Stats:      a.stats,
	}
	for k, v := range a.successful {
		p.Successful[k] = v
	}
	for k, v := range a.failed {
		p.Failed[k] = v
	}
	return p
}

func (a *aggregator) finish() Stats {
	a.stats.FinishedAt = time.Now()
	a.stats.Duration = a.stats.FinishedAt.Sub(a.start)
	if secs := a.stats.Duration.Seconds(); secs > 0 {
		a.stats.RequestsPerSecond = float64(a.stats.TotalRequests) / secs
	}
	return a.stats
}

// FileSnapshotter writes progress to a JSON file every N completed URLs and
// at the end of the run. Writes happen on a background goroutine; while a
// write is in progress intermediate snapshots are dropped, the final one
// waits for the writer.
type FileSnapshotter struct {
	path  string
	every int
	ch    chan Progress
	wg    sync.WaitGroup
	write func(path string, v any) error
}

func NewFileSnapshotter(path string, every int) *FileSnapshotter {
	return newFileSnapshotter(path, every, writeJSON)
}

func newFileSnapshotter(path string, every int, write func(string, any) error) *FileSnapshotter {
	if every <= 0 {
		every = 10
	}
	f := &FileSnapshotter{path: path, every: every, ch: make(chan Progress, 1), write: write}
	f.wg.Add(1)
	go f.loop()
	return f
}

func (f *FileSnapshotter) Observe(p Progress) {
	final := p.Completed == p.Stats.TotalURLs
	if p.Completed%f.every != 0 && !final {
		return
	}
	if final {
		f.ch <- p
		return
	}
	select {
	case f.ch <- p:
	default:
		log.Debug().Int("completed", p.Completed).Msg("progress snapshot skipped")
	}
}

// Close waits for pending writes.
func (f *FileSnapshotter) Close() error {
	close(f.ch)
	f.wg.Wait()
	return nil
}

func (f *FileSnapshotter) loop() {
	defer f.wg.Done()
	for p := range f.ch {
		if err := f.write(f.path, p); err != nil {
			log.Warn().Err(err).Str("path", f.path).Msg("failed to save scraping progress")
		}
	}
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
