package sweeper

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fitfind/fitfind/internal/blobstore"
	"github.com/fitfind/fitfind/internal/metrics"
	"github.com/fitfind/fitfind/internal/storage"
)

const (
	// SweepInterval is the time between cleanup cycles.
	SweepInterval = time.Hour

	// DefaultRetention is how long sessions and cached extractions are kept.
	DefaultRetention = 30 * 24 * time.Hour
)

// Pruner removes expired rows and reports the blobs they referenced.
type Pruner interface {
	PruneOlderThan(olderThan time.Duration) (storage.PruneResult, error)
}

// Service periodically removes expired sessions, their images and stale
// artifact files.
type Service struct {
	store     Pruner
	blobs     blobstore.Store
	retention time.Duration
	dirs      []string
	now       func() time.Time
}

// NewService creates a sweeper. Files directly below dirs that are older
// than retention are removed as well.
func NewService(store Pruner, blobs blobstore.Store, retention time.Duration, dirs ...string) *Service {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Service{store: store, blobs: blobs, retention: retention, dirs: dirs, now: time.Now}
}

// Run starts the cleanup loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	log.Info().Dur("interval", SweepInterval).Dur("retention", s.retention).Msg("starting sweeper")

	s.Sweep(ctx)

	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup cycle.
func (s *Service) Sweep(ctx context.Context) {
	res, err := s.store.PruneOlderThan(s.retention)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune sessions")
		return
	}
	metrics.PrunedSessionsTotal.Add(float64(res.Sessions))

	deleted := 0
	for _, path := range res.ImagePaths {
		if ctx.Err() != nil {
			return
		}
		if s.blobs == nil || path == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to delete session image")
			continue
		}
		deleted++
	}

	files := 0
	for _, dir := range s.dirs {
		files += s.removeStaleFiles(dir)
	}

	if res.Sessions > 0 || res.CacheEntries > 0 || files > 0 {
		log.Info().
			Int64("sessions", res.Sessions).
			Int64("cacheEntries", res.CacheEntries).
			Int("images", deleted).
			Int("files", files).
			Msg("pruned expired data")
	}
}

func (s *Service) removeStaleFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to list directory")
		}
		return 0
	}

	cutoff := s.now().Add(-s.retention)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			log.Warn().Err(err).Str("file", e.Name()).Msg("failed to remove stale file")
			continue
		}
		removed++
	}
	return removed
}
