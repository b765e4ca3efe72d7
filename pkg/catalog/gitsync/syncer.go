package gitsync

import (
	"context"
	"log/slog"
	"time"
)

// Reloader re-reads the catalog from disk.
type Reloader interface {
	Reload() error
}

// Syncer pulls the repository on an interval and reloads the catalog when
// new commits arrive.
type Syncer struct {
	repo     *Repository
	catalog  Reloader
	interval time.Duration
	logger   *slog.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(repo *Repository, catalog Reloader, interval time.Duration) *Syncer {
	return &Syncer{
		repo:     repo,
		catalog:  catalog,
		interval: interval,
		logger:   slog.Default().With("component", "catalog_git"),
	}
}

// Sync pulls once and reloads on change. It reports whether the catalog
// was reloaded. A failed reload leaves the previous catalog in effect.
func (s *Syncer) Sync(ctx context.Context) (bool, error) {
	result, err := s.repo.Pull(ctx)
	if err != nil {
		return false, err
	}
	if !result.Changed() {
		return false, nil
	}

	if err := s.catalog.Reload(); err != nil {
		return false, err
	}
	s.logger.Info("catalog synced from git", "from", shortSHA(result.FromSHA), "to", shortSHA(result.ToSHA))
	return true, nil
}

// Run syncs every interval until ctx is cancelled. A non-positive
// interval returns immediately.
func (s *Syncer) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sync(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("catalog git sync failed, keeping previous catalog", "error", err)
			}
		}
	}
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
