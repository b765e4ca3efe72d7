// Package retention prunes stored request logs by age and by count.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/apigate/pkg/config"
	"mercator-hq/apigate/pkg/requestlog"
	"mercator-hq/apigate/pkg/requestlog/export"
	"mercator-hq/apigate/pkg/telemetry/metrics"
)

// Pruner enforces the retention policy on a log storage.
type Pruner struct {
	storage   requestlog.Storage
	config    config.RetentionConfig
	metrics   *metrics.Collector
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a pruner. collector may be nil.
func NewPruner(storage requestlog.Storage, cfg config.RetentionConfig, collector *metrics.Collector) *Pruner {
	p := &Pruner{
		storage: storage,
		config:  cfg,
		metrics: collector,
		logger:  slog.Default().With("component", "requestlog.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes logs older than the retention period, then the oldest
// logs beyond MaxRecords. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.Days > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, requestlog.NewRetentionError(p.config.Days, err)
		}
		total += deleted
		if deleted > 0 {
			p.logger.Info("pruned logs by age",
				"deleted_count", deleted,
				"retention_days", p.config.Days,
			)
		}
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, requestlog.NewRetentionError(p.config.Days, fmt.Errorf("prune by count: %w", err))
		}
		total += deleted
		if deleted > 0 {
			p.logger.Info("pruned logs by count",
				"deleted_count", deleted,
				"max_records", p.config.MaxRecords,
			)
		}
	}

	p.metrics.RecordLogsPruned(total)
	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.Days)
	query := &requestlog.Query{EndTime: &cutoff}

	if p.config.ArchivePath != "" {
		logs, err := p.storage.Query(ctx, query)
		if err != nil {
			return 0, fmt.Errorf("query logs for archive: %w", err)
		}
		if err := p.archive(ctx, "age", logs); err != nil {
			return 0, err
		}
	}

	return p.storage.Delete(ctx, query)
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &requestlog.Query{})
	if err != nil {
		return 0, fmt.Errorf("count logs: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	toDelete := count - p.config.MaxRecords
	oldest, err := p.storage.Query(ctx, &requestlog.Query{
		SortOrder: "asc",
		Limit:     int(toDelete),
	})
	if err != nil {
		return 0, fmt.Errorf("query oldest logs: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	if err := p.archive(ctx, "count", oldest); err != nil {
		return 0, err
	}

	// Logs sharing the cutoff timestamp go with it.
	cutoff := oldest[len(oldest)-1].CreatedAt
	return p.storage.Delete(ctx, &requestlog.Query{EndTime: &cutoff})
}

func (p *Pruner) archive(ctx context.Context, reason string, logs []*requestlog.RequestLog) error {
	if p.config.ArchivePath == "" || len(logs) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	name := fmt.Sprintf("requestlogs-%s-%s.json", reason, p.now().UTC().Format("2006-01-02-150405"))
	path := filepath.Join(p.config.ArchivePath, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	if err := export.NewJSONExporter(true).Export(ctx, logs, f); err != nil {
		return err
	}

	p.logger.Info("archived request logs", "archive_file", path, "log_count", len(logs))
	return nil
}

// Start schedules pruning on the configured cron expression.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning and waits for a running job.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled run, or nil when unscheduled.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
