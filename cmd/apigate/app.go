package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mercator-hq/apigate/pkg/catalog"
	"mercator-hq/apigate/pkg/catalog/gitsync"
	"mercator-hq/apigate/pkg/config"
	"mercator-hq/apigate/pkg/dispatch"
	"mercator-hq/apigate/pkg/gateway"
	"mercator-hq/apigate/pkg/logsapi"
	"mercator-hq/apigate/pkg/requestlog"
	"mercator-hq/apigate/pkg/requestlog/recorder"
	"mercator-hq/apigate/pkg/requestlog/retention"
	"mercator-hq/apigate/pkg/requestlog/storage"
	"mercator-hq/apigate/pkg/routing"
	"mercator-hq/apigate/pkg/security/secrets"
	"mercator-hq/apigate/pkg/server"
	"mercator-hq/apigate/pkg/telemetry/health"
	"mercator-hq/apigate/pkg/telemetry/metrics"
	"mercator-hq/apigate/pkg/telemetry/tracing"
)

// app is a fully wired gateway process.
type app struct {
	cfg *config.Config

	metrics *metrics.Collector
	tracer  *tracing.Tracer

	catalog   *catalog.Catalog
	watcher   *catalog.Watcher
	gitSync   *gitsync.Syncer
	cache     dispatch.Store
	storage   requestlog.Storage
	scheduler recorder.Scheduler
	pruner    *retention.Pruner
	server    *server.Server

	logger *slog.Logger
}

// pinger is implemented by cache backends with a connection to check.
type pinger interface {
	Ping(ctx context.Context) error
}

// newApp builds every component from cfg. On error, whatever was already
// opened is closed.
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{
		cfg:    cfg,
		logger: slog.Default().With("component", "app"),
	}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	if cfg.Telemetry.Metrics.Enabled {
		a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	catalogPath := cfg.Catalog.Path
	var repo *gitsync.Repository
	if cfg.Catalog.Git.Repository != "" {
		repo, err = gitsync.NewRepository(cfg.Catalog.Git)
		if err != nil {
			return nil, err
		}
		if err := repo.Clone(ctx); err != nil {
			return nil, err
		}
		catalogPath = repo.CatalogPath()
	}

	a.catalog, err = catalog.Load(catalogPath)
	if err != nil {
		return nil, err
	}
	if repo != nil {
		a.gitSync = gitsync.NewSyncer(repo, a.catalog, cfg.Catalog.Git.PollInterval)
	}

	a.cache, err = dispatch.NewStore(ctx, cfg.Cache, a.metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to open response cache: %w", err)
	}

	if cfg.Logs.Mode != "remote" {
		a.storage, err = storage.New(cfg.Logs.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to open log storage: %w", err)
		}
		a.pruner = retention.NewPruner(a.storage, cfg.Logs.Retention, a.metrics)
	}

	rec, err := a.newRecorder()
	if err != nil {
		return nil, err
	}

	dispatcher := dispatch.NewDispatcher(cfg.Gateway, a.cache,
		dispatch.WithMetrics(a.metrics),
		dispatch.WithTracer(a.tracer),
	)

	secretManager, err := secrets.NewManagerFromConfig(cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets: %w", err)
	}

	selector, err := routing.NewSelector(cfg.Gateway.ServerSelection)
	if err != nil {
		return nil, err
	}

	gw := gateway.New(a.catalog, secrets.NewCredentialStore(a.catalog, secretManager), dispatcher, rec,
		gateway.WithAppOrigin(cfg.Gateway.AppOrigin),
		gateway.WithServerSelector(selector),
		gateway.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		gateway.WithMetrics(a.metrics),
		gateway.WithTracer(a.tracer),
	)

	opts := server.Options{
		Gateway: gw,
		Health:  a.healthChecker(),
		Metrics: a.metrics,
		Tracer:  a.tracer,
		Build:   server.BuildInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate},
	}
	if a.storage != nil {
		opts.Logs = logsapi.NewHandler(a.storage, cfg.Logs).Routes()
	}
	a.server = server.New(cfg, opts)

	return a, nil
}

func (a *app) newRecorder() (*recorder.Recorder, error) {
	opts := []recorder.Option{recorder.WithMetrics(a.metrics), recorder.WithTracer(a.tracer)}
	if !a.cfg.Logs.Enabled {
		a.scheduler = recorder.SyncScheduler{}
		return recorder.New(nil, a.scheduler, append(opts, recorder.WithDisabled())...), nil
	}

	sink, err := storage.NewSink(a.cfg.Logs, a.storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create log sink: %w", err)
	}

	rc := a.cfg.Logs.Recorder
	detached := recorder.NewDetachedScheduler(rc.Workers, rc.QueueSize, rc.WriteTimeout, rc.GracePeriod)
	a.metrics.ObserveLogQueue(detached.Pending)
	a.scheduler = detached
	return recorder.New(sink, a.scheduler, opts...), nil
}

func (a *app) healthChecker() *health.Checker {
	checker := health.New(0)

	checker.RegisterCheck("catalog", func(context.Context) error {
		if len(a.catalog.ProjectIDs()) == 0 {
			return errors.New("catalog has no projects")
		}
		return nil
	})
	if a.storage != nil {
		checker.RegisterCheck("log_storage", func(ctx context.Context) error {
			_, err := a.storage.Count(ctx, &requestlog.Query{Limit: 1})
			return err
		})
	}
	if p, ok := a.cache.(pinger); ok {
		checker.RegisterCheck("cache", p.Ping)
	}
	return checker
}

// run starts the background components and serves until ctx is cancelled.
func (a *app) run(ctx context.Context) error {
	if a.cfg.Catalog.Watch {
		watcher, err := catalog.NewWatcher(a.catalog, catalog.DefaultDebounce)
		if err != nil {
			return fmt.Errorf("failed to watch catalog: %w", err)
		}
		a.watcher = watcher
		go func() {
			err := watcher.Watch(ctx, func(err error) {
				if err != nil {
					a.logger.Error("catalog reload failed, keeping previous catalog", "error", err)
					return
				}
				a.logger.Info("catalog reloaded", "projects", len(a.catalog.ProjectIDs()))
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("catalog watcher stopped", "error", err)
			}
		}()
	}

	if a.gitSync != nil {
		go a.gitSync.Run(ctx)
	}

	if a.pruner != nil {
		if err := a.pruner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start log retention: %w", err)
		}
		if next := a.pruner.NextPruning(); next != nil {
			a.logger.Info("log retention scheduled", "next_pruning", next)
		}
	}

	return a.server.Start(ctx)
}

// close stops background work, drains pending log deliveries and releases
// backends. It is safe on a partially built app.
func (a *app) close(ctx context.Context) error {
	var errs []error

	if a.watcher != nil {
		errs = append(errs, a.watcher.Stop())
	}
	if a.pruner != nil {
		a.pruner.Stop()
	}
	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Close(ctx))
	}
	if a.storage != nil {
		errs = append(errs, a.storage.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	errs = append(errs, a.tracer.Shutdown(ctx))

	return errors.Join(errs...)
}
