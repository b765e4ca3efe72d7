package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"mercator-hq/apigate/pkg/config"
	"mercator-hq/apigate/pkg/proxy/middleware"
	servertls "mercator-hq/apigate/pkg/security/tls"
	"mercator-hq/apigate/pkg/telemetry/health"
	"mercator-hq/apigate/pkg/telemetry/metrics"
	"mercator-hq/apigate/pkg/telemetry/tracing"
)

// BuildInfo is reported on /version.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Options wires the server's handlers. Gateway is required; the rest are
// optional.
type Options struct {
	Gateway http.Handler
	Logs    http.Handler
	Health  *health.Checker
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Build   BuildInfo
}

// Server serves the gateway over HTTP.
type Server struct {
	config     *config.Config
	opts       Options
	httpServer *http.Server
	logger     *slog.Logger

	mu        sync.RWMutex
	isRunning bool
	addr      string
}

// New creates a server. It does not listen until Start.
func New(cfg *config.Config, opts Options) *Server {
	if opts.Health == nil {
		opts.Health = health.New(0)
	}
	return &Server{
		config: cfg,
		opts:   opts,
		logger: slog.Default().With("component", "server"),
	}
}

// Handler returns the router with the full middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware)
	if s.opts.Tracer.Enabled() {
		r.Use(tracing.HTTPMiddleware(s.opts.Tracer))
	}

	r.Get("/health", s.opts.Health.LivenessHandler())
	r.Get("/ready", s.opts.Health.ReadinessHandler())
	r.Get("/version", health.VersionHandler(s.opts.Build.Version, s.opts.Build.Commit, s.opts.Build.BuildTime))

	if s.opts.Metrics != nil && s.config.Telemetry.Metrics.Enabled {
		path := s.config.Telemetry.Metrics.Path
		if path == "" {
			path = config.DefaultPrometheusPath
		}
		r.Handle(path, s.opts.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if rl := s.config.RateLimit; rl.Enabled {
			r.Use(middleware.RateLimitMiddleware(rl.Requests, rl.Window))
		}
		r.Method(http.MethodPost, "/gateway/run", s.opts.Gateway)
	})

	if s.opts.Logs != nil {
		logs := chi.NewRouter()
		logs.Use(middleware.CORSMiddleware(middleware.DashboardCORSConfig(s.config.Gateway.AppOrigin)))
		logs.Mount("/", s.opts.Logs)
		r.Mount("/logs", logs)
	}

	return r
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	tlsConfig, reloader, err := servertls.NewServerConfig(s.config.Server.TLS)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to configure TLS: %w", err)
	}

	listener, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}

	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
		TLSConfig:      tlsConfig,
	}
	s.addr = listener.Addr().String()
	s.isRunning = true
	s.mu.Unlock()

	if reloader != nil {
		go reloader.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting gateway server", "address", s.addr, "tls", tlsConfig != nil)
		var err error
		if tlsConfig != nil {
			err = s.httpServer.ServeTLS(listener, "", "")
		} else {
			err = s.httpServer.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errCh:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown stops accepting connections and waits for in-flight requests,
// bounded by the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.logger.Info("gateway server stopped")
	return nil
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound listen address once started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}
