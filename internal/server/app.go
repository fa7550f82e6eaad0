// Package server is the composition root: it builds every component from
// config, runs the HTTP server and the cache sweeper, and shuts them down.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/product-data-explorer/internal/api"
	"github.com/JakeFAU/product-data-explorer/internal/cache"
	"github.com/JakeFAU/product-data-explorer/internal/catalog"
	"github.com/JakeFAU/product-data-explorer/internal/clock/system"
	"github.com/JakeFAU/product-data-explorer/internal/config"
	collyfetcher "github.com/JakeFAU/product-data-explorer/internal/fetcher/colly"
	"github.com/JakeFAU/product-data-explorer/internal/logging"
	"github.com/JakeFAU/product-data-explorer/internal/policy/ratelimit"
	"github.com/JakeFAU/product-data-explorer/internal/scraper"
)

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *cache.Store
	apiServer *api.Server
}

// Build creates the application's dependencies.
func Build(cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return build(cfg, logger), nil
}

func build(cfg *config.Config, logger *zap.Logger) *App {
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("environment", cfg.Environment),
		zap.String("origin", cfg.Upstream.Origin),
		zap.Strings("allowed_origins", cfg.Server.AllowedOrigins),
	)

	store := cache.New(cache.Config{
		MaxEntries: cfg.Cache.MaxEntries,
		DefaultTTL: cfg.Cache.DefaultTTL,
		Clock:      system.New(),
		Logger:     logger.Named("cache"),
	})

	var limiter scraper.Limiter
	if cfg.Upstream.RateLimit.Enabled {
		limiter = ratelimit.New(ratelimit.Config{
			RPS:   cfg.Upstream.RateLimit.RPS,
			Burst: cfg.Upstream.RateLimit.Burst,
		})
	}
	fetcher := scraper.NewRetryingFetcher(
		collyfetcher.New(collyfetcher.Config{
			UserAgent:    cfg.Upstream.UserAgent,
			Timeout:      cfg.Upstream.Timeout,
			AllowedHosts: cfg.Upstream.AllowedHosts,
		}),
		scraper.NewFixedRetryPolicy(cfg.Upstream.RetryDelay),
		limiter,
		logger.Named("fetcher"),
	)

	svc := catalog.New(store, fetcher, catalog.Config{
		Origin:       cfg.Upstream.Origin,
		AllowedHosts: cfg.Upstream.AllowedHosts,
		Logger:       logger.Named("catalog"),
	})

	apiServer := api.NewServer(svc, store, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Development:    cfg.Development(),
		Logger:         logger.Named("api"),
		Started:        time.Now(),
	})

	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		apiServer: apiServer,
	}
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run starts the application and blocks until ctx is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.logger.Info("cache sweeper started", zap.Duration("interval", a.cfg.Cache.SweepInterval))
		a.store.Run(ctx, a.cfg.Cache.SweepInterval)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	wg.Wait()
	a.Close()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve http: %w", err)
	default:
		return nil
	}
}

// Close flushes the logger.
func (a *App) Close() {
	a.logger.Info("shutdown complete")
	// Sync fails on non-file sinks such as a terminal; nothing to recover.
	_ = a.logger.Sync()
}
