// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/spindleworks/spindle/adapters/clock"
	"github.com/spindleworks/spindle/adapters/loader"
	"github.com/spindleworks/spindle/adapters/memory"
	"github.com/spindleworks/spindle/adapters/metrics"
	"github.com/spindleworks/spindle/app"
	"github.com/spindleworks/spindle/config"
	"github.com/spindleworks/spindle/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Cache      *memory.ManifestCache
	Loader     *loader.Router
	Registry   *loader.Registry
	Resolver   *app.Service
	Metrics    *metrics.Collector
	Watcher    *app.Watcher
	HTTPServer *http.Server
}

// New creates and initializes the application from configuration.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("initializing spindle")

	a := &App{
		Logger: logger,
		Config: cfg,
	}

	clk := clock.Real{}
	a.Cache = memory.NewManifestCache(cfg.Resolver.CacheMaxAge, clk)

	fileLoader, err := loader.NewFile(cfg.Resolver.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("init file loader: %w", err)
	}
	a.Loader = &loader.Router{
		File: fileLoader,
		HTTP: loader.NewHTTP(cfg.Resolver.HTTPTimeout),
	}
	if cfg.Registry.DSN != "" {
		registry, err := loader.OpenRegistry(cfg.Registry.DSN)
		if err != nil {
			return nil, fmt.Errorf("init registry: %w", err)
		}
		a.Registry = registry
		a.Loader.Registry = registry
		logger.Info().Str("dsn", cfg.Registry.DSN).Msg("manifest registry enabled")
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	}

	a.Resolver = app.NewService(a.Loader, a.Cache, clk, a.Metrics, logger, cfg.Resolver.MaxDepth)

	if cfg.Watch.IsEnabled() {
		watcher, err := app.NewWatcher(cfg.Resolver.BaseDir, a.Cache, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("file watching unavailable")
		} else {
			a.Watcher = watcher
		}
	}

	handler := web.NewHandler(web.Deps{
		Resolver: a.Resolver,
		Logger:   logger,
		MaxDepth: cfg.Resolver.MaxDepth,
		Metrics:  cfg.Metrics.Enabled,
	})
	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	if a.Watcher != nil {
		a.Watcher.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.Watcher != nil {
		a.Watcher.Stop()
	}
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}
	if a.Registry != nil {
		if err := a.Registry.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("registry close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
