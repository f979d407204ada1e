// Package app provides the top-level application lifecycle. It wires together
// all dependencies (backend client, state mirror, execution history, engine,
// summary service, push feed, API server) and runs them until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbdeck/internal/config"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	root    *slog.Logger
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		root:   logger,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts every
// long-running component, and blocks until the context is cancelled or one of
// the components fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.root)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return deps.Monitor.Run(gctx) })
	g.Go(func() error { return deps.Summary.Run(gctx) })
	g.Go(func() error { return deps.Hub.Run(gctx) })
	if deps.Feed != nil {
		g.Go(func() error { return deps.Feed.Run(gctx) })
	}
	if deps.Alerter != nil {
		g.Go(func() error { return deps.Alerter.Run(gctx) })
	}

	g.Go(func() error { return deps.Server.Start() })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return deps.Server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if err == context.Canceled {
		err = nil
	}
	return err
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
