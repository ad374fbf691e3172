// Package app provides the top-level application lifecycle for the builder
// trades dashboard. It wires the dependencies (feed client, stores, caches,
// object storage, notifications), builds the sync engine and HTTP server, and
// runs everything under one errgroup until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/buildertrades/internal/config"
	"github.com/alanyoungcy/buildertrades/internal/server"
	"github.com/alanyoungcy/buildertrades/internal/server/handler"
	"github.com/alanyoungcy/buildertrades/internal/server/ws"
	"github.com/alanyoungcy/buildertrades/internal/syncer"
)

// shutdownGrace caps how long in-flight HTTP requests may run after the
// context is cancelled.
const shutdownGrace = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the server
// and background loops, and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("port", a.cfg.Server.Port),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	hub := ws.NewHub(a.logger)

	engine := syncer.NewEngine(deps.Feed, deps.TradeStore, deps.StateStore, syncer.Options{
		Locker:      deps.RunLocker,
		LockTTL:     deps.LockTTL,
		Cache:       deps.SummaryCache,
		Alerter:     deps.Notifier,
		Broadcaster: hub,
	}, a.logger)

	// A nil *s3blob.Client must not reach the handler as a non-nil interface.
	var blobPinger handler.Pinger
	if deps.Blob != nil {
		blobPinger = deps.Blob
	}

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		},
		server.Handlers{
			Health:     handler.NewHealthHandler(deps.DB, blobPinger, a.logger),
			Sync:       handler.NewSyncHandler(engine, deps.StateStore, a.logger),
			Trades:     handler.NewTradesHandler(deps.TradeStore, deps.StateStore, deps.SummaryCache, a.logger),
			Connection: handler.NewConnectionHandler(engine, a.logger),
		},
		hub,
		a.logger,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return hub.Run(gctx)
	})

	if interval := a.cfg.Sync.Interval.Duration; interval > 0 {
		g.Go(func() error {
			return engine.RunLoop(gctx, interval)
		})
	}

	if deps.Archiver != nil {
		archiver := deps.Archiver
		g.Go(func() error {
			return archiver.RunLoop(gctx, a.cfg.Sync.ArchiveInterval.Duration)
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app: %w", err)
	}
	return nil
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
