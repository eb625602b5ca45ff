// Package app provides the top-level application lifecycle for OrbsTracker.
// It wires the adapters (upstream client, caches, stores, blob storage,
// notifications), builds the snapshot service and its sinks, and runs the
// HTTP server, the WebSocket hub and the background refresher together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/orbstracker/internal/config"
	"github.com/alanyoungcy/orbstracker/internal/dashboard"
	"github.com/alanyoungcy/orbstracker/internal/domain"
	"github.com/alanyoungcy/orbstracker/internal/server"
	"github.com/alanyoungcy/orbstracker/internal/server/handler"
	"github.com/alanyoungcy/orbstracker/internal/server/ws"
	"github.com/alanyoungcy/orbstracker/internal/service"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run wires all dependencies, starts the server, hub and refresher, and
// blocks until the context is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	log := a.logger.With(slog.String("component", "app"))
	log.InfoContext(ctx, "starting application",
		slog.String("upstream", a.cfg.Upstream.BaseURL),
		slog.String("addr", a.cfg.Server.Addr),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	loc, err := a.cfg.Location()
	if err != nil {
		return fmt.Errorf("app: timezone: %w", err)
	}
	renderer, err := dashboard.NewRenderer()
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	hub := ws.NewHub(deps.RefreshBus, a.logger).AllowOrigins(a.cfg.Server.CORSOrigins)

	// Without a database the sighting log lives in process so alerts and the
	// history endpoint still work on a single replica.
	sightings := deps.SightingStore
	if sightings == nil {
		sightings = service.NewMemorySightings(0)
	}

	svc := service.NewSnapshotService(
		deps.Upstream,
		deps.SnapshotCache,
		buildSinks(deps, sightings, hub, a.logger),
		service.SnapshotConfig{
			Timeout:    a.cfg.Upstream.Timeout.Duration,
			Revalidate: a.cfg.Upstream.Revalidate.Duration,
			BaseURL:    deps.Upstream.BaseURL(),
		},
		a.logger,
	)
	a.closers = append(a.closers, svc.Wait)

	history := handler.NewHistoryHandler(sightings, a.logger)
	if deps.AuditStore != nil {
		history.WithAuditStore(deps.AuditStore)
	}
	var archive handler.ArchiveLister
	if deps.Archiver != nil {
		archive = deps.Archiver
	}

	srv := server.NewServer(server.Config{
		Addr:        a.cfg.Server.Addr,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
		Limiter:     deps.RateLimiter,
		TrustProxy:  a.cfg.Server.TrustProxy,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(svc, deps.Pingers, a.logger),
		Dashboard: handler.NewDashboardHandler(svc, dashboard.NewComposer(loc), renderer, a.logger),
		Odds:      handler.NewOddsHandler(svc, a.logger),
		History:   history,
		Archive:   handler.NewArchiveHandler(archive, a.logger),
	}, hub, a.logger)

	refresher := service.NewRefresher(svc, deps.LockManager, a.cfg.Upstream.PollInterval.Duration, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return refresher.Run(gctx) })
	g.Go(func() error { return srv.Start(gctx) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return ctx.Err()
}

// buildSinks assembles the sinks for the configured backends. The sighting
// sink always runs; archive and audit only when their backend exists.
// Refresh notices go through the bus when there is one so every replica's
// hub hears them, and straight to the local hub otherwise.
func buildSinks(deps *Dependencies, sightings domain.SightingStore, hub *ws.Hub, logger *slog.Logger) []service.Sink {
	var notifier service.AlertNotifier
	if deps.Notifier.Enabled() {
		notifier = deps.Notifier
	}

	sinks := []service.Sink{service.NewSightingSink(sightings, notifier, logger)}
	if deps.Archiver != nil {
		sinks = append(sinks, service.NewArchiveSink(deps.Archiver, logger))
	}
	if deps.AuditStore != nil {
		sinks = append(sinks, service.NewAuditSink(deps.AuditStore))
	}

	var publisher service.Publisher = hub
	if deps.RefreshBus != nil {
		publisher = deps.RefreshBus
	}
	return append(sinks, service.NewBroadcastSink(publisher, logger))
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	done := make(chan struct{})
	go func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		a.logger.Warn("shutdown timed out waiting for background work")
	}
	a.closers = nil
}
