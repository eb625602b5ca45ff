package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/alanyoungcy/orbstracker/internal/domain"
	"github.com/alanyoungcy/orbstracker/internal/server/handler"
	"github.com/alanyoungcy/orbstracker/internal/server/middleware"
	"github.com/alanyoungcy/orbstracker/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr        string
	CORSOrigins []string
	APIKey      string // guards the operator routes; empty leaves them open

	// RateLimit caps /api/* requests per client per RateWindow. Zero, or a
	// nil Limiter, disables it.
	RateLimit  int
	RateWindow time.Duration
	Limiter    domain.RateLimiter
	TrustProxy bool // key clients on X-Forwarded-For; set only behind a proxy that rewrites it
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Dashboard *handler.DashboardHandler
	Odds      *handler.OddsHandler
	History   *handler.HistoryHandler
	Archive   *handler.ArchiveHandler
}

// Server serves the dashboard page, its JSON API, and the refresh socket.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with every route registered and the middleware
// chain applied.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewHandler(cfg, handlers, wsHub, logger),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the routed, middleware-wrapped handler.
func NewHandler(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	limited := middleware.RateLimit(cfg.Limiter, cfg.RateLimit, cfg.RateWindow, cfg.TrustProxy, logger)
	api := func(h http.HandlerFunc) http.Handler { return limited(h) }
	protected := func(h http.HandlerFunc) http.Handler { return middleware.Auth(cfg.APIKey)(limited(h)) }

	// Dashboard page.
	mux.HandleFunc("GET /{$}", handlers.Dashboard.Page)

	// Health check (no auth, no limit).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Snapshot endpoints.
	mux.Handle("GET /api/odds", api(handlers.Odds.Odds))
	mux.Handle("GET /api/arbitrage", api(handlers.Odds.Arbitrage))
	mux.Handle("GET /api/best-odds", api(handlers.Odds.BestOdds))
	mux.Handle("GET /api/view", api(handlers.Dashboard.View))

	// Operator endpoints.
	mux.Handle("GET /api/arbitrage/history", protected(handlers.History.Sightings))
	mux.Handle("GET /api/audit", protected(handlers.History.Audit))
	mux.Handle("GET /api/archive", protected(handlers.Archive.List))
	mux.Handle("GET /api/archive/object", protected(handlers.Archive.Object))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.logger.Info("server: starting", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: serve: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
