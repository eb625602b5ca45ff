package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/orbstracker/internal/dashboard"
	"github.com/alanyoungcy/orbstracker/internal/domain"
	"github.com/alanyoungcy/orbstracker/internal/server/handler"
	"github.com/alanyoungcy/orbstracker/internal/service"
)

type emptyLoader struct{}

func (emptyLoader) Load(context.Context) service.Snapshots {
	at := time.Date(2025, 1, 15, 20, 0, 0, 0, time.UTC)
	return service.Snapshots{
		Odds:      domain.EmptyOddsSnapshot(at),
		Arbitrage: domain.EmptyArbitrageSnapshot(at),
	}
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string, int, time.Duration) (bool, error) { return false, nil }

func newTestHandler(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	renderer, err := dashboard.NewRenderer()
	require.NoError(t, err)

	loader := emptyLoader{}
	return NewHandler(cfg, Handlers{
		Health:    handler.NewHealthHandler(nil, nil, logger),
		Dashboard: handler.NewDashboardHandler(loader, dashboard.NewComposer(time.UTC), renderer, logger),
		Odds:      handler.NewOddsHandler(loader, logger),
		History:   handler.NewHistoryHandler(service.NewMemorySightings(0), logger),
		Archive:   handler.NewArchiveHandler(nil, logger),
	}, nil, logger)
}

func TestRoutes(t *testing.T) {
	h := newTestHandler(t, Config{})

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/?league=nfl", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodPost, "/api/odds", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/odds", http.StatusOK},
		{http.MethodGet, "/api/arbitrage", http.StatusOK},
		{http.MethodGet, "/api/best-odds", http.StatusOK},
		{http.MethodGet, "/api/view", http.StatusOK},
		{http.MethodGet, "/api/arbitrage/history", http.StatusOK},
		{http.MethodGet, "/api/audit", http.StatusNotImplemented},
		{http.MethodGet, "/api/archive", http.StatusNotImplemented},
		{http.MethodGet, "/api/archive/object?key=snapshots/x.json", http.StatusNotImplemented},
		{http.MethodGet, "/api/health", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRoutes_EmptyLeagueMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(t, Config{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), "No active games found for NBA.")
}

func TestRoutes_OperatorAuth(t *testing.T) {
	h := newTestHandler(t, Config{APIKey: "k"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/arbitrage/history", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/arbitrage/history", nil)
	req.Header.Set("X-API-Key", "k")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Public routes stay open.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/odds", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes_RateLimitSkipsPageAndHealth(t *testing.T) {
	h := newTestHandler(t, Config{Limiter: denyAll{}, RateLimit: 1, RateWindow: time.Second})

	for path, want := range map[string]int{
		"/api/odds":   http.StatusTooManyRequests,
		"/api/health": http.StatusOK,
		"/":           http.StatusOK,
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}
