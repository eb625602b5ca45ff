package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/orbstracker/internal/service"
)

// StatusProvider reports the recent upstream read outcome.
type StatusProvider interface {
	Status() service.UpstreamStatus
}

// Pinger checks that a dependency is reachable.
type Pinger func(ctx context.Context) error

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	status  StatusProvider
	pingers map[string]Pinger
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. pingers are keyed by dependency
// name ("redis", "postgres", "s3").
func NewHealthHandler(status StatusProvider, pingers map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{status: status, pingers: pingers, logger: logHandler(logger, "health")}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status       string                      `json:"status"`
	Timestamp    string                      `json:"timestamp"`
	Upstream     service.UpstreamStatus      `json:"upstream"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// HealthCheck reports liveness, the upstream read status, and a ping of each
// configured dependency. The process is alive whenever it can answer, so the
// code is 200 unless a dependency ping fails, in which case it is 503.
// Upstream failures only set status to "degraded".
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:       "ok",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Dependencies: make(map[string]dependencyStatus, len(h.pingers)),
	}
	if h.status != nil {
		resp.Upstream = h.status.Status()
		if !resp.Upstream.Odds.Healthy() || !resp.Upstream.Arbitrage.Healthy() {
			resp.Status = "degraded"
		}
	}

	names := make([]string, 0, len(h.pingers))
	for name := range h.pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	code := http.StatusOK
	for _, name := range names {
		ping := h.pingers[name]
		g.Go(func() error {
			st := dependencyStatus{Status: "ok"}
			if err := ping(ctx); err != nil {
				st = dependencyStatus{Status: "error", Error: err.Error()}
				h.logger.WarnContext(ctx, "handler: dependency ping failed",
					slog.String("dependency", name),
					slog.String("error", err.Error()),
				)
			}
			mu.Lock()
			resp.Dependencies[name] = st
			if st.Status != "ok" {
				resp.Status = "unhealthy"
				code = http.StatusServiceUnavailable
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	writeJSON(w, code, resp)
}
