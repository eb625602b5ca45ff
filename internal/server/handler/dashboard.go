package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/orbstracker/internal/dashboard"
	"github.com/alanyoungcy/orbstracker/internal/domain"
)

// PageRenderer writes a composed view as HTML. dashboard.Renderer satisfies it.
type PageRenderer interface {
	Render(w io.Writer, v dashboard.View) error
}

// DashboardHandler serves the dashboard page and its JSON view model.
type DashboardHandler struct {
	loader   SnapshotLoader
	composer *dashboard.Composer
	renderer PageRenderer
	logger   *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(loader SnapshotLoader, composer *dashboard.Composer, renderer PageRenderer, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		loader:   loader,
		composer: composer,
		renderer: renderer,
		logger:   logHandler(logger, "dashboard"),
	}
}

// Page renders the dashboard for the selected league. Upstream failures
// still render a page, with the scanning banner and the empty-league message.
// GET /?league=nba|nfl
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	view := h.view(r, leagueParam(r))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.Render(w, view); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: render dashboard failed",
			slog.String("error", err.Error()),
		)
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
	}
}

// View returns the composed view model as JSON.
// GET /api/view?league=nba|nfl
func (h *DashboardHandler) View(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.view(r, leagueParam(r)))
}

func (h *DashboardHandler) view(r *http.Request, league domain.League) dashboard.View {
	snaps := h.loader.Load(r.Context())
	return h.composer.Compose(snaps.Odds, snaps.Arbitrage, league)
}
