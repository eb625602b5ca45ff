package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/orbstracker/internal/dashboard"
	"github.com/alanyoungcy/orbstracker/internal/domain"
	"github.com/alanyoungcy/orbstracker/internal/odds"
)

// OddsHandler exposes the resolved snapshots as JSON.
type OddsHandler struct {
	loader SnapshotLoader
	logger *slog.Logger
}

// NewOddsHandler creates an OddsHandler.
func NewOddsHandler(loader SnapshotLoader, logger *slog.Logger) *OddsHandler {
	return &OddsHandler{loader: loader, logger: logHandler(logger, "odds")}
}

// Odds returns the odds snapshot, empty when the upstream failed.
// GET /api/odds
func (h *OddsHandler) Odds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.loader.Load(r.Context()).Odds)
}

// Arbitrage returns the arbitrage snapshot, empty when the upstream failed.
// GET /api/arbitrage
func (h *OddsHandler) Arbitrage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.loader.Load(r.Context()).Arbitrage)
}

type bestSide struct {
	Odds       int      `json:"odds"`
	Bookmakers []string `json:"bookmakers"`
}

type bestOddsGame struct {
	GameID       string    `json:"game_id"`
	League       string    `json:"league"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	CommenceTime time.Time `json:"commence_time"`
	BestHome     *bestSide `json:"best_home"`
	BestAway     *bestSide `json:"best_away"`
}

type bestOddsResponse struct {
	Games       []bestOddsGame `json:"games"`
	LastUpdated time.Time      `json:"last_updated"`
}

// BestOdds returns the best home and away price per game with every book
// offering it. A side no book quotes is null.
// GET /api/best-odds?league=nba|nfl (both leagues when omitted)
func (h *OddsHandler) BestOdds(w http.ResponseWriter, r *http.Request) {
	snap := h.loader.Load(r.Context()).Odds

	leagues := domain.Leagues
	if r.URL.Query().Get("league") != "" {
		leagues = []domain.League{leagueParam(r)}
	}

	resp := bestOddsResponse{Games: []bestOddsGame{}, LastUpdated: snap.LastUpdated}
	for _, l := range leagues {
		for _, g := range dashboard.SortGames(snap.Games(l)) {
			item := bestOddsGame{
				GameID:       g.ID,
				League:       string(l),
				HomeTeam:     g.HomeTeam,
				AwayTeam:     g.AwayTeam,
				CommenceTime: g.CommenceTime,
			}
			if best, ok := odds.Best(g.Bookmakers); ok {
				home, away := odds.Holders(g.Bookmakers)
				if odds.Offered(best.Home) {
					item.BestHome = &bestSide{Odds: best.Home, Bookmakers: home}
				}
				if odds.Offered(best.Away) {
					item.BestAway = &bestSide{Odds: best.Away, Bookmakers: away}
				}
			}
			resp.Games = append(resp.Games, item)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
