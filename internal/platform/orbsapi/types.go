package orbsapi

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/orbstracker/internal/domain"
)

// flexPrice unmarshals American odds sent as a JSON integer, a float (-110.0
// from Decimal-backed serializers) or a numeric string. null and a missing
// field both leave odds.NoPrice (zero).
type flexPrice int

func (p *flexPrice) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = 0
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n = json.Number(strings.TrimSpace(s))
	}
	f, err := n.Float64()
	if err != nil {
		return err
	}
	*p = flexPrice(math.Round(f))
	return nil
}

// flexFloat unmarshals a number or numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// --------------------------------------------------------------------------
// /odds DTOs
// --------------------------------------------------------------------------

// APIBookmaker is one bookmaker entry inside an APIGame.
type APIBookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	HomeOdds   flexPrice `json:"home_odds"`
	AwayOdds   flexPrice `json:"away_odds"`
	LastUpdate *string   `json:"last_update"`
}

// APIGame is a game as returned by GET /odds.
type APIGame struct {
	GameID       string         `json:"game_id"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	CommenceTime string         `json:"commence_time"`
	Bookmakers   []APIBookmaker `json:"bookmakers"`
}

// APIOddsResponse is the body of GET /odds.
type APIOddsResponse struct {
	NBA         []APIGame `json:"nba"`
	NFL         []APIGame `json:"nfl"`
	TotalGames  *int      `json:"total_games"`
	LastUpdated *string   `json:"last_updated"`
}

// ToDomainGame converts an APIGame to a domain.Game. An unparseable
// commence_time becomes the zero time.
func (g *APIGame) ToDomainGame() domain.Game {
	dg := domain.Game{
		ID:           g.GameID,
		HomeTeam:     g.HomeTeam,
		AwayTeam:     g.AwayTeam,
		CommenceTime: parseTimestamp(g.CommenceTime),
		Bookmakers:   make([]domain.BookmakerQuote, 0, len(g.Bookmakers)),
	}
	for _, b := range g.Bookmakers {
		q := domain.BookmakerQuote{
			Key:      b.Key,
			Title:    b.Title,
			HomeOdds: int(b.HomeOdds),
			AwayOdds: int(b.AwayOdds),
		}
		if q.Title == "" {
			q.Title = b.Key
		}
		if b.LastUpdate != nil {
			q.LastUpdate = parseTimestamp(*b.LastUpdate)
		}
		dg.Bookmakers = append(dg.Bookmakers, q)
	}
	return dg
}

// ToDomainSnapshot converts the /odds body to a domain.OddsSnapshot. Missing
// league arrays become empty slices; a missing total is derived from them.
func (r *APIOddsResponse) ToDomainSnapshot() domain.OddsSnapshot {
	snap := domain.OddsSnapshot{
		NBA: convertGames(r.NBA),
		NFL: convertGames(r.NFL),
	}
	if r.TotalGames != nil {
		snap.TotalGames = *r.TotalGames
	} else {
		snap.TotalGames = len(snap.NBA) + len(snap.NFL)
	}
	if r.LastUpdated != nil {
		snap.LastUpdated = parseTimestamp(*r.LastUpdated)
	}
	return snap
}

func convertGames(in []APIGame) []domain.Game {
	out := make([]domain.Game, 0, len(in))
	for i := range in {
		out = append(out, in[i].ToDomainGame())
	}
	return out
}

// --------------------------------------------------------------------------
// /arbitrage DTOs
// --------------------------------------------------------------------------

// APIOpportunity is an arbitrage entry as returned by GET /arbitrage. Older
// deployments name the profit and book fields differently; both spellings
// are accepted.
type APIOpportunity struct {
	GameID           string     `json:"game_id"`
	HomeTeam         string     `json:"home_team"`
	AwayTeam         string     `json:"away_team"`
	ProfitPercentage *flexFloat `json:"profit_percentage"`
	ProfitMargin     *flexFloat `json:"profit_margin"`
	HomeBookmaker    string     `json:"home_bookmaker"`
	AwayBookmaker    string     `json:"away_bookmaker"`
	BestHomeBook     string     `json:"best_home_book"`
	BestAwayBook     string     `json:"best_away_book"`
	HomeOdds         flexPrice  `json:"home_odds"`
	AwayOdds         flexPrice  `json:"away_odds"`
}

// APIArbitrageResponse is the body of GET /arbitrage.
type APIArbitrageResponse struct {
	Opportunities []APIOpportunity `json:"opportunities"`
	Count         *int             `json:"count"`
	LastUpdated   *string          `json:"last_updated"`
}

// ToDomainOpportunity converts an APIOpportunity to a domain.ArbitrageOpportunity.
func (o *APIOpportunity) ToDomainOpportunity() domain.ArbitrageOpportunity {
	do := domain.ArbitrageOpportunity{
		GameID:        o.GameID,
		HomeTeam:      o.HomeTeam,
		AwayTeam:      o.AwayTeam,
		HomeBookmaker: o.HomeBookmaker,
		AwayBookmaker: o.AwayBookmaker,
		HomeOdds:      int(o.HomeOdds),
		AwayOdds:      int(o.AwayOdds),
	}
	switch {
	case o.ProfitPercentage != nil:
		do.ProfitPercentage = float64(*o.ProfitPercentage)
	case o.ProfitMargin != nil:
		do.ProfitPercentage = float64(*o.ProfitMargin)
	}
	if do.HomeBookmaker == "" {
		do.HomeBookmaker = o.BestHomeBook
	}
	if do.AwayBookmaker == "" {
		do.AwayBookmaker = o.BestAwayBook
	}
	return do
}

// ToDomainSnapshot converts the /arbitrage body to a domain.ArbitrageSnapshot.
func (r *APIArbitrageResponse) ToDomainSnapshot() domain.ArbitrageSnapshot {
	snap := domain.ArbitrageSnapshot{
		Opportunities: make([]domain.ArbitrageOpportunity, 0, len(r.Opportunities)),
	}
	for i := range r.Opportunities {
		snap.Opportunities = append(snap.Opportunities, r.Opportunities[i].ToDomainOpportunity())
	}
	if r.LastUpdated != nil {
		snap.LastUpdated = parseTimestamp(*r.LastUpdated)
	}
	return snap
}

// naiveLayouts are accepted for timestamps without a zone; they are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts RFC 3339 or a zone-less ISO 8601 string. Anything
// else yields the zero time.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
