package domain

import (
	"strings"
	"time"
)

// League identifies one of the sports the dashboard tracks.
type League string

const (
	LeagueNBA League = "nba"
	LeagueNFL League = "nfl"
)

// Leagues lists every tracked league in display order.
var Leagues = []League{LeagueNBA, LeagueNFL}

// ParseLeague maps a user-supplied value onto a known league. Anything it does
// not recognise falls back to NBA, the dashboard's initial selection.
func ParseLeague(s string) League {
	switch League(strings.ToLower(strings.TrimSpace(s))) {
	case LeagueNFL:
		return LeagueNFL
	default:
		return LeagueNBA
	}
}

// Label returns the upper-case display name ("NBA", "NFL").
func (l League) Label() string {
	return strings.ToUpper(string(l))
}

// BookmakerQuote is one bookmaker's moneyline for a game. Prices are American
// odds: positive for the underdog payout on a 100 stake, negative for the
// stake needed to win 100 on the favourite.
type BookmakerQuote struct {
	Key        string    `json:"key,omitempty"`
	Title      string    `json:"title"`
	HomeOdds   int       `json:"home_odds"`
	AwayOdds   int       `json:"away_odds"`
	LastUpdate time.Time `json:"last_update,omitzero"`
}

// Game is a scheduled event with the quotes collected for it.
type Game struct {
	ID           string           `json:"game_id"`
	HomeTeam     string           `json:"home_team"`
	AwayTeam     string           `json:"away_team"`
	CommenceTime time.Time        `json:"commence_time"`
	Bookmakers   []BookmakerQuote `json:"bookmakers"`
}

// OddsSnapshot is a point-in-time read of the upstream /odds endpoint.
type OddsSnapshot struct {
	NBA         []Game    `json:"nba"`
	NFL         []Game    `json:"nfl"`
	TotalGames  int       `json:"total_games"`
	LastUpdated time.Time `json:"last_updated"`
}

// EmptyOddsSnapshot is the value served when the upstream cannot be read.
// Both league collections are present and empty.
func EmptyOddsSnapshot(at time.Time) OddsSnapshot {
	return OddsSnapshot{
		NBA:         []Game{},
		NFL:         []Game{},
		TotalGames:  0,
		LastUpdated: at,
	}
}

// Games returns the collection for the given league.
func (s OddsSnapshot) Games(l League) []Game {
	if l == LeagueNFL {
		return s.NFL
	}
	return s.NBA
}

// IsEmpty reports whether neither league has any games.
func (s OddsSnapshot) IsEmpty() bool {
	return len(s.NBA) == 0 && len(s.NFL) == 0
}
