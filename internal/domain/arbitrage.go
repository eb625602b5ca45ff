package domain

import "time"

// ArbitrageOpportunity is a cross-book price pair reported by the upstream as
// guaranteeing profit whichever side wins.
type ArbitrageOpportunity struct {
	GameID           string  `json:"game_id"`
	HomeTeam         string  `json:"home_team"`
	AwayTeam         string  `json:"away_team"`
	ProfitPercentage float64 `json:"profit_percentage"`
	HomeBookmaker    string  `json:"home_bookmaker"`
	AwayBookmaker    string  `json:"away_bookmaker"`
	HomeOdds         int     `json:"home_odds"`
	AwayOdds         int     `json:"away_odds"`
}

// Key identifies an opportunity across snapshots: the same game priced by the
// same pair of books.
func (o ArbitrageOpportunity) Key() string {
	return o.GameID + "|" + o.HomeBookmaker + "|" + o.AwayBookmaker
}

// ArbitrageSnapshot is a point-in-time read of the upstream /arbitrage endpoint.
type ArbitrageSnapshot struct {
	Opportunities []ArbitrageOpportunity `json:"opportunities"`
	LastUpdated   time.Time              `json:"last_updated"`
}

// EmptyArbitrageSnapshot is the value served when the upstream cannot be read.
func EmptyArbitrageSnapshot(at time.Time) ArbitrageSnapshot {
	return ArbitrageSnapshot{
		Opportunities: []ArbitrageOpportunity{},
		LastUpdated:   at,
	}
}

// HasOpportunities reports whether at least one opportunity is present.
func (s ArbitrageSnapshot) HasOpportunities() bool {
	return len(s.Opportunities) > 0
}

// ArbitrageSighting tracks how long an opportunity has been visible upstream.
type ArbitrageSighting struct {
	Opportunity ArbitrageOpportunity `json:"opportunity"`
	PeakProfit  float64              `json:"peak_profit"`
	TimesSeen   int                  `json:"times_seen"`
	FirstSeenAt time.Time            `json:"first_seen_at"`
	LastSeenAt  time.Time            `json:"last_seen_at"`
}
