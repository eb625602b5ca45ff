package dashboard

import (
	"time"

	"github.com/alanyoungcy/orbstracker/internal/domain"
)

// Banner states.
const (
	BannerDetected = "detected"
	BannerScanning = "scanning"
)

// NoOffer is shown in place of a price when no bookmaker quotes a side.
const NoOffer = "—"

// View is everything the dashboard page shows for one request.
type View struct {
	League       domain.League `json:"league"`
	Toggle       []ToggleItem  `json:"toggle"`
	Banner       Banner        `json:"banner"`
	Cards        []Card        `json:"cards"`
	EmptyMessage string        `json:"empty_message,omitempty"`
	TotalGames   int           `json:"total_games"`
	LastUpdated  time.Time     `json:"last_updated"`
	// LastUpdatedLabel is NoOffer when the upstream sent no timestamp.
	LastUpdatedLabel string `json:"last_updated_label"`
}

// ToggleItem is one league button.
type ToggleItem struct {
	League domain.League `json:"league"`
	Label  string        `json:"label"`
	Count  int           `json:"count"`
	Active bool          `json:"active"`
}

// Banner summarises the arbitrage snapshot.
type Banner struct {
	State         string           `json:"state"`
	Title         string           `json:"title"`
	Subtitle      string           `json:"subtitle,omitempty"`
	Count         int              `json:"count"`
	Opportunities []OpportunityRow `json:"opportunities"`
}

// Detected reports whether the banner is in the detected state.
func (b Banner) Detected() bool {
	return b.State == BannerDetected
}

// OpportunityRow is one arbitrage line inside the banner.
type OpportunityRow struct {
	GameID        string `json:"game_id"`
	Matchup       string `json:"matchup"`
	Profit        string `json:"profit"`
	HomeBookmaker string `json:"home_bookmaker"`
	AwayBookmaker string `json:"away_bookmaker"`
	HomePrice     Price  `json:"home_price"`
	AwayPrice     Price  `json:"away_price"`
}

// Price is a formatted American price.
type Price struct {
	Value     int    `json:"value"`
	Label     string `json:"label"`
	Direction string `json:"direction"`
	// Offered is false when no bookmaker quoted this side.
	Offered bool `json:"offered"`
}

// Card is a single game.
type Card struct {
	GameID       string    `json:"game_id"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	HomeShort    string    `json:"home_short"`
	AwayShort    string    `json:"away_short"`
	CommenceTime time.Time `json:"commence_time"`
	DateLabel    string    `json:"date_label"`
	TimeLabel    string    `json:"time_label"`
	BestHome     Price     `json:"best_home"`
	BestAway     Price     `json:"best_away"`
	Books        []BookRow `json:"books"`
}

// BookRow is one bookmaker in a card's detail table.
type BookRow struct {
	Title    string `json:"title"`
	Home     Price  `json:"home"`
	Away     Price  `json:"away"`
	BestHome bool   `json:"best_home"`
	BestAway bool   `json:"best_away"`
	HomeProb string `json:"home_prob"`
	AwayProb string `json:"away_prob"`
}
