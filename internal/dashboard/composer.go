// Package dashboard turns odds and arbitrage snapshots into the page model
// and renders it as HTML.
package dashboard

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/alanyoungcy/orbstracker/internal/domain"
	"github.com/alanyoungcy/orbstracker/internal/odds"
)

const (
	dateLayout    = "Mon, Jan 2"
	timeLayout    = "15:04"
	updatedLayout = "Jan 2, 15:04:05 MST"
)

// Composer builds views with date and time labels in a fixed location.
type Composer struct {
	loc *time.Location
}

// NewComposer returns a Composer that labels times in loc. A nil loc means UTC.
func NewComposer(loc *time.Location) *Composer {
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{loc: loc}
}

// Compose builds the view with UTC labels.
func Compose(oddsSnap domain.OddsSnapshot, arbSnap domain.ArbitrageSnapshot, league domain.League) View {
	return NewComposer(time.UTC).Compose(oddsSnap, arbSnap, league)
}

// Compose builds the view for the given league. The snapshots are not
// modified.
func (c *Composer) Compose(oddsSnap domain.OddsSnapshot, arbSnap domain.ArbitrageSnapshot, league domain.League) View {
	league = domain.ParseLeague(string(league))

	v := View{
		League:      league,
		Toggle:      make([]ToggleItem, 0, len(domain.Leagues)),
		Banner:      c.banner(arbSnap),
		TotalGames:  oddsSnap.TotalGames,
		LastUpdated: oddsSnap.LastUpdated,
	}
	v.LastUpdatedLabel = c.label(oddsSnap.LastUpdated, updatedLayout)

	for _, l := range domain.Leagues {
		v.Toggle = append(v.Toggle, ToggleItem{
			League: l,
			Label:  l.Label(),
			Count:  len(oddsSnap.Games(l)),
			Active: l == league,
		})
	}

	games := SortGames(oddsSnap.Games(league))
	v.Cards = make([]Card, 0, len(games))
	for _, g := range games {
		v.Cards = append(v.Cards, c.card(g))
	}
	if len(v.Cards) == 0 {
		v.EmptyMessage = fmt.Sprintf("No active games found for %s.", league.Label())
	}

	return v
}

// SortGames returns a copy of games ordered by commence time ascending.
// Games with equal start times keep their input order.
func SortGames(games []domain.Game) []domain.Game {
	out := slices.Clone(games)
	if out == nil {
		out = []domain.Game{}
	}
	slices.SortStableFunc(out, func(a, b domain.Game) int {
		return a.CommenceTime.Compare(b.CommenceTime)
	})
	return out
}

func (c *Composer) banner(arb domain.ArbitrageSnapshot) Banner {
	n := len(arb.Opportunities)
	if n == 0 {
		return Banner{
			State:         BannerScanning,
			Title:         "SCANNING FOR ARBITRAGE...",
			Opportunities: []OpportunityRow{},
		}
	}

	b := Banner{
		State:         BannerDetected,
		Title:         "Arbitrage Opportunity Detected",
		Count:         n,
		Opportunities: make([]OpportunityRow, 0, n),
	}
	if n == 1 {
		b.Subtitle = "1 profitable bet available"
	} else {
		b.Subtitle = fmt.Sprintf("%d profitable bets available", n)
	}
	for _, o := range arb.Opportunities {
		b.Opportunities = append(b.Opportunities, OpportunityRow{
			GameID:        o.GameID,
			Matchup:       matchup(o.AwayTeam, o.HomeTeam),
			Profit:        fmt.Sprintf("%.2f%%", o.ProfitPercentage),
			HomeBookmaker: o.HomeBookmaker,
			AwayBookmaker: o.AwayBookmaker,
			HomePrice:     price(o.HomeOdds),
			AwayPrice:     price(o.AwayOdds),
		})
	}
	return b
}

func (c *Composer) card(g domain.Game) Card {
	card := Card{
		GameID:       g.ID,
		HomeTeam:     g.HomeTeam,
		AwayTeam:     g.AwayTeam,
		HomeShort:    shortName(g.HomeTeam),
		AwayShort:    shortName(g.AwayTeam),
		CommenceTime: g.CommenceTime,
		DateLabel:    c.label(g.CommenceTime, dateLayout),
		TimeLabel:    c.label(g.CommenceTime, timeLayout),
		BestHome:     Price{Label: NoOffer},
		BestAway:     Price{Label: NoOffer},
		Books:        make([]BookRow, 0, len(g.Bookmakers)),
	}

	if best, ok := odds.Best(g.Bookmakers); ok {
		card.BestHome = price(best.Home)
		card.BestAway = price(best.Away)
	}

	for _, m := range odds.Mark(g.Bookmakers) {
		card.Books = append(card.Books, BookRow{
			Title:    m.Title,
			Home:     price(m.HomeOdds),
			Away:     price(m.AwayOdds),
			BestHome: m.BestHome,
			BestAway: m.BestAway,
			HomeProb: probability(m.HomeOdds),
			AwayProb: probability(m.AwayOdds),
		})
	}
	return card
}

func (c *Composer) label(t time.Time, layout string) string {
	if t.IsZero() {
		return NoOffer
	}
	return t.In(c.loc).Format(layout)
}

func price(american int) Price {
	if !odds.Offered(american) {
		return Price{Label: NoOffer}
	}
	return Price{
		Value:     american,
		Label:     odds.FormatAmerican(american),
		Direction: odds.Direction(american),
		Offered:   true,
	}
}

func probability(american int) string {
	p, err := odds.ImpliedProbability(american)
	if err != nil {
		return NoOffer
	}
	return fmt.Sprintf("%.1f%%", p*100)
}

// shortName is the last word of a team name ("Los Angeles Lakers" → "Lakers").
func shortName(team string) string {
	fields := strings.Fields(team)
	if len(fields) == 0 {
		return team
	}
	return fields[len(fields)-1]
}

func matchup(away, home string) string {
	switch {
	case away == "" && home == "":
		return ""
	case away == "":
		return home
	case home == "":
		return away
	}
	return away + " @ " + home
}
