// Package odds selects best prices across bookmakers and formats American
// moneyline odds for display.
package odds

import "github.com/alanyoungcy/orbstracker/internal/domain"

// NoPrice marks a side a book did not quote. Zero is never a valid American
// line (they start at +100 and -100), so the upstream's null decodes to it.
const NoPrice = 0

// Offered reports whether american is a real quote.
func Offered(american int) bool {
	return american != NoPrice
}

// BestPrices holds the highest home and away price found in a set of quotes.
// The two sides are chosen independently and may come from different books.
// A side nobody quoted is NoPrice.
type BestPrices struct {
	Home int
	Away int
}

// Best returns the maximum home price and the maximum away price across
// quotes, ignoring unquoted sides. ok is false when no side has a price:
// there is no offer to show.
func Best(quotes []domain.BookmakerQuote) (BestPrices, bool) {
	var best BestPrices
	for _, q := range quotes {
		if Offered(q.HomeOdds) && (!Offered(best.Home) || q.HomeOdds > best.Home) {
			best.Home = q.HomeOdds
		}
		if Offered(q.AwayOdds) && (!Offered(best.Away) || q.AwayOdds > best.Away) {
			best.Away = q.AwayOdds
		}
	}
	return best, Offered(best.Home) || Offered(best.Away)
}

// MarkedQuote is a quote annotated with whether it holds a best price.
type MarkedQuote struct {
	domain.BookmakerQuote
	BestHome bool
	BestAway bool
}

// Mark annotates quotes in input order. Every quote whose price equals the
// side's maximum is marked, so ties produce several best entries.
func Mark(quotes []domain.BookmakerQuote) []MarkedQuote {
	out := make([]MarkedQuote, 0, len(quotes))
	best, _ := Best(quotes)
	for _, q := range quotes {
		out = append(out, MarkedQuote{
			BookmakerQuote: q,
			BestHome:       Offered(q.HomeOdds) && q.HomeOdds == best.Home,
			BestAway:       Offered(q.AwayOdds) && q.AwayOdds == best.Away,
		})
	}
	return out
}

// Holders returns the titles of the books offering the best price on each
// side, in input order.
func Holders(quotes []domain.BookmakerQuote) (home, away []string) {
	for _, m := range Mark(quotes) {
		if m.BestHome {
			home = append(home, m.Title)
		}
		if m.BestAway {
			away = append(away, m.Title)
		}
	}
	return home, away
}
