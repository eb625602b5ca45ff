package notify

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/orbstracker/internal/domain"
	"github.com/alanyoungcy/orbstracker/internal/odds"
)

// ArbitrageAlert describes a newly seen opportunity.
func ArbitrageAlert(o domain.ArbitrageOpportunity) Alert {
	var b strings.Builder
	fmt.Fprintf(&b, "%s @ %s\n", teamOr(o.AwayTeam, "Away"), teamOr(o.HomeTeam, "Home"))
	fmt.Fprintf(&b, "Away %s at %s\n", odds.FormatAmerican(o.AwayOdds), bookOr(o.AwayBookmaker))
	fmt.Fprintf(&b, "Home %s at %s\n", odds.FormatAmerican(o.HomeOdds), bookOr(o.HomeBookmaker))
	fmt.Fprintf(&b, "Profit %.2f%%", o.ProfitPercentage)

	return Alert{
		Event: EventArbDetected,
		Title: "Arbitrage detected",
		Body:  b.String(),
	}
}

// UpstreamAlert reports that an upstream endpoint could not be read.
func UpstreamAlert(endpoint string, err error) Alert {
	return Alert{
		Event: EventUpstreamFailed,
		Title: "Upstream fetch failed",
		Body:  fmt.Sprintf("%s: %v", endpoint, err),
	}
}

func teamOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func bookOr(s string) string {
	if s == "" {
		return "unknown book"
	}
	return s
}
