package odds

import (
	"fmt"
	"strconv"
)

// AmericanToDecimal converts American odds to decimal odds.
// American +150 → Decimal 2.50
// American -150 → Decimal 1.67
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("odds: invalid American price 0")
	}

	if american > 0 {
		return float64(american)/100.0 + 1.0, nil
	}

	return 100.0/float64(-american) + 1.0, nil
}

// ImpliedProbability returns the break-even probability priced into an
// American line, e.g. -110 → 0.5238.
func ImpliedProbability(american int) (float64, error) {
	dec, err := AmericanToDecimal(american)
	if err != nil {
		return 0, err
	}
	return 1.0 / dec, nil
}

// FormatAmerican renders a price with an explicit sign for positive values:
// 150 → "+150", -110 → "-110".
func FormatAmerican(american int) string {
	if american > 0 {
		return "+" + strconv.Itoa(american)
	}
	return strconv.Itoa(american)
}

// Direction classifies a price for colouring. Positive prices (underdog
// payouts) are "up"; everything else is "down".
func Direction(american int) string {
	if american > 0 {
		return "up"
	}
	return "down"
}
