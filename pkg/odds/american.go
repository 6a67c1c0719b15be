package odds

import (
	"fmt"
	"math"
)

// AmericanToImplied converts American odds to the implied win probability.
// +150 -> 0.40, -150 -> 0.60.
func AmericanToImplied(price int) (float64, error) {
	if price == 0 {
		return 0, fmt.Errorf("invalid american price: cannot be 0")
	}
	if price > 0 {
		return 100.0 / (float64(price) + 100.0), nil
	}
	p := float64(-price)
	return p / (p + 100.0), nil
}

// AmericanToDecimal converts American odds to decimal odds.
func AmericanToDecimal(price int) (float64, error) {
	if price == 0 {
		return 0, fmt.Errorf("invalid american price: cannot be 0")
	}
	if price > 0 {
		return (float64(price) / 100.0) + 1.0, nil
	}
	return (100.0 / float64(-price)) + 1.0, nil
}

// ImpliedToAmerican converts a probability back to the nearest American price.
func ImpliedToAmerican(prob float64) (int, error) {
	if prob <= 0 || prob >= 1 {
		return 0, fmt.Errorf("invalid probability: must be between 0 and 1")
	}
	decimal := 1.0 / prob
	if decimal >= 2.0 {
		return int(math.Round((decimal - 1.0) * 100.0)), nil
	}
	return int(math.Round(-100.0 / (decimal - 1.0))), nil
}

// ArbROIBps returns the arbitrage return in basis points for a complementary
// side pair, or 0 if the pair does not arb (implied sum >= 1).
func ArbROIBps(impliedA, impliedB float64) float64 {
	sum := impliedA + impliedB
	if sum <= 0 || sum >= 1.0 {
		return 0
	}
	return (1.0/sum - 1.0) * 10000.0
}

// EvBps returns the expected-value edge in basis points of a book price
// against a fair probability. Positive means the book underprices the outcome.
func EvBps(fairProb, bookImplied float64) float64 {
	if bookImplied <= 0 {
		return 0
	}
	return (fairProb/bookImplied - 1.0) * 10000.0
}

// IsFinitePrice reports whether a raw feed price is usable.
func IsFinitePrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
