/*
conversion.go - Purchase-amount to points conversion

Points earned per purchase are floor(spend / rate): a customer does not
get a point for the cents short of the next whole unit. Decimal arithmetic
avoids the float drift a money field would otherwise accumulate.
*/
package loyalty

import "github.com/shopspring/decimal"

// EarnRate converts purchase spend into points. CurrencyPerPoint is how
// much spend buys one point.
type EarnRate struct {
	CurrencyPerPoint decimal.Decimal
}

// DefaultEarnRate is one point per currency unit.
var DefaultEarnRate = EarnRate{CurrencyPerPoint: decimal.NewFromInt(1)}

// NewEarnRate parses a rate from its string form (e.g. "0.50" for two
// points per unit). Non-positive or unparsable rates fall back to the
// default.
func NewEarnRate(s string) EarnRate {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return DefaultEarnRate
	}
	return EarnRate{CurrencyPerPoint: d}
}

// PointsFor returns the whole points earned for the given spend. Negative
// or sub-point spends earn zero.
func (r EarnRate) PointsFor(spend decimal.Decimal) int64 {
	if !spend.IsPositive() {
		return 0
	}
	points := spend.Div(r.CurrencyPerPoint).Floor().IntPart()
	if points < 0 {
		return 0
	}
	return points
}
