package domain

import "strconv"

// Bound is a max-profit or max-loss figure that may be unbounded.
// The Unlimited tag discriminates; Amount is meaningful only when the
// tag is false.
type Bound struct {
	Unlimited bool    `json:"unlimited"`
	Amount    float64 `json:"amount"`
}

// FiniteBound returns a bounded figure.
func FiniteBound(v float64) Bound {
	return Bound{Amount: v}
}

// UnlimitedBound returns the unbounded sentinel.
func UnlimitedBound() Bound {
	return Bound{Unlimited: true}
}

// String renders the bound for display.
func (b Bound) String() string {
	if b.Unlimited {
		return "Unlimited"
	}
	return strconv.FormatFloat(b.Amount, 'f', 2, 64)
}

// StrategyStats is a derived, read-only summary of a strategy at one
// base price. It is recomputed whenever legs or price change.
type StrategyStats struct {
	MaxProfit Bound `json:"maxProfit"`
	MaxLoss   Bound `json:"maxLoss"`

	// BreakEvens holds the percentage moves at which profit crosses
	// zero, ascending and deduplicated.
	BreakEvens []float64 `json:"breakEvens"`

	// NetPremium is the signed premium total: positive for a net credit,
	// negative for a net debit.
	NetPremium float64 `json:"netPremium"`

	// CapitalAtRisk is the loss basis used for percentage metrics.
	// Nil when neither the net debit nor a finite max loss defines one.
	CapitalAtRisk *float64 `json:"capitalAtRisk"`

	MaxProfitPct *float64 `json:"maxProfitPct"`
	MaxLossPct   *float64 `json:"maxLossPct"`

	// SpotPnl is the mark-to-intrinsic profit at the current price.
	SpotPnl float64 `json:"spotPnl"`
}
