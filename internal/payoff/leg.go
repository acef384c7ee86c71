// Package payoff prices option/underlying strategy legs and builds
// payoff curves. All functions are pure: they never mutate their
// inputs and perform no I/O.
package payoff

import (
	"math"

	"github.com/marcomartin123/op/internal/domain"
)

// LegProfitAt prices a single leg at a hypothetical underlying price.
// Options are valued at expiry intrinsic only, with no time value:
// max(0, price − strike) for calls, max(0, strike − price) for puts,
// minus the premium paid (negated for SELL). Underlying legs earn the
// move from their entry price. Option legs missing a type or strike
// contribute zero; a strategy builder may transiently hold such legs
// and they must not poison the total.
func LegProfitAt(leg *domain.Leg, price float64) float64 {
	if leg.Instrument == domain.InstrumentUnderlying {
		move := price - leg.Premium
		if leg.Side == domain.SideSell {
			move = -move
		}
		return move * leg.Multiplier()
	}

	if !leg.Configured() {
		return 0
	}

	var intrinsic float64
	switch leg.OptionType {
	case domain.OptionCall:
		intrinsic = math.Max(0, price-leg.Strike)
	case domain.OptionPut:
		intrinsic = math.Max(0, leg.Strike-price)
	}

	perUnit := intrinsic - leg.Premium
	if leg.Side == domain.SideSell {
		perUnit = -perUnit
	}
	return perUnit * leg.Multiplier()
}

// StrategyProfitAt sums LegProfitAt over every leg at one price.
func StrategyProfitAt(legs []domain.Leg, price float64) float64 {
	total := 0.0
	for i := range legs {
		total += LegProfitAt(&legs[i], price)
	}
	return total
}
