// Package stats derives summary risk statistics for a multi-leg
// strategy from its payoff curve.
package stats

import (
	"math"
	"sort"

	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/payoff"
)

const (
	// unboundedThreshold is the curve-edge profit magnitude beyond which
	// a rising edge is reported as Unlimited. The edge-slope test is a
	// heuristic over the sampled range, not a closed-form unboundedness
	// proof: a strategy whose payoff keeps climbing past the sampled
	// window but stays under the threshold is still reported finite.
	unboundedThreshold = 10000.0

	// breakEvenDecimals is the rounding precision used to deduplicate
	// break-even moves.
	breakEvenDecimals = 4
)

// Compute derives max profit/loss, break-evens, net premium, capital
// at risk, and spot P/L for a leg set at one price. The curve must be
// the absolute-price sweep built for the same legs and price. An empty
// curve yields an all-zero result, never an error.
func Compute(legs []domain.Leg, curve *domain.PayoffCurve, price float64) *domain.StrategyStats {
	s := &domain.StrategyStats{BreakEvens: []float64{}}
	if curve == nil || curve.Empty() {
		return s
	}

	s.MaxProfit, s.MaxLoss = profitBounds(curve.Returns)
	s.BreakEvens = breakEvens(curve)
	s.NetPremium = netPremium(legs)
	s.SpotPnl = payoff.StrategyProfitAt(legs, price)

	// A net debit is capital committed up front; otherwise a finite
	// max loss is the most the position can cost.
	switch {
	case s.NetPremium < 0:
		risk := math.Abs(s.NetPremium)
		s.CapitalAtRisk = &risk
	case !s.MaxLoss.Unlimited:
		risk := s.MaxLoss.Amount
		s.CapitalAtRisk = &risk
	}

	if s.CapitalAtRisk != nil && *s.CapitalAtRisk > 0 {
		if !s.MaxProfit.Unlimited {
			pct := s.MaxProfit.Amount / *s.CapitalAtRisk * 100
			s.MaxProfitPct = &pct
		}
		if !s.MaxLoss.Unlimited {
			pct := -(s.MaxLoss.Amount / *s.CapitalAtRisk * 100)
			s.MaxLossPct = &pct
		}
	}

	return s
}

// profitBounds finds the extreme profits over the sampled curve and
// applies the edge-slope unboundedness heuristic: a right edge still
// rising past the threshold means unlimited profit; a falling left
// edge (or a strongly negative falling right edge) means unlimited
// loss. Max loss is reported as a positive magnitude.
func profitBounds(returns []float64) (maxProfit, maxLoss domain.Bound) {
	n := len(returns)
	hi, lo := returns[0], returns[0]
	for _, r := range returns[1:] {
		hi = math.Max(hi, r)
		lo = math.Min(lo, r)
	}

	maxProfit = domain.FiniteBound(hi)
	maxLoss = domain.FiniteBound(math.Abs(lo))
	if n < 2 {
		return maxProfit, maxLoss
	}

	leftSlope := returns[1] - returns[0]
	rightSlope := returns[n-1] - returns[n-2]

	if rightSlope > 0 && returns[n-1] > unboundedThreshold {
		maxProfit = domain.UnlimitedBound()
	}
	fallsLeft := leftSlope > 0 && returns[0] < -unboundedThreshold
	fallsRight := rightSlope < 0 && returns[n-1] < -unboundedThreshold
	if fallsLeft || fallsRight {
		maxLoss = domain.UnlimitedBound()
	}
	return maxProfit, maxLoss
}

// breakEvens scans consecutive curve points for zero crossings and
// linearly interpolates the exact crossing move. Results are rounded,
// deduplicated, and sorted ascending; running the scan twice on the
// same curve yields the same set.
func breakEvens(curve *domain.PayoffCurve) []float64 {
	seen := make(map[float64]struct{})
	result := []float64{}
	for i := 1; i < len(curve.Returns); i++ {
		left, right := curve.Returns[i-1], curve.Returns[i]
		if left*right > 0 {
			continue
		}

		leftMove, rightMove := curve.Variations[i-1], curve.Variations[i]
		var move float64
		if left == right {
			// Both samples sit exactly on zero.
			move = leftMove
		} else {
			t := (0 - left) / (right - left)
			move = leftMove + t*(rightMove-leftMove)
		}

		move = roundTo(move, breakEvenDecimals)
		if _, ok := seen[move]; ok {
			continue
		}
		seen[move] = struct{}{}
		result = append(result, move)
	}
	sort.Float64s(result)
	return result
}

// netPremium sums signed premiums over the legs: credits (SELL) are
// positive, debits (BUY) negative.
func netPremium(legs []domain.Leg) float64 {
	total := 0.0
	for i := range legs {
		leg := &legs[i]
		amount := leg.Premium * leg.Multiplier()
		if leg.Side == domain.SideSell {
			total += amount
		} else {
			total -= amount
		}
	}
	return total
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
