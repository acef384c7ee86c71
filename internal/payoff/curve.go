package payoff

import (
	"math"
	"sort"

	"github.com/marcomartin123/op/internal/domain"
)

const (
	// curveIntervals is the fixed sampling resolution; every curve
	// carries curveIntervals+1 points.
	curveIntervals = 320

	// moveWindowPct bounds the percentage-move sweep at ±40%.
	moveWindowPct = 40.0

	// profitDecimals is the rounding applied to sampled profits to keep
	// floating accumulation noise out of the curve.
	profitDecimals = 2
)

// BuildPriceCurve sweeps absolute prices across the strategy's own
// territory: the union of the current price, all option strikes, and
// all underlying entry prices, expanded by a symmetric buffer on each
// side. The buffer is half the observed strike range, or 20% of the
// largest strike when the range collapses, or 1 when there are no
// usable strikes at all. Used for display payoffs.
func BuildPriceCurve(legs []domain.Leg, basePrice float64) *domain.PayoffCurve {
	curve := &domain.PayoffCurve{BasePrice: basePrice}
	if len(legs) == 0 || !validPrice(basePrice) {
		return curve
	}

	lo, hi := basePrice, basePrice
	var strikeMin, strikeMax float64
	haveStrike := false
	for i := range legs {
		leg := &legs[i]
		var ref float64
		switch {
		case leg.Instrument == domain.InstrumentUnderlying:
			ref = leg.Premium
		case leg.Configured():
			ref = leg.Strike
		default:
			continue
		}
		lo = math.Min(lo, ref)
		hi = math.Max(hi, ref)
		if !haveStrike {
			strikeMin, strikeMax = ref, ref
			haveStrike = true
		} else {
			strikeMin = math.Min(strikeMin, ref)
			strikeMax = math.Max(strikeMax, ref)
		}
	}

	buffer := 1.0
	if haveStrike {
		switch {
		case strikeMax > strikeMin:
			buffer = (strikeMax - strikeMin) / 2
		case strikeMax > 0:
			buffer = strikeMax * 0.2
		}
	}

	lo -= buffer
	hi += buffer
	step := (hi - lo) / curveIntervals
	for i := 0; i <= curveIntervals; i++ {
		price := lo + float64(i)*step
		curve.Variations = append(curve.Variations, (price/basePrice-1)*100)
		curve.Returns = append(curve.Returns, roundTo(StrategyProfitAt(legs, price), profitDecimals))
	}
	return curve
}

// BuildMoveCurve sweeps a fixed ±40% window around the base price in
// equal percentage steps, independent of strikes. This variant is the
// interpolation table for backtests, where historical percentage
// returns map directly onto the variation axis.
func BuildMoveCurve(legs []domain.Leg, basePrice float64) *domain.PayoffCurve {
	curve := &domain.PayoffCurve{BasePrice: basePrice}
	if len(legs) == 0 || !validPrice(basePrice) {
		return curve
	}

	step := 2 * moveWindowPct / curveIntervals
	for i := 0; i <= curveIntervals; i++ {
		move := -moveWindowPct + float64(i)*step
		price := basePrice * (1 + move/100)
		curve.Variations = append(curve.Variations, move)
		curve.Returns = append(curve.Returns, roundTo(StrategyProfitAt(legs, price), profitDecimals))
	}
	return curve
}

// Interpolate returns the curve profit at an arbitrary percentage
// move, linearly interpolated between the bracketing samples. Queries
// outside the sampled domain clamp to the boundary value rather than
// extrapolating. An empty curve yields zero.
func Interpolate(curve *domain.PayoffCurve, movePct float64) float64 {
	n := len(curve.Variations)
	if n == 0 {
		return 0
	}
	if movePct <= curve.Variations[0] {
		return curve.Returns[0]
	}
	if movePct >= curve.Variations[n-1] {
		return curve.Returns[n-1]
	}

	// Index of the first variation >= movePct; the bracket is [i-1, i].
	i := sort.SearchFloat64s(curve.Variations, movePct)
	if curve.Variations[i] == movePct {
		return curve.Returns[i]
	}
	left, right := curve.Variations[i-1], curve.Variations[i]
	t := (movePct - left) / (right - left)
	return curve.Returns[i-1] + t*(curve.Returns[i]-curve.Returns[i-1])
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func validPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}
