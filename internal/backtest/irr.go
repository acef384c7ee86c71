package backtest

import (
	"math"

	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/numeric"
)

// irrInitialGuess seeds the Newton iteration with a small positive rate.
const irrInitialGuess = 0.01

// monthlyIRR solves the internal rate of return of the run's cash-flow
// series and converts the periodic rate to monthly terms. The series is
// [-initial, flow, ..., flow + finalNet] where flow is the net monthly
// withdrawal; weekly runs inject the flow only on periods that complete
// a month boundary and carry zero elsewhere. An unsolvable series (no
// sign change within the rate bounds) reports zero, never an error.
func monthlyIRR(cfg Config, finalNet float64, periods int) float64 {
	if periods == 0 {
		return 0
	}

	flow := cfg.MonthlyWithdrawal - cfg.MonthlyInvestment
	flows := make([]float64, periods+1)
	flows[0] = -cfg.BaseCapital
	for i := 1; i <= periods; i++ {
		if cfg.Frequency == domain.FrequencyWeekly {
			if completesMonth(i) {
				flows[i] = flow
			}
		} else {
			flows[i] = flow
		}
	}
	flows[periods] += finalNet

	rate, ok := numeric.FindRoot(func(r float64) float64 {
		return netPresentValue(flows, r)
	}, irrInitialGuess)
	if !ok {
		return 0
	}

	if cfg.Frequency == domain.FrequencyWeekly {
		rate = math.Pow(1+rate, weeksPerMonth) - 1
	}
	return rate
}

// completesMonth reports whether weekly period i crosses a whole-month
// boundary at the weeksPerMonth conversion rate.
func completesMonth(i int) bool {
	return int(float64(i)/weeksPerMonth) > int(float64(i-1)/weeksPerMonth)
}

// netPresentValue discounts the cash-flow vector at the given periodic
// rate. Flow index doubles as the discount exponent.
func netPresentValue(flows []float64, rate float64) float64 {
	v := 0.0
	for i, f := range flows {
		v += f / math.Pow(1+rate, float64(i))
	}
	return v
}
