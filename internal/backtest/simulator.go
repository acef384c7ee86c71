// Package backtest replays a historical return series through a
// strategy payoff curve to project capital evolution and summary
// performance metrics. The simulator is a pure function of its inputs:
// it never mutates them, performs no I/O, and produces bit-for-bit
// reproducible output for identical inputs.
package backtest

import (
	"math"

	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/payoff"
)

const (
	// weeksPerMonth converts monthly cash-flow amounts and rates to
	// weekly terms.
	weeksPerMonth = 4.33

	// daysPerMonth converts an elapsed time span into months.
	daysPerMonth = 30.44
)

// Config parameterizes a simulation run. Withdrawal and investment
// amounts are monthly regardless of frequency; weekly runs divide them
// by weeksPerMonth per period.
type Config struct {
	BaseCapital       float64
	MonthlyWithdrawal float64
	MonthlyInvestment float64
	ApplyLosses       bool
	Frequency         domain.Frequency
}

// Result holds simulator output: one row per history point plus the
// aggregate metrics.
type Result struct {
	Rows    []domain.BacktestRow
	Metrics domain.BacktestMetrics
}

// Simulate folds the history through the percentage-move payoff curve.
// Two equity tracks compound in parallel: a pure-reinvestment track and
// a track that also receives the periodic withdrawal/contribution cash
// flows. Degenerate inputs (empty history, empty curve, non-positive
// capital) return an empty result, never an error.
func Simulate(history []domain.HistoryPoint, curve *domain.PayoffCurve, cfg Config) *Result {
	if len(history) == 0 || curve == nil || curve.Empty() || cfg.BaseCapital <= 0 {
		return &Result{Rows: []domain.BacktestRow{}}
	}

	perWithdrawal := cfg.MonthlyWithdrawal
	perInvestment := cfg.MonthlyInvestment
	if cfg.Frequency == domain.FrequencyWeekly {
		perWithdrawal /= weeksPerMonth
		perInvestment /= weeksPerMonth
	}

	rows := make([]domain.BacktestRow, 0, len(history))
	capWithout := cfg.BaseCapital
	capWith := cfg.BaseCapital
	clock := newLossClock()
	var wins, losses, lossEvents, periods int

	for i := range history {
		pt := &history[i]
		if pt.ReturnPct == nil {
			// No prior sample to compare against (only ever the first
			// point): emit a zero placeholder so charts have an anchor.
			rows = append(rows, domain.BacktestRow{Time: pt.Time})
			continue
		}

		assetReturn := *pt.ReturnPct
		profit := payoff.Interpolate(curve, assetReturn*100)
		strategyReturn := profit / cfg.BaseCapital

		before := capWithout
		capWithout *= 1 + strategyReturn
		capWith *= 1 + strategyReturn

		lossEvent := false
		if cfg.ApplyLosses {
			if lossPct := clock.advance(pt.Time); lossPct > 0 {
				capWithout *= 1 - lossPct
				capWith *= 1 - lossPct
				lossEvent = true
				lossEvents++
			}
		}

		// Cash flows touch only the "with" track; the other one stays
		// pure reinvestment.
		capWith = capWith - perWithdrawal + perInvestment

		// Effective return after loss injection but before cash flows;
		// this is what win/loss counters and charts consume.
		effective := 0.0
		if before != 0 {
			effective = (capWithout - before) / before
		}
		switch {
		case effective > 0:
			wins++
		case effective < 0:
			losses++
		}
		periods++

		rows = append(rows, domain.BacktestRow{
			Time:           pt.Time,
			AssetReturn:    assetReturn,
			StrategyReturn: effective,
			Profit:         profit,
			Withdrawal:     perWithdrawal,
			Investment:     perInvestment,
			Capital:        capWith,
			LossEvent:      lossEvent,
		})
	}

	metrics := domain.BacktestMetrics{
		InitialCapital:  cfg.BaseCapital,
		FinalCapital:    cfg.BaseCapital,
		FinalCapitalNet: cfg.BaseCapital,
	}
	if periods > 0 {
		base := cfg.BaseCapital
		metrics.FinalCapital = capWithout
		metrics.FinalCapitalNet = capWith
		metrics.TotalReturnPct = (capWithout - base) / base * 100
		metrics.TotalReturnNetPct = (capWith - base) / base * 100

		elapsedMonths := rows[len(rows)-1].Time.Sub(rows[0].Time).Hours() / 24 / daysPerMonth
		if elapsedMonths > 0 {
			metrics.AvgMonthlyProfit = (capWithout - base) / elapsedMonths
			metrics.AvgMonthlyProfitNet = (capWith - base) / elapsedMonths
		}

		metrics.MonthlyRate = monthlyRate(capWithout, base, periods, cfg.Frequency)
		metrics.MonthlyRateNet = monthlyRate(capWith, base, periods, cfg.Frequency)
		metrics.MonthlyIRR = monthlyIRR(cfg, capWith, periods)
		metrics.Periods = periods
		metrics.Wins = wins
		metrics.Losses = losses
		metrics.LossEvents = lossEvents
	}

	return &Result{Rows: rows, Metrics: metrics}
}

// monthlyRate converts the run's total growth into a geometric
// per-period rate, compounded up to monthly terms for weekly runs.
func monthlyRate(final, initial float64, periods int, freq domain.Frequency) float64 {
	if initial <= 0 || final <= 0 || periods == 0 {
		return 0
	}
	rate := math.Pow(final/initial, 1/float64(periods)) - 1
	if freq == domain.FrequencyWeekly {
		rate = math.Pow(1+rate, weeksPerMonth) - 1
	}
	return rate
}
