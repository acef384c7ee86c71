package domain

import "time"

// Frequency is the sampling interval of a backtest history.
type Frequency string

// Frequency constants.
const (
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// BacktestRow is one simulated period. Rows are produced append-only,
// one per history point, in the chronological order of the input.
type BacktestRow struct {
	Time time.Time `json:"time"`

	// AssetReturn is the underlying's period return as a fraction.
	AssetReturn float64 `json:"assetReturn"`

	// StrategyReturn is the effective strategy return for the period,
	// after synthetic loss injection but before cash flows, as a
	// fraction. It feeds the win/loss counters.
	StrategyReturn float64 `json:"strategyReturn"`

	// Profit is the currency profit mapped through the payoff curve,
	// relative to the base capital.
	Profit float64 `json:"profit"`

	Withdrawal float64 `json:"withdrawal"`
	Investment float64 `json:"investment"`

	// Capital is the withdrawal-adjusted equity after this period.
	Capital float64 `json:"capital"`

	// LossEvent marks a period on which the synthetic loss schedule
	// fired.
	LossEvent bool `json:"lossEvent"`
}

// BacktestMetrics aggregates a whole simulation run. The plain fields
// track the pure-reinvestment equity curve; the Net fields track the
// curve with withdrawals and contributions applied.
type BacktestMetrics struct {
	InitialCapital  float64 `json:"initialCapital"`
	FinalCapital    float64 `json:"finalCapital"`
	FinalCapitalNet float64 `json:"finalCapitalNet"`

	TotalReturnPct    float64 `json:"totalReturnPct"`
	TotalReturnNetPct float64 `json:"totalReturnNetPct"`

	AvgMonthlyProfit    float64 `json:"avgMonthlyProfit"`
	AvgMonthlyProfitNet float64 `json:"avgMonthlyProfitNet"`

	// MonthlyRate is the geometric per-period rate compounded up to
	// monthly terms.
	MonthlyRate    float64 `json:"monthlyRate"`
	MonthlyRateNet float64 `json:"monthlyRateNet"`

	// MonthlyIRR is the internal rate of return of the cash-flow
	// series, in monthly terms. Zero when no root exists.
	MonthlyIRR float64 `json:"monthlyIRR"`

	Periods    int `json:"periods"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
	LossEvents int `json:"lossEvents"`
}

// BacktestRun is a persisted backtest summary: the configuration it ran
// with plus the resulting metrics.
type BacktestRun struct {
	RunID      string
	SnapshotID string
	Symbol     string
	Frequency  Frequency

	BaseCapital       float64
	MonthlyWithdrawal float64
	MonthlyInvestment float64
	ApplyLosses       bool

	Metrics BacktestMetrics

	CreatedAtMs int64 // unix milliseconds
}
