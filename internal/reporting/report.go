package reporting

import (
	"time"

	"github.com/marcomartin123/op/internal/domain"
)

// Report is a rendered view of one backtest: the strategy it ran, the
// payoff statistics at the base price, and the simulated equity curve.
type Report struct {
	// Metadata
	GeneratedAt time.Time

	// Strategy header
	Symbol       string
	StrategyName string
	Legs         []domain.Leg
	BasePrice    float64
	Frequency    domain.Frequency

	// Payoff statistics at the base price
	Stats *domain.StrategyStats

	// Simulation output
	Metrics domain.BacktestMetrics
	Rows    []domain.BacktestRow
}
