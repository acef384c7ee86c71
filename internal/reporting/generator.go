package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/marcomartin123/op/internal/backtest"
	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/history"
	"github.com/marcomartin123/op/internal/payoff"
	"github.com/marcomartin123/op/internal/stats"
	"github.com/marcomartin123/op/internal/storage"
)

// Generator produces backtest reports.
type Generator struct {
	snapshotStore storage.SnapshotStore
	runStore      storage.BacktestRunStore
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. Stores may be nil when
// only Build is used.
func NewGenerator(snapshotStore storage.SnapshotStore, runStore storage.BacktestRunStore) *Generator {
	return &Generator{
		snapshotStore: snapshotStore,
		runStore:      runStore,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Build assembles a report from an in-memory simulation result.
func (g *Generator) Build(snap *domain.StrategySnapshot, freq domain.Frequency, st *domain.StrategyStats, result *backtest.Result) *Report {
	r := &Report{
		GeneratedAt:  g.now(),
		Frequency:    freq,
		Stats:        st,
		BasePrice:    snap.BasePrice,
		Symbol:       snap.Symbol,
		StrategyName: snap.Name,
		Legs:         snap.Legs,
	}
	if result != nil {
		r.Metrics = result.Metrics
		r.Rows = result.Rows
	}
	return r
}

// Generate rebuilds the report for a persisted run by replaying its
// snapshot's legs through the given history. The stored metrics are
// kept as the authoritative summary; stats and rows are recomputed.
func (g *Generator) Generate(ctx context.Context, runID string, samples []*domain.PriceSample) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	snap, err := g.snapshotStore.GetByID(ctx, run.SnapshotID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", run.SnapshotID, err)
	}

	history.SortSamples(samples)
	resampled := history.Resample(samples, run.Frequency)
	points := history.Points(resampled)

	basePrice := snap.BasePrice
	if len(resampled) > 0 {
		basePrice = resampled[len(resampled)-1].Close
	}

	// Stats come from the absolute-price sweep; the simulation
	// interpolates over percentage moves.
	moveCurve := payoff.BuildMoveCurve(snap.Legs, basePrice)
	result := backtest.Simulate(points, moveCurve, backtest.Config{
		BaseCapital:       run.BaseCapital,
		MonthlyWithdrawal: run.MonthlyWithdrawal,
		MonthlyInvestment: run.MonthlyInvestment,
		ApplyLosses:       run.ApplyLosses,
		Frequency:         run.Frequency,
	})

	priceCurve := payoff.BuildPriceCurve(snap.Legs, basePrice)
	r := g.Build(snap, run.Frequency, stats.Compute(snap.Legs, priceCurve, basePrice), result)
	r.BasePrice = basePrice
	r.Symbol = run.Symbol
	r.Metrics = run.Metrics
	return r, nil
}
