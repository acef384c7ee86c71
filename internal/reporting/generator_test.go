package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/marcomartin123/op/internal/backtest"
	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/payoff"
	"github.com/marcomartin123/op/internal/stats"
	"github.com/marcomartin123/op/internal/storage/memory"
)

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func reportSnapshot() *domain.StrategySnapshot {
	return &domain.StrategySnapshot{
		SnapshotID: "snap-report",
		Symbol:     "XYZ",
		Name:       "long stock",
		Legs: []domain.Leg{
			{
				Instrument:   domain.InstrumentUnderlying,
				Side:         domain.SideBuy,
				Premium:      100.0,
				Quantity:     1,
				ContractSize: 1,
			},
		},
		BasePrice:   100.0,
		CreatedAtMs: 1000,
	}
}

func reportSamples(closes []float64) []*domain.PriceSample {
	samples := make([]*domain.PriceSample, 0, len(closes))
	for i, c := range closes {
		ts := time.Date(2024, time.Month(i+1), 15, 0, 0, 0, 0, time.UTC)
		samples = append(samples, &domain.PriceSample{
			Symbol:      "XYZ",
			TimestampMs: ts.UnixMilli(),
			Close:       c,
		})
	}
	return samples
}

func simulateSnapshot(snap *domain.StrategySnapshot) (*domain.StrategyStats, *backtest.Result) {
	curve := payoff.BuildMoveCurve(snap.Legs, snap.BasePrice)
	st := stats.Compute(snap.Legs, curve, snap.BasePrice)

	var points []domain.HistoryPoint
	returns := []float64{0.05, -0.02, 0.03}
	points = append(points, domain.HistoryPoint{
		Time: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	for i, r := range returns {
		ret := r
		points = append(points, domain.HistoryPoint{
			Time:      time.Date(2024, time.Month(i+2), 15, 0, 0, 0, 0, time.UTC),
			Close:     0,
			ReturnPct: &ret,
		})
	}

	result := backtest.Simulate(points, curve, backtest.Config{
		BaseCapital: 1000.0,
		Frequency:   domain.FrequencyMonthly,
	})
	return st, result
}

func TestGenerator_Build(t *testing.T) {
	snap := reportSnapshot()
	st, result := simulateSnapshot(snap)

	g := NewGenerator(nil, nil).WithClock(fixedClock)
	r := g.Build(snap, domain.FrequencyMonthly, st, result)

	if !r.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("expected injected clock time, got %v", r.GeneratedAt)
	}
	if r.Symbol != "XYZ" || r.StrategyName != "long stock" {
		t.Errorf("unexpected header: %s / %s", r.Symbol, r.StrategyName)
	}
	if r.Stats == nil {
		t.Fatal("expected stats")
	}
	if r.Metrics.Periods != 3 {
		t.Errorf("expected 3 periods, got %d", r.Metrics.Periods)
	}
	if len(r.Rows) != 4 {
		t.Errorf("expected 4 rows, got %d", len(r.Rows))
	}
}

func TestGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	snapStore := memory.NewSnapshotStore()
	runStore := memory.NewBacktestRunStore()

	snap := reportSnapshot()
	if err := snapStore.Insert(ctx, snap); err != nil {
		t.Fatalf("insert snapshot: %v", err)
	}

	run := &domain.BacktestRun{
		RunID:       "run-report",
		SnapshotID:  snap.SnapshotID,
		Symbol:      "XYZ",
		Frequency:   domain.FrequencyMonthly,
		BaseCapital: 1000.0,
		Metrics:     domain.BacktestMetrics{InitialCapital: 1000.0, FinalCapital: 1060.0, Periods: 3},
		CreatedAtMs: 2000,
	}
	if err := runStore.Insert(ctx, run); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	g := NewGenerator(snapStore, runStore).WithClock(fixedClock)

	r, err := g.Generate(ctx, "run-report", reportSamples([]float64{100, 105, 102.9, 106}))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if r.Symbol != "XYZ" {
		t.Errorf("unexpected symbol %q", r.Symbol)
	}
	// Stored metrics stay authoritative
	if r.Metrics.FinalCapital != 1060.0 {
		t.Errorf("expected stored final capital 1060, got %v", r.Metrics.FinalCapital)
	}
	// Rows get recomputed from the history
	if len(r.Rows) != 4 {
		t.Errorf("expected 4 recomputed rows, got %d", len(r.Rows))
	}
	// Base price re-anchors on the last resampled close
	if r.BasePrice != 106 {
		t.Errorf("expected base price 106, got %v", r.BasePrice)
	}
}

func TestGenerator_GenerateMissingRun(t *testing.T) {
	g := NewGenerator(memory.NewSnapshotStore(), memory.NewBacktestRunStore())
	if _, err := g.Generate(context.Background(), "missing", nil); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestRenderMarkdown(t *testing.T) {
	snap := reportSnapshot()
	st, result := simulateSnapshot(snap)
	r := NewGenerator(nil, nil).WithClock(fixedClock).Build(snap, domain.FrequencyMonthly, st, result)

	md := RenderMarkdown(r)

	for _, want := range []string{
		"# Backtest Report",
		"Symbol: XYZ | Strategy: long stock | Frequency: MONTHLY",
		"## Legs",
		"## Payoff Statistics",
		"## Summary",
		"## Equity Curve",
		"| Periods | 3 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_EmptyReport(t *testing.T) {
	r := &Report{GeneratedAt: fixedClock(), Symbol: "XYZ", Frequency: domain.FrequencyWeekly}

	md := RenderMarkdown(r)

	if !strings.Contains(md, "No legs.") {
		t.Error("expected no-legs marker")
	}
	if !strings.Contains(md, "No payoff statistics available.") {
		t.Error("expected no-stats marker")
	}
	if !strings.Contains(md, "No simulated periods.") {
		t.Error("expected no-rows marker")
	}
}

func TestRenderCSV(t *testing.T) {
	snap := reportSnapshot()
	_, result := simulateSnapshot(snap)

	csv := RenderCSV(result.Rows)

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header + 4 rows, got %d lines", len(lines))
	}
	if lines[0] != "date,asset_return,strategy_return,profit,withdrawal,investment,capital,loss_event" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2024-01-15,0.000000") {
		t.Errorf("unexpected placeholder row: %s", lines[1])
	}
}
