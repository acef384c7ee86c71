// Package scanner evaluates a strategy snapshot against the stored
// history of many symbols concurrently.
// Flow per symbol: load series → resample → payoff curve → stats → backtest
package scanner

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/marcomartin123/op/internal/backtest"
	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/history"
	"github.com/marcomartin123/op/internal/idhash"
	"github.com/marcomartin123/op/internal/observability"
	"github.com/marcomartin123/op/internal/payoff"
	"github.com/marcomartin123/op/internal/stats"
	"github.com/marcomartin123/op/internal/storage"
)

// defaultWorkers bounds scan concurrency when Options leaves it unset.
const defaultWorkers = 4

// Scanner runs snapshot evaluations across symbols.
type Scanner struct {
	priceSeriesStore storage.PriceSeriesStore
	runStore         storage.BacktestRunStore

	workers int
	verbose bool
}

// Options contains configuration for creating a Scanner.
type Options struct {
	// Required store
	PriceSeriesStore storage.PriceSeriesStore

	// Optional; when set, Run persists one BacktestRun per symbol.
	RunStore storage.BacktestRunStore

	// Workers bounds concurrent symbol evaluations. Defaults to 4.
	Workers int

	Verbose bool
}

// New creates a new Scanner.
func New(opts Options) *Scanner {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Scanner{
		priceSeriesStore: opts.PriceSeriesStore,
		runStore:         opts.RunStore,
		workers:          workers,
		verbose:          opts.Verbose,
	}
}

// Request describes one scan: the snapshot's legs applied to each
// symbol's resampled history under a single backtest configuration.
type Request struct {
	Snapshot *domain.StrategySnapshot
	Symbols  []string
	Config   backtest.Config
	Persist  bool
}

// SymbolResult is the evaluation of one symbol.
type SymbolResult struct {
	Symbol  string
	Samples int

	// BasePrice is the last resampled close, the price the payoff
	// curve and stats are anchored on.
	BasePrice float64

	Stats   *domain.StrategyStats
	Metrics domain.BacktestMetrics

	// RunID is set when the run was persisted.
	RunID string

	Err error
}

// ScanResult aggregates a whole scan.
type ScanResult struct {
	Results []SymbolResult
	Errors  int
}

// Run evaluates every symbol through a bounded worker pool. Results
// come back in the request's symbol order. Per-symbol failures land in
// SymbolResult.Err; only invalid requests return an error.
func (s *Scanner) Run(ctx context.Context, req Request) (*ScanResult, error) {
	if req.Snapshot == nil || len(req.Snapshot.Legs) == 0 {
		return nil, fmt.Errorf("scan request needs a snapshot with legs")
	}
	if len(req.Symbols) == 0 {
		return nil, fmt.Errorf("scan request needs at least one symbol")
	}

	observability.RecordScanStarted()
	started := time.Now()

	s.log("scanning %d symbols with %d workers", len(req.Symbols), s.workers)

	type job struct {
		index  int
		symbol string
	}

	jobs := make(chan job)
	results := make([]SymbolResult, len(req.Symbols))

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = s.scanSymbol(ctx, req, j.symbol)
				observability.RecordSymbolScanned()
			}
		}()
	}

	for i, symbol := range req.Symbols {
		select {
		case jobs <- job{index: i, symbol: symbol}:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			observability.RecordScanCompleted("canceled", time.Since(started).Seconds())
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	scan := &ScanResult{Results: results}
	for i := range results {
		if results[i].Err != nil {
			scan.Errors++
		}
	}

	status := "ok"
	if scan.Errors > 0 {
		status = "partial"
	}
	observability.RecordScanCompleted(status, time.Since(started).Seconds())

	s.log("scan finished: %d symbols, %d errors", len(results), scan.Errors)

	return scan, nil
}

// scanSymbol evaluates one symbol.
func (s *Scanner) scanSymbol(ctx context.Context, req Request, symbol string) SymbolResult {
	res := SymbolResult{Symbol: symbol}

	samples, err := s.priceSeriesStore.GetBySymbol(ctx, symbol)
	if err != nil {
		res.Err = fmt.Errorf("load series for %s: %w", symbol, err)
		return res
	}
	if len(samples) == 0 {
		res.Err = fmt.Errorf("no history for %s", symbol)
		return res
	}

	history.SortSamples(samples)
	resampled := history.Resample(samples, req.Config.Frequency)
	points := history.Points(resampled)
	res.Samples = len(resampled)

	basePrice := resampled[len(resampled)-1].Close
	res.BasePrice = basePrice

	// Stats sweep absolute prices so far-from-spot strikes stay in
	// range; the simulation interpolates over percentage moves.
	priceCurve := payoff.BuildPriceCurve(req.Snapshot.Legs, basePrice)
	res.Stats = stats.Compute(req.Snapshot.Legs, priceCurve, basePrice)
	moveCurve := payoff.BuildMoveCurve(req.Snapshot.Legs, basePrice)

	simStart := time.Now()
	sim := backtest.Simulate(points, moveCurve, req.Config)
	observability.RecordBacktest(string(req.Config.Frequency), time.Since(simStart).Seconds())
	res.Metrics = sim.Metrics

	if req.Persist && s.runStore != nil {
		run := &domain.BacktestRun{
			SnapshotID:        req.Snapshot.SnapshotID,
			Symbol:            symbol,
			Frequency:         req.Config.Frequency,
			BaseCapital:       req.Config.BaseCapital,
			MonthlyWithdrawal: req.Config.MonthlyWithdrawal,
			MonthlyInvestment: req.Config.MonthlyInvestment,
			ApplyLosses:       req.Config.ApplyLosses,
			Metrics:           sim.Metrics,
			CreatedAtMs:       time.Now().UnixMilli(),
		}
		run.RunID = idhash.ComputeRunID(
			run.SnapshotID, run.Symbol, run.Frequency,
			run.BaseCapital, run.MonthlyWithdrawal, run.MonthlyInvestment,
			run.ApplyLosses, run.CreatedAtMs,
		)
		if err := s.runStore.Insert(ctx, run); err != nil {
			res.Err = fmt.Errorf("persist run for %s: %w", symbol, err)
			return res
		}
		observability.RecordRunPersisted()
		res.RunID = run.RunID
	}

	return res
}

// RankByIRR returns result indices ordered by monthly IRR, best first.
// Failed symbols sort last.
func RankByIRR(results []SymbolResult) []int {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := results[order[a]], results[order[b]]
		if (ra.Err == nil) != (rb.Err == nil) {
			return ra.Err == nil
		}
		return ra.Metrics.MonthlyIRR > rb.Metrics.MonthlyIRR
	})
	return order
}

func (s *Scanner) log(format string, args ...interface{}) {
	if s.verbose {
		log.Printf("[scanner] "+format, args...)
	}
}
