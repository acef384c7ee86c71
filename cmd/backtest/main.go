// Package main backtests one strategy against a price history.
// Legs come from a JSON file; history comes from a CSV file or ClickHouse.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/marcomartin123/op/internal/backtest"
	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/history"
	"github.com/marcomartin123/op/internal/idhash"
	"github.com/marcomartin123/op/internal/payoff"
	"github.com/marcomartin123/op/internal/reporting"
	"github.com/marcomartin123/op/internal/stats"
	"github.com/marcomartin123/op/internal/storage"
	chstore "github.com/marcomartin123/op/internal/storage/clickhouse"
	"github.com/marcomartin123/op/internal/storage/memory"
	"github.com/marcomartin123/op/internal/storage/migrations"
	pgstore "github.com/marcomartin123/op/internal/storage/postgres"
)

func main() {
	// Parse flags
	symbol := flag.String("symbol", "", "Underlying symbol (required)")
	name := flag.String("name", "strategy", "Strategy name")
	legsPath := flag.String("legs", "", "Path to legs JSON file (required)")
	historyPath := flag.String("history", "", "Path to history CSV file (date,close); uses ClickHouse when empty")
	frequency := flag.String("frequency", "MONTHLY", "Resample frequency: WEEKLY or MONTHLY")

	// Simulation parameters
	capital := flag.Float64("capital", 10000, "Base capital")
	withdrawal := flag.Float64("withdrawal", 0, "Monthly withdrawal amount")
	investment := flag.Float64("investment", 0, "Monthly contribution amount")
	applyLosses := flag.Bool("apply-losses", false, "Inject the synthetic periodic loss schedule")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	// Output
	format := flag.String("format", "markdown", "Output format: markdown, json, or csv")
	persistRun := flag.Bool("persist", false, "Persist snapshot and run to storage")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	// Validate required flags
	if *symbol == "" {
		logger.Fatal("--symbol is required")
	}
	if *legsPath == "" {
		logger.Fatal("--legs is required")
	}

	freq := domain.Frequency(strings.ToUpper(*frequency))
	if freq != domain.FrequencyWeekly && freq != domain.FrequencyMonthly {
		logger.Fatalf("Invalid frequency: %s. Must be WEEKLY or MONTHLY", *frequency)
	}

	switch *format {
	case "markdown", "json", "csv":
	default:
		logger.Fatalf("Invalid format: %s. Must be markdown, json, or csv", *format)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Load legs
	legs, err := loadLegs(*legsPath)
	if err != nil {
		logger.Fatalf("load legs: %v", err)
	}
	if len(legs) == 0 {
		logger.Fatal("legs file contains no legs")
	}

	// Create stores
	var snapshotStore storage.SnapshotStore = memory.NewSnapshotStore()
	var runStore storage.BacktestRunStore = memory.NewBacktestRunStore()
	var priceStore storage.PriceSeriesStore = memory.NewPriceSeriesStore()

	if !*useMemory {
		if *persistRun {
			if *postgresDSN == "" {
				logger.Fatal("--postgres-dsn is required with --persist (use --use-memory for in-memory storage)")
			}
			pool, err := pgstore.NewPool(ctx, *postgresDSN)
			if err != nil {
				logger.Fatalf("connect to postgres: %v", err)
			}
			defer pool.Close()

			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				logger.Fatalf("run postgres migrations: %v", err)
			}

			snapshotStore = pgstore.NewSnapshotStore(pool)
			runStore = pgstore.NewBacktestRunStore(pool)
		}
		if *historyPath == "" {
			if *clickhouseDSN == "" {
				logger.Fatal("--clickhouse-dsn is required when --history is not set")
			}
			conn, err := chstore.NewConn(ctx, *clickhouseDSN)
			if err != nil {
				logger.Fatalf("connect to clickhouse: %v", err)
			}
			defer conn.Close()

			priceStore = chstore.NewPriceSeriesStore(conn)
		}
	}

	// Load history
	var samples []*domain.PriceSample
	if *historyPath != "" {
		samples, err = loadHistoryCSV(*historyPath, *symbol)
		if err != nil {
			logger.Fatalf("load history: %v", err)
		}
	} else {
		samples, err = priceStore.GetBySymbol(ctx, *symbol)
		if err != nil {
			logger.Fatalf("load history for %s: %v", *symbol, err)
		}
	}
	if len(samples) == 0 {
		logger.Fatalf("no history for %s", *symbol)
	}

	// Resample and derive returns
	history.SortSamples(samples)
	resampled := history.Resample(samples, freq)
	points := history.Points(resampled)
	basePrice := resampled[len(resampled)-1].Close

	logger.Printf("Running backtest: symbol=%s legs=%d periods=%d frequency=%s",
		*symbol, len(legs), len(resampled), freq)

	// Evaluate. Stats need the absolute-price sweep so strikes far
	// from spot stay in range; the simulation interpolates over
	// percentage moves.
	priceCurve := payoff.BuildPriceCurve(legs, basePrice)
	st := stats.Compute(legs, priceCurve, basePrice)
	moveCurve := payoff.BuildMoveCurve(legs, basePrice)

	cfg := backtest.Config{
		BaseCapital:       *capital,
		MonthlyWithdrawal: *withdrawal,
		MonthlyInvestment: *investment,
		ApplyLosses:       *applyLosses,
		Frequency:         freq,
	}
	result := backtest.Simulate(points, moveCurve, cfg)

	snap := &domain.StrategySnapshot{
		Symbol:      *symbol,
		Name:        *name,
		Legs:        legs,
		BasePrice:   basePrice,
		CreatedAtMs: time.Now().UnixMilli(),
	}
	snap.SnapshotID = idhash.ComputeSnapshotID(snap.Symbol, snap.Name, snap.Legs, snap.BasePrice, snap.CreatedAtMs)

	// Persist snapshot and run
	if *persistRun {
		if err := snapshotStore.Insert(ctx, snap); err != nil {
			logger.Fatalf("persist snapshot: %v", err)
		}

		run := &domain.BacktestRun{
			SnapshotID:        snap.SnapshotID,
			Symbol:            *symbol,
			Frequency:         freq,
			BaseCapital:       cfg.BaseCapital,
			MonthlyWithdrawal: cfg.MonthlyWithdrawal,
			MonthlyInvestment: cfg.MonthlyInvestment,
			ApplyLosses:       cfg.ApplyLosses,
			Metrics:           result.Metrics,
			CreatedAtMs:       time.Now().UnixMilli(),
		}
		run.RunID = idhash.ComputeRunID(
			run.SnapshotID, run.Symbol, run.Frequency,
			run.BaseCapital, run.MonthlyWithdrawal, run.MonthlyInvestment,
			run.ApplyLosses, run.CreatedAtMs,
		)
		if err := runStore.Insert(ctx, run); err != nil {
			logger.Fatalf("persist run: %v", err)
		}
		logger.Printf("Persisted snapshot=%s run=%s", snap.SnapshotID, run.RunID)
	}

	// Output result
	report := reporting.NewGenerator(snapshotStore, runStore).Build(snap, freq, st, result)
	switch *format {
	case "json":
		output, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			logger.Fatalf("marshal report: %v", err)
		}
		fmt.Println(string(output))
	case "csv":
		fmt.Print(reporting.RenderCSV(report.Rows))
	default:
		fmt.Print(reporting.RenderMarkdown(report))
	}
}

// loadLegs reads a JSON array of legs.
func loadLegs(path string) ([]domain.Leg, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var legs []domain.Leg
	if err := json.Unmarshal(data, &legs); err != nil {
		return nil, fmt.Errorf("parse legs JSON: %w", err)
	}
	return legs, nil
}

// loadHistoryCSV reads date,close rows. Dates parse as 2006-01-02,
// RFC3339, or unix milliseconds. A header row is skipped.
func loadHistoryCSV(path, symbol string) ([]*domain.PriceSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2

	var samples []*domain.PriceSample
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++

		ts, err := parseDate(strings.TrimSpace(record[0]))
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		close, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse close: %w", line, err)
		}

		samples = append(samples, &domain.PriceSample{
			Symbol:      symbol,
			TimestampMs: ts,
			Close:       close,
		})
	}
	return samples, nil
}

// parseDate converts a date string to unix milliseconds.
func parseDate(s string) (int64, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UnixMilli(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	return 0, fmt.Errorf("unrecognized date %q", s)
}
