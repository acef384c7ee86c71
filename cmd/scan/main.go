// Package main scans a strategy across many symbols' stored histories.
// Optionally tails a live quote feed and serves Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/marcomartin123/op/internal/backtest"
	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/idhash"
	"github.com/marcomartin123/op/internal/marketdata"
	"github.com/marcomartin123/op/internal/observability"
	"github.com/marcomartin123/op/internal/scanner"
	"github.com/marcomartin123/op/internal/storage"
	chstore "github.com/marcomartin123/op/internal/storage/clickhouse"
	"github.com/marcomartin123/op/internal/storage/memory"
	"github.com/marcomartin123/op/internal/storage/migrations"
	pgstore "github.com/marcomartin123/op/internal/storage/postgres"
)

func main() {
	// Parse flags
	symbolsFlag := flag.String("symbols", "", "Comma-separated symbols to scan (required)")
	name := flag.String("name", "strategy", "Strategy name")
	legsPath := flag.String("legs", "", "Path to legs JSON file (required)")
	frequency := flag.String("frequency", "MONTHLY", "Resample frequency: WEEKLY or MONTHLY")
	workers := flag.Int("workers", 4, "Concurrent symbol evaluations")

	// Simulation parameters
	capital := flag.Float64("capital", 10000, "Base capital")
	withdrawal := flag.Float64("withdrawal", 0, "Monthly withdrawal amount")
	investment := flag.Float64("investment", 0, "Monthly contribution amount")
	applyLosses := flag.Bool("apply-losses", false, "Inject the synthetic periodic loss schedule")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	// Live quotes and observability
	wsURL := flag.String("ws-url", "", "Websocket quote feed URL (empty to disable)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	persistRuns := flag.Bool("persist", false, "Persist one run per symbol")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[scan] ", log.LstdFlags)

	// Validate required flags
	if *symbolsFlag == "" {
		logger.Fatal("--symbols is required")
	}
	if *legsPath == "" {
		logger.Fatal("--legs is required")
	}

	symbols := splitSymbols(*symbolsFlag)
	if len(symbols) == 0 {
		logger.Fatal("--symbols contains no symbols")
	}

	freq := domain.Frequency(strings.ToUpper(*frequency))
	if freq != domain.FrequencyWeekly && freq != domain.FrequencyMonthly {
		logger.Fatalf("Invalid frequency: %s. Must be WEEKLY or MONTHLY", *frequency)
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

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	// Load legs
	legs, err := loadLegs(*legsPath)
	if err != nil {
		logger.Fatalf("load legs: %v", err)
	}
	if len(legs) == 0 {
		logger.Fatal("legs file contains no legs")
	}

	// Create stores
	var priceStore storage.PriceSeriesStore = memory.NewPriceSeriesStore()
	var runStore storage.BacktestRunStore = memory.NewBacktestRunStore()

	if !*useMemory {
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when not using --use-memory")
		}
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()

		priceStore = chstore.NewPriceSeriesStore(conn)

		if *persistRuns {
			if *postgresDSN == "" {
				logger.Fatal("--postgres-dsn is required with --persist")
			}
			pool, err := pgstore.NewPool(ctx, *postgresDSN)
			if err != nil {
				logger.Fatalf("connect to postgres: %v", err)
			}
			defer pool.Close()

			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				logger.Fatalf("run postgres migrations: %v", err)
			}

			runStore = pgstore.NewBacktestRunStore(pool)
		}
	}

	// Tail the live quote feed while the scan runs
	if *wsURL != "" {
		client, err := marketdata.NewClient(ctx, *wsURL, nil)
		if err != nil {
			logger.Fatalf("connect quote feed: %v", err)
		}
		defer client.Close()

		for _, sym := range symbols {
			ch, err := client.Subscribe(ctx, sym)
			if err != nil {
				logger.Fatalf("subscribe %s: %v", sym, err)
			}
			go func(sym string, ch <-chan marketdata.Quote) {
				for q := range ch {
					observability.RecordQuote(q.Symbol)
					if *verbose {
						logger.Printf("quote %s %.4f", q.Symbol, q.Price)
					}
				}
			}(sym, ch)
		}
		logger.Printf("Tailing quotes for %d symbols from %s", len(symbols), *wsURL)
	}

	// Build the snapshot; the scanner re-anchors the base price on each
	// symbol's latest close.
	snap := &domain.StrategySnapshot{
		Symbol:      symbols[0],
		Name:        *name,
		Legs:        legs,
		CreatedAtMs: time.Now().UnixMilli(),
	}
	snap.SnapshotID = idhash.ComputeSnapshotID(snap.Symbol, snap.Name, snap.Legs, snap.BasePrice, snap.CreatedAtMs)

	// Run the scan
	s := scanner.New(scanner.Options{
		PriceSeriesStore: priceStore,
		RunStore:         runStore,
		Workers:          *workers,
		Verbose:          *verbose,
	})

	result, err := s.Run(ctx, scanner.Request{
		Snapshot: snap,
		Symbols:  symbols,
		Config: backtest.Config{
			BaseCapital:       *capital,
			MonthlyWithdrawal: *withdrawal,
			MonthlyInvestment: *investment,
			ApplyLosses:       *applyLosses,
			Frequency:         freq,
		},
		Persist: *persistRuns,
	})
	if err != nil {
		logger.Fatalf("scan failed: %v", err)
	}

	printSummary(result)

	if result.Errors > 0 {
		os.Exit(1)
	}
}

// printSummary renders a per-symbol table ranked by monthly IRR.
func printSummary(result *scanner.ScanResult) {
	fmt.Println()
	fmt.Println("=== Scan Summary ===")
	fmt.Printf("%-10s %10s %8s %10s %10s %12s %8s\n",
		"SYMBOL", "BASE", "PERIODS", "RETURN%", "IRR", "FINAL", "W/L")

	for _, i := range scanner.RankByIRR(result.Results) {
		r := result.Results[i]
		if r.Err != nil {
			fmt.Printf("%-10s ERROR: %v\n", r.Symbol, r.Err)
			continue
		}
		fmt.Printf("%-10s %10.2f %8d %10.2f %10.4f %12.2f %4d/%d\n",
			r.Symbol, r.BasePrice, r.Metrics.Periods,
			r.Metrics.TotalReturnPct, r.Metrics.MonthlyIRR,
			r.Metrics.FinalCapital, r.Metrics.Wins, r.Metrics.Losses)
	}
	fmt.Println()
}

// splitSymbols parses the comma-separated symbol list.
func splitSymbols(s string) []string {
	var symbols []string
	for _, part := range strings.Split(s, ",") {
		if sym := strings.TrimSpace(part); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	return symbols
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
