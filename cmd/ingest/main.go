// Package main loads daily close history from CSV files into the price
// sample store.
package main

import (
	"context"
	"encoding/csv"
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

	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/storage"
	chstore "github.com/marcomartin123/op/internal/storage/clickhouse"
	"github.com/marcomartin123/op/internal/storage/memory"
	"github.com/marcomartin123/op/internal/storage/migrations"
)

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to history CSV (date,close) (required)")
	symbol := flag.String("symbol", "", "Symbol the series belongs to (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Parse and validate only, no persistence")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[ingest] ", log.LstdFlags)

	if *csvPath == "" {
		logger.Fatal("--csv is required")
	}
	if *symbol == "" {
		logger.Fatal("--symbol is required")
	}
	if !*useMemory && *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required (use --use-memory for a dry run)")
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

	samples, err := loadSamplesCSV(*csvPath, *symbol)
	if err != nil {
		logger.Fatalf("load csv: %v", err)
	}
	if len(samples) == 0 {
		logger.Fatal("csv contains no samples")
	}
	logger.Printf("Parsed %d samples for %s from %s", len(samples), *symbol, *csvPath)

	var store storage.PriceSeriesStore = memory.NewPriceSeriesStore()
	if !*useMemory {
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("run clickhouse migrations: %v", err)
		}
		defer conn.Close()

		store = chstore.NewPriceSeriesStore(conn)
	}

	if err := store.InsertBulk(ctx, samples); err != nil {
		logger.Fatalf("insert samples: %v", err)
	}

	logger.Printf("Inserted %d samples for %s", len(samples), *symbol)
}

// loadSamplesCSV reads date,close rows into price samples. A header row is
// tolerated on the first line.
func loadSamplesCSV(path, symbol string) ([]*domain.PriceSample, error) {
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
			return nil, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++

		ts, err := parseDate(strings.TrimSpace(record[0]))
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("parse date on line %d: %w", line, err)
		}
		close, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse close on line %d: %w", line, err)
		}

		samples = append(samples, &domain.PriceSample{
			Symbol:      symbol,
			TimestampMs: ts,
			Close:       close,
		})
	}
	return samples, nil
}

// parseDate accepts 2006-01-02, RFC3339, or raw unix milliseconds.
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
