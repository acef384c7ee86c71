package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/observability"
	"github.com/marcomartin123/op/internal/storage"
)

// PriceSeriesStore implements storage.PriceSeriesStore using ClickHouse.
type PriceSeriesStore struct {
	conn *Conn
}

// NewPriceSeriesStore creates a new PriceSeriesStore.
func NewPriceSeriesStore(conn *Conn) *PriceSeriesStore {
	return &PriceSeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// InsertBulk adds multiple samples. Fails entire batch on duplicate (symbol, timestamp_ms).
func (s *PriceSeriesStore) InsertBulk(ctx context.Context, samples []*domain.PriceSample) (err error) {
	if len(samples) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "insert_samples", time.Since(start).Seconds(), err)
	}(time.Now())

	// Check for intra-batch duplicates
	type key struct {
		symbol      string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range samples {
		if p == nil || p.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.Symbol, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range samples {
		exists, err := s.exists(ctx, p.Symbol, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_samples (symbol, timestamp_ms, close)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range samples {
		if err := batch.Append(p.Symbol, uint64(p.TimestampMs), p.Close); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySymbol retrieves all samples for a symbol, ordered by timestamp ASC.
func (s *PriceSeriesStore) GetBySymbol(ctx context.Context, symbol string) (samples []*domain.PriceSample, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "get_series", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		SELECT symbol, timestamp_ms, close
		FROM price_samples
		WHERE symbol = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanPriceSamples(rows)
}

// GetByTimeRange retrieves samples for a symbol within [start, end] (inclusive).
func (s *PriceSeriesStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) (samples []*domain.PriceSample, err error) {
	defer func(startedAt time.Time) {
		observability.RecordDBQuery("clickhouse", "get_series_range", time.Since(startedAt).Seconds(), err)
	}(time.Now())

	query := `
		SELECT symbol, timestamp_ms, close
		FROM price_samples
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceSamples(rows)
}

// exists checks if a sample with the given key exists.
func (s *PriceSeriesStore) exists(ctx context.Context, symbol string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM price_samples
		WHERE symbol = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, symbol, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows abstracts driver.Rows for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanPriceSamples(rows chRows) ([]*domain.PriceSample, error) {
	var samples []*domain.PriceSample

	for rows.Next() {
		var p domain.PriceSample
		var timestampMs uint64

		if err := rows.Scan(&p.Symbol, &timestampMs, &p.Close); err != nil {
			return nil, fmt.Errorf("scan price sample row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		samples = append(samples, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price sample rows: %w", err)
	}

	return samples, nil
}
