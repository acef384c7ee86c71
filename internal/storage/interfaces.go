package storage

import (
	"context"

	"github.com/marcomartin123/op/internal/domain"
)

// SnapshotStore provides access to strategy_snapshots storage.
type SnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
	Insert(ctx context.Context, s *domain.StrategySnapshot) error

	// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, snapshotID string) (*domain.StrategySnapshot, error)

	// GetBySymbol retrieves all snapshots saved for a symbol, newest first.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.StrategySnapshot, error)

	// GetAll retrieves all snapshots, newest first.
	GetAll(ctx context.Context) ([]*domain.StrategySnapshot, error)
}

// PriceSeriesStore provides access to price_samples storage.
type PriceSeriesStore interface {
	// InsertBulk adds multiple samples. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, samples []*domain.PriceSample) error

	// GetBySymbol retrieves all samples for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.PriceSample, error)

	// GetByTimeRange retrieves samples for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceSample, error)
}

// BacktestRunStore provides access to backtest_runs storage.
type BacktestRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.BacktestRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error)

	// GetBySnapshotID retrieves all runs recorded for a snapshot, newest first.
	GetBySnapshotID(ctx context.Context, snapshotID string) ([]*domain.BacktestRun, error)
}
