package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/observability"
	"github.com/marcomartin123/op/internal/storage"
)

// BacktestRunStore implements storage.BacktestRunStore using PostgreSQL.
// Metrics are stored as a JSONB document.
type BacktestRunStore struct {
	pool *Pool
}

// NewBacktestRunStore creates a new BacktestRunStore.
func NewBacktestRunStore(pool *Pool) *BacktestRunStore {
	return &BacktestRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

// Insert adds a new backtest run. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestRunStore) Insert(ctx context.Context, run *domain.BacktestRun) (err error) {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "insert_run", time.Since(start).Seconds(), err)
	}(time.Now())

	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	query := `
		INSERT INTO backtest_runs (
			run_id, snapshot_id, symbol, frequency,
			base_capital, monthly_withdrawal, monthly_investment, apply_losses,
			metrics, created_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.pool.Exec(ctx, query,
		run.RunID, run.SnapshotID, run.Symbol, string(run.Frequency),
		run.BaseCapital, run.MonthlyWithdrawal, run.MonthlyInvestment, run.ApplyLosses,
		metrics, run.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *BacktestRunStore) GetByID(ctx context.Context, runID string) (run *domain.BacktestRun, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "get_run", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		SELECT run_id, snapshot_id, symbol, frequency,
		       base_capital, monthly_withdrawal, monthly_investment, apply_losses,
		       metrics, created_at_ms
		FROM backtest_runs
		WHERE run_id = $1
	`
	run, err = scanBacktestRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run by id: %w", err)
	}
	return run, nil
}

// GetBySnapshotID retrieves all runs recorded for a snapshot, newest first.
func (s *BacktestRunStore) GetBySnapshotID(ctx context.Context, snapshotID string) (runs []*domain.BacktestRun, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "list_runs", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		SELECT run_id, snapshot_id, symbol, frequency,
		       base_capital, monthly_withdrawal, monthly_investment, apply_losses,
		       metrics, created_at_ms
		FROM backtest_runs
		WHERE snapshot_id = $1
		ORDER BY created_at_ms DESC, run_id ASC
	`
	rows, err := s.pool.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query backtest runs: %w", err)
	}
	defer rows.Close()

	var result []*domain.BacktestRun
	for rows.Next() {
		run, err := scanBacktestRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run: %w", err)
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest runs: %w", err)
	}
	return result, nil
}

func scanBacktestRun(row rowScanner) (*domain.BacktestRun, error) {
	var run domain.BacktestRun
	var frequency string
	var metrics []byte
	if err := row.Scan(
		&run.RunID, &run.SnapshotID, &run.Symbol, &frequency,
		&run.BaseCapital, &run.MonthlyWithdrawal, &run.MonthlyInvestment, &run.ApplyLosses,
		&metrics, &run.CreatedAtMs,
	); err != nil {
		return nil, err
	}
	run.Frequency = domain.Frequency(frequency)
	if err := json.Unmarshal(metrics, &run.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	return &run, nil
}
