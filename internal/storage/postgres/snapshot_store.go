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

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Legs are stored as a JSONB document.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.StrategySnapshot) (err error) {
	if snap == nil || snap.SnapshotID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "insert_snapshot", time.Since(start).Seconds(), err)
	}(time.Now())

	legs, err := json.Marshal(snap.Legs)
	if err != nil {
		return fmt.Errorf("marshal legs: %w", err)
	}

	query := `
		INSERT INTO strategy_snapshots (
			snapshot_id, symbol, name, legs, base_price, created_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.pool.Exec(ctx, query,
		snap.SnapshotID, snap.Symbol, snap.Name, legs, snap.BasePrice, snap.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(ctx context.Context, snapshotID string) (snap *domain.StrategySnapshot, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "get_snapshot", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		SELECT snapshot_id, symbol, name, legs, base_price, created_at_ms
		FROM strategy_snapshots
		WHERE snapshot_id = $1
	`
	snap, err = scanSnapshot(s.pool.QueryRow(ctx, query, snapshotID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by id: %w", err)
	}
	return snap, nil
}

// GetBySymbol retrieves all snapshots saved for a symbol, newest first.
func (s *SnapshotStore) GetBySymbol(ctx context.Context, symbol string) (snaps []*domain.StrategySnapshot, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "list_snapshots", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		SELECT snapshot_id, symbol, name, legs, base_price, created_at_ms
		FROM strategy_snapshots
		WHERE symbol = $1
		ORDER BY created_at_ms DESC, snapshot_id ASC
	`
	return s.querySnapshots(ctx, query, symbol)
}

// GetAll retrieves all snapshots, newest first.
func (s *SnapshotStore) GetAll(ctx context.Context) (snaps []*domain.StrategySnapshot, err error) {
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "list_snapshots", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		SELECT snapshot_id, symbol, name, legs, base_price, created_at_ms
		FROM strategy_snapshots
		ORDER BY created_at_ms DESC, snapshot_id ASC
	`
	return s.querySnapshots(ctx, query)
}

func (s *SnapshotStore) querySnapshots(ctx context.Context, query string, args ...any) ([]*domain.StrategySnapshot, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.StrategySnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return result, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*domain.StrategySnapshot, error) {
	var snap domain.StrategySnapshot
	var legs []byte
	if err := row.Scan(
		&snap.SnapshotID, &snap.Symbol, &snap.Name, &legs, &snap.BasePrice, &snap.CreatedAtMs,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(legs, &snap.Legs); err != nil {
		return nil, fmt.Errorf("unmarshal legs: %w", err)
	}
	return &snap, nil
}
