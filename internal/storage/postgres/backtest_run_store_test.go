package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/storage"
)

func createTestRun(runID, snapshotID string, createdAtMs int64) *domain.BacktestRun {
	return &domain.BacktestRun{
		RunID:             runID,
		SnapshotID:        snapshotID,
		Symbol:            "XYZ",
		Frequency:         domain.FrequencyMonthly,
		BaseCapital:       1000.0,
		MonthlyWithdrawal: 50.0,
		MonthlyInvestment: 25.0,
		ApplyLosses:       true,
		Metrics: domain.BacktestMetrics{
			InitialCapital:  1000.0,
			FinalCapital:    1210.0,
			FinalCapitalNet: 1150.0,
			TotalReturnPct:  21.0,
			MonthlyRate:     0.1,
			MonthlyIRR:      0.095,
			Periods:         2,
			Wins:            2,
			Losses:          0,
			LossEvents:      0,
		},
		CreatedAtMs: createdAtMs,
	}
}

func TestBacktestRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBacktestRunStore(pool)

	run := createTestRun("run-001", "snap-001", 1000)

	err := store.Insert(ctx, run)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "run-001")
	require.NoError(t, err)

	assert.Equal(t, run.RunID, retrieved.RunID)
	assert.Equal(t, run.SnapshotID, retrieved.SnapshotID)
	assert.Equal(t, run.Symbol, retrieved.Symbol)
	assert.Equal(t, domain.FrequencyMonthly, retrieved.Frequency)
	assert.InDelta(t, run.BaseCapital, retrieved.BaseCapital, 0.0001)
	assert.InDelta(t, run.MonthlyWithdrawal, retrieved.MonthlyWithdrawal, 0.0001)
	assert.InDelta(t, run.MonthlyInvestment, retrieved.MonthlyInvestment, 0.0001)
	assert.True(t, retrieved.ApplyLosses)
	assert.Equal(t, run.CreatedAtMs, retrieved.CreatedAtMs)

	assert.InDelta(t, run.Metrics.FinalCapital, retrieved.Metrics.FinalCapital, 0.0001)
	assert.InDelta(t, run.Metrics.MonthlyIRR, retrieved.Metrics.MonthlyIRR, 0.0001)
	assert.Equal(t, run.Metrics.Periods, retrieved.Metrics.Periods)
	assert.Equal(t, run.Metrics.Wins, retrieved.Metrics.Wins)
}

func TestBacktestRunStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBacktestRunStore(pool)

	run := createTestRun("run-dup-001", "snap-001", 1000)

	err := store.Insert(ctx, run)
	require.NoError(t, err)

	err = store.Insert(ctx, run)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestBacktestRunStore_InsertInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBacktestRunStore(pool)

	err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Insert(ctx, &domain.BacktestRun{SnapshotID: "snap-001"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestBacktestRunStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBacktestRunStore(pool)

	_, err := store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBacktestRunStore_GetBySnapshotIDNewestFirst(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBacktestRunStore(pool)

	require.NoError(t, store.Insert(ctx, createTestRun("run-a", "snap-001", 1000)))
	require.NoError(t, store.Insert(ctx, createTestRun("run-b", "snap-001", 3000)))
	require.NoError(t, store.Insert(ctx, createTestRun("run-c", "snap-001", 2000)))
	require.NoError(t, store.Insert(ctx, createTestRun("run-other", "snap-002", 5000)))

	runs, err := store.GetBySnapshotID(ctx, "snap-001")
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, "run-b", runs[0].RunID)
	assert.Equal(t, "run-c", runs[1].RunID)
	assert.Equal(t, "run-a", runs[2].RunID)
}
