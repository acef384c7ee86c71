package postgres

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/observability"
	"github.com/marcomartin123/op/internal/storage"
)

func createTestSnapshot(snapshotID, symbol string, createdAtMs int64) *domain.StrategySnapshot {
	return &domain.StrategySnapshot{
		SnapshotID: snapshotID,
		Symbol:     symbol,
		Name:       "bear call spread",
		Legs: []domain.Leg{
			{
				Instrument: domain.InstrumentOption,
				Side:       domain.SideSell,
				OptionType: domain.OptionCall,
				Strike:     36.0,
				Premium:    1.20,
				Quantity:   1,
			},
			{
				Instrument: domain.InstrumentOption,
				Side:       domain.SideBuy,
				OptionType: domain.OptionCall,
				Strike:     38.0,
				Premium:    0.20,
				Quantity:   1,
			},
		},
		BasePrice:   35.0,
		CreatedAtMs: createdAtMs,
	}
}

func TestSnapshotStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)

	snap := createTestSnapshot("snap-001", "XYZ", 1000)

	err := store.Insert(ctx, snap)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "snap-001")
	require.NoError(t, err)

	assert.Equal(t, snap.SnapshotID, retrieved.SnapshotID)
	assert.Equal(t, snap.Symbol, retrieved.Symbol)
	assert.Equal(t, snap.Name, retrieved.Name)
	assert.InDelta(t, snap.BasePrice, retrieved.BasePrice, 0.0001)
	assert.Equal(t, snap.CreatedAtMs, retrieved.CreatedAtMs)

	require.Len(t, retrieved.Legs, 2)
	assert.Equal(t, domain.SideSell, retrieved.Legs[0].Side)
	assert.Equal(t, domain.OptionCall, retrieved.Legs[0].OptionType)
	assert.InDelta(t, 36.0, retrieved.Legs[0].Strike, 0.0001)
	assert.InDelta(t, 1.20, retrieved.Legs[0].Premium, 0.0001)
	assert.Equal(t, domain.SideBuy, retrieved.Legs[1].Side)
}

func TestSnapshotStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)

	snap := createTestSnapshot("snap-dup-001", "XYZ", 1000)

	err := store.Insert(ctx, snap)
	require.NoError(t, err)

	err = store.Insert(ctx, snap)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSnapshotStore_InsertInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)

	err := store.Insert(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Insert(ctx, &domain.StrategySnapshot{Symbol: "XYZ"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestSnapshotStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)

	errorsBefore := testutil.ToFloat64(
		observability.DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "get_snapshot"))

	_, err := store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	errorsAfter := testutil.ToFloat64(
		observability.DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "get_snapshot"))
	assert.GreaterOrEqual(t, errorsAfter, errorsBefore+1)
}

func TestSnapshotStore_GetBySymbolNewestFirst(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)

	require.NoError(t, store.Insert(ctx, createTestSnapshot("snap-a", "XYZ", 1000)))
	require.NoError(t, store.Insert(ctx, createTestSnapshot("snap-b", "XYZ", 3000)))
	require.NoError(t, store.Insert(ctx, createTestSnapshot("snap-c", "XYZ", 2000)))
	require.NoError(t, store.Insert(ctx, createTestSnapshot("snap-other", "ABC", 5000)))

	snaps, err := store.GetBySymbol(ctx, "XYZ")
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	assert.Equal(t, "snap-b", snaps[0].SnapshotID)
	assert.Equal(t, "snap-c", snaps[1].SnapshotID)
	assert.Equal(t, "snap-a", snaps[2].SnapshotID)
}

func TestSnapshotStore_GetAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)

	snaps, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, snaps)

	require.NoError(t, store.Insert(ctx, createTestSnapshot("snap-1", "XYZ", 1000)))
	require.NoError(t, store.Insert(ctx, createTestSnapshot("snap-2", "ABC", 2000)))

	snaps, err = store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "snap-2", snaps[0].SnapshotID)
	assert.Equal(t, "snap-1", snaps[1].SnapshotID)
}
