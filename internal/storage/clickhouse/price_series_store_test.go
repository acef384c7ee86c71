package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/storage"
)

func sample(symbol string, timestampMs int64, close float64) *domain.PriceSample {
	return &domain.PriceSample{Symbol: symbol, TimestampMs: timestampMs, Close: close}
}

func TestPriceSeriesStore_InsertBulkAndGetBySymbol(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceSeriesStore(conn)

	err := store.InsertBulk(ctx, []*domain.PriceSample{
		sample("XYZ", 3000, 35.5),
		sample("XYZ", 1000, 34.0),
		sample("XYZ", 2000, 34.8),
		sample("ABC", 1000, 100.0),
	})
	require.NoError(t, err)

	samples, err := store.GetBySymbol(ctx, "XYZ")
	require.NoError(t, err)
	require.Len(t, samples, 3)

	// Ordered by timestamp ASC regardless of insert order
	assert.Equal(t, int64(1000), samples[0].TimestampMs)
	assert.Equal(t, int64(2000), samples[1].TimestampMs)
	assert.Equal(t, int64(3000), samples[2].TimestampMs)
	assert.InDelta(t, 34.0, samples[0].Close, 0.0001)
	assert.InDelta(t, 35.5, samples[2].Close, 0.0001)
}

func TestPriceSeriesStore_InsertBulkEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceSeriesStore(conn)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}

func TestPriceSeriesStore_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceSeriesStore(conn)

	err := store.InsertBulk(ctx, []*domain.PriceSample{
		sample("XYZ", 1000, 34.0),
		sample("XYZ", 1000, 34.5),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Failed batch writes nothing
	samples, err := store.GetBySymbol(ctx, "XYZ")
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestPriceSeriesStore_DuplicateAgainstExisting(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceSeriesStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.PriceSample{sample("XYZ", 1000, 34.0)}))

	err := store.InsertBulk(ctx, []*domain.PriceSample{
		sample("XYZ", 2000, 35.0),
		sample("XYZ", 1000, 34.0),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	samples, err := store.GetBySymbol(ctx, "XYZ")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, int64(1000), samples[0].TimestampMs)
}

func TestPriceSeriesStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceSeriesStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.PriceSample{
		sample("XYZ", 1000, 34.0),
		sample("XYZ", 2000, 34.8),
		sample("XYZ", 3000, 35.5),
		sample("XYZ", 4000, 36.0),
	}))

	samples, err := store.GetByTimeRange(ctx, "XYZ", 2000, 3000)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	// Range is inclusive on both ends
	assert.Equal(t, int64(2000), samples[0].TimestampMs)
	assert.Equal(t, int64(3000), samples[1].TimestampMs)
}

func TestPriceSeriesStore_GetMissingSymbol(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceSeriesStore(conn)

	samples, err := store.GetBySymbol(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, samples)
}
