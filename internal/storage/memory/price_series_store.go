package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/storage"
)

// PriceSeriesStore is an in-memory implementation of storage.PriceSeriesStore.
type PriceSeriesStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceSample // keyed by (symbol, timestamp_ms)
}

// NewPriceSeriesStore creates a new in-memory price series store.
func NewPriceSeriesStore() *PriceSeriesStore {
	return &PriceSeriesStore{
		data: make(map[string]*domain.PriceSample),
	}
}

// Compile-time interface check.
var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// sampleKey generates a unique key for a price sample.
func sampleKey(symbol string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", symbol, timestampMs)
}

// InsertBulk adds multiple samples. Fails entire batch on duplicate.
func (s *PriceSeriesStore) InsertBulk(_ context.Context, samples []*domain.PriceSample) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: reject existing and intra-batch duplicates.
	batchKeys := make(map[string]struct{}, len(samples))
	for _, p := range samples {
		if p == nil || p.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := sampleKey(p.Symbol, p.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all.
	for _, p := range samples {
		sampleCopy := *p
		s.data[sampleKey(p.Symbol, p.TimestampMs)] = &sampleCopy
	}
	return nil
}

// GetBySymbol retrieves all samples for a symbol, ordered by timestamp ASC.
func (s *PriceSeriesStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceSample
	for _, p := range s.data {
		if p.Symbol == symbol {
			sampleCopy := *p
			result = append(result, &sampleCopy)
		}
	}
	sortSamples(result)
	return result, nil
}

// GetByTimeRange retrieves samples for a symbol within [start, end] (inclusive).
func (s *PriceSeriesStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceSample
	for _, p := range s.data {
		if p.Symbol == symbol && p.TimestampMs >= start && p.TimestampMs <= end {
			sampleCopy := *p
			result = append(result, &sampleCopy)
		}
	}
	sortSamples(result)
	return result, nil
}

func sortSamples(samples []*domain.PriceSample) {
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].TimestampMs < samples[j].TimestampMs
	})
}
