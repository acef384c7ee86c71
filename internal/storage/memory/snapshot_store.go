// Package memory provides in-memory store implementations, used by
// tests and the --use-memory CLI mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/marcomartin123/op/internal/domain"
	"github.com/marcomartin123/op/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StrategySnapshot // keyed by snapshot_id
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.StrategySnapshot),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.StrategySnapshot) error {
	if snap == nil || snap.SnapshotID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snap.SnapshotID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[snap.SnapshotID] = copySnapshot(snap)
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(_ context.Context, snapshotID string) (*domain.StrategySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[snapshotID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySnapshot(snap), nil
}

// GetBySymbol retrieves all snapshots saved for a symbol, newest first.
func (s *SnapshotStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.StrategySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StrategySnapshot
	for _, snap := range s.data {
		if snap.Symbol == symbol {
			result = append(result, copySnapshot(snap))
		}
	}
	sortSnapshots(result)
	return result, nil
}

// GetAll retrieves all snapshots, newest first.
func (s *SnapshotStore) GetAll(_ context.Context) ([]*domain.StrategySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.StrategySnapshot, 0, len(s.data))
	for _, snap := range s.data {
		result = append(result, copySnapshot(snap))
	}
	sortSnapshots(result)
	return result, nil
}

// sortSnapshots orders newest first, breaking ties by ID for
// deterministic output.
func sortSnapshots(snaps []*domain.StrategySnapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CreatedAtMs != snaps[j].CreatedAtMs {
			return snaps[i].CreatedAtMs > snaps[j].CreatedAtMs
		}
		return snaps[i].SnapshotID < snaps[j].SnapshotID
	})
}

// copySnapshot deep-copies a snapshot so callers never share leg slices
// with the store.
func copySnapshot(snap *domain.StrategySnapshot) *domain.StrategySnapshot {
	cp := *snap
	cp.Legs = make([]domain.Leg, len(snap.Legs))
	copy(cp.Legs, snap.Legs)
	return &cp
}
