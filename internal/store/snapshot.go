package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

func snapshotLess(a, b *domain.Snapshot) bool {
	return a.TakenAt.Before(b.TakenAt)
}

// SnapshotStore is a thread-safe in-memory Snapshots implementation,
// keyed by portfolio_id with each series ordered by TakenAt.
type SnapshotStore struct {
	mu     sync.RWMutex
	series map[string]*btree.BTreeG[*domain.Snapshot]
}

// NewSnapshotStore creates an empty SnapshotStore.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		series: make(map[string]*btree.BTreeG[*domain.Snapshot]),
	}
}

// Record adds a snapshot. A second snapshot with the same TakenAt for the
// same portfolio replaces the first.
func (s *SnapshotStore) Record(_ context.Context, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, ok := s.series[snap.PortfolioID]
	if !ok {
		tree = btree.NewG[*domain.Snapshot](16, snapshotLess)
		s.series[snap.PortfolioID] = tree
	}
	c := *snap
	tree.ReplaceOrInsert(&c)
	return nil
}

// Latest returns up to limit most recent snapshots, oldest first.
func (s *SnapshotStore) Latest(_ context.Context, portfolioID string, limit int) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tree, ok := s.series[portfolioID]
	if !ok {
		return []*domain.Snapshot{}, nil
	}

	result := make([]*domain.Snapshot, 0)
	tree.Descend(func(snap *domain.Snapshot) bool {
		if limit > 0 && len(result) >= limit {
			return false
		}
		c := *snap
		result = append(result, &c)
		return true
	})

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// Prune removes every snapshot taken before cutoff.
func (s *SnapshotStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pivot := &domain.Snapshot{TakenAt: cutoff}
	removed := 0
	for id, tree := range s.series {
		var stale []*domain.Snapshot
		tree.AscendLessThan(pivot, func(snap *domain.Snapshot) bool {
			stale = append(stale, snap)
			return true
		})
		for _, snap := range stale {
			tree.Delete(snap)
		}
		removed += len(stale)
		if tree.Len() == 0 {
			delete(s.series, id)
		}
	}
	return removed, nil
}
