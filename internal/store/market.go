package store

import (
	"context"
	"sync"

	"github.com/google/btree"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

func marketEventLess(a, b *domain.MarketEvent) bool {
	if !a.EventDate.Equal(b.EventDate) {
		return a.EventDate.Before(b.EventDate)
	}
	return a.Seq < b.Seq
}

// MarketEventStore is a thread-safe in-memory MarketEvents implementation
// ordered by (EventDate, Seq).
type MarketEventStore struct {
	mu     sync.RWMutex
	events *btree.BTreeG[*domain.MarketEvent]
	seq    int64
}

// NewMarketEventStore creates an empty MarketEventStore.
func NewMarketEventStore() *MarketEventStore {
	return &MarketEventStore{events: btree.NewG(32, marketEventLess)}
}

func cloneEvent(e *domain.MarketEvent) *domain.MarketEvent {
	c := *e
	c.Sectors = append([]string(nil), e.Sectors...)
	return &c
}

func (s *MarketEventStore) Record(_ context.Context, e *domain.MarketEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	e.Seq = s.seq
	s.events.ReplaceOrInsert(cloneEvent(e))
	return nil
}

func (s *MarketEventStore) Latest(_ context.Context, limit int) ([]*domain.MarketEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MarketEvent, 0)
	s.events.Descend(func(e *domain.MarketEvent) bool {
		if limit > 0 && len(result) >= limit {
			return false
		}
		result = append(result, cloneEvent(e))
		return true
	})
	return result, nil
}

func (s *MarketEventStore) Trim(_ context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for s.events.Len() > keep {
		s.events.DeleteMin()
		removed++
	}
	return removed, nil
}
