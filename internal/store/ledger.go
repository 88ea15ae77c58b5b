package store

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/btree"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

// portfolioRecord holds one portfolio of the arena. The portfolio value is
// replaced wholesale on commit, never mutated in place.
type portfolioRecord struct {
	mu        sync.RWMutex
	portfolio *domain.Portfolio
	trades    *btree.BTreeG[*domain.Trade] // ordered by (ExecutedAt, Seq)
}

func tradeLess(a, b *domain.Trade) bool {
	return a.Before(b)
}

// MemoryLedger is a thread-safe in-memory Ledger. The arena map is guarded
// by mu; each portfolio record has its own lock.
type MemoryLedger struct {
	mu         sync.RWMutex
	portfolios map[string]*portfolioRecord // portfolio_id → record
	byUser     map[string]string           // user_id → portfolio_id
	seq        atomic.Int64
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		portfolios: make(map[string]*portfolioRecord),
		byUser:     make(map[string]string),
	}
}

// CreatePortfolio adds a portfolio to the arena.
func (l *MemoryLedger) CreatePortfolio(_ context.Context, p *domain.Portfolio) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.portfolios[p.ID]; exists {
		return domain.ErrPortfolioExists
	}
	if _, exists := l.byUser[p.UserID]; exists {
		return domain.ErrPortfolioExists
	}
	const degree = 16
	l.portfolios[p.ID] = &portfolioRecord{
		portfolio: p.Clone(),
		trades:    btree.NewG[*domain.Trade](degree, tradeLess),
	}
	l.byUser[p.UserID] = p.ID
	return nil
}

func (l *MemoryLedger) record(id string) (*portfolioRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.portfolios[id]
	if !ok {
		return nil, domain.ErrPortfolioNotFound
	}
	return rec, nil
}

// GetPortfolio returns a deep copy of the portfolio.
func (l *MemoryLedger) GetPortfolio(_ context.Context, id string) (*domain.Portfolio, error) {
	rec, err := l.record(id)
	if err != nil {
		return nil, err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.portfolio.Clone(), nil
}

// GetPortfolioByUser returns a deep copy of the user's portfolio.
func (l *MemoryLedger) GetPortfolioByUser(ctx context.Context, userID string) (*domain.Portfolio, error) {
	l.mu.RLock()
	id, ok := l.byUser[userID]
	l.mu.RUnlock()
	if !ok {
		return nil, domain.ErrPortfolioNotFound
	}
	return l.GetPortfolio(ctx, id)
}

// ListPortfolioIDs returns all portfolio IDs in ascending order.
func (l *MemoryLedger) ListPortfolioIDs(_ context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.portfolios))
	for id := range l.portfolios {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Commit swaps in the next portfolio state and appends the trade under the
// record's write lock, so readers see both or neither.
func (l *MemoryLedger) Commit(_ context.Context, next *domain.Portfolio, trade *domain.Trade) error {
	rec, err := l.record(next.ID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if next.Version != rec.portfolio.Version+1 {
		return domain.ErrVersionConflict
	}

	trade.Seq = l.seq.Add(1)
	stored := *trade
	rec.trades.ReplaceOrInsert(&stored)
	rec.portfolio = next.Clone()
	return nil
}

// ListTrades returns a page of the trade log in ascending order.
func (l *MemoryLedger) ListTrades(_ context.Context, portfolioID string, q TradeQuery) ([]*domain.Trade, int, error) {
	rec, err := l.record(portfolioID)
	if err != nil {
		return nil, 0, err
	}

	rec.mu.RLock()
	matched := make([]*domain.Trade, 0, rec.trades.Len())
	rec.trades.Ascend(func(t *domain.Trade) bool {
		if q.Symbol == "" || t.Symbol == q.Symbol {
			matched = append(matched, t)
		}
		return true
	})
	rec.mu.RUnlock()

	total := len(matched)
	start, end := PageBounds(total, q.Page, q.Limit)

	// Return copies so callers cannot mutate the log.
	result := make([]*domain.Trade, 0, end-start)
	for _, t := range matched[start:end] {
		c := *t
		result = append(result, &c)
	}
	return result, total, nil
}
