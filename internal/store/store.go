package store

import (
	"context"
	"time"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

// TradeQuery selects a page of a portfolio's trade log. Pages are counted
// from the newest trade, so page 1 holds the latest Limit trades; each
// page is returned in ascending execution order.
type TradeQuery struct {
	Symbol string // optional exact-match filter
	Page   int    // 1-based
	Limit  int    // <= 0 means no limit
}

// Ledger is the durable portfolio state: the current balance and positions
// of every portfolio plus each portfolio's append-only trade log.
type Ledger interface {
	// CreatePortfolio stores a new portfolio. It returns
	// domain.ErrPortfolioExists if the ID or the user already has one.
	CreatePortfolio(ctx context.Context, p *domain.Portfolio) error

	// GetPortfolio returns a consistent copy of the portfolio, or
	// domain.ErrPortfolioNotFound.
	GetPortfolio(ctx context.Context, id string) (*domain.Portfolio, error)

	// GetPortfolioByUser returns the user's portfolio, or
	// domain.ErrPortfolioNotFound.
	GetPortfolioByUser(ctx context.Context, userID string) (*domain.Portfolio, error)

	// ListPortfolioIDs returns every portfolio ID.
	ListPortfolioIDs(ctx context.Context) ([]string, error)

	// Commit replaces the portfolio's state with next and appends trade,
	// as one unit. next.Version must be exactly one more than the stored
	// version, otherwise domain.ErrVersionConflict is returned and nothing
	// changes. Commit assigns trade.Seq.
	Commit(ctx context.Context, next *domain.Portfolio, trade *domain.Trade) error

	// ListTrades returns the requested page of the trade log and the total
	// number of trades matching the query's filter.
	ListTrades(ctx context.Context, portfolioID string, q TradeQuery) ([]*domain.Trade, int, error)
}

// Snapshots stores the valuation series of each portfolio.
type Snapshots interface {
	Record(ctx context.Context, s *domain.Snapshot) error
	// Latest returns up to limit most recent snapshots in ascending order.
	Latest(ctx context.Context, portfolioID string, limit int) ([]*domain.Snapshot, error)
	// Prune deletes snapshots taken before cutoff and returns how many.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// MarketEvents stores the simulated market event feed.
type MarketEvents interface {
	// Record appends an event and assigns its Seq.
	Record(ctx context.Context, e *domain.MarketEvent) error
	// Latest returns up to limit most recent events, newest first.
	Latest(ctx context.Context, limit int) ([]*domain.MarketEvent, error)
	// Trim keeps the newest keep events and returns how many were removed.
	Trim(ctx context.Context, keep int) (int, error)
}

// PageBounds returns the [start, end) window of an ascending list of total
// items for a page counted from the end.
func PageBounds(total, page, limit int) (int, int) {
	if limit <= 0 {
		return 0, total
	}
	if page < 1 {
		page = 1
	}
	end := total - (page-1)*limit
	if end <= 0 {
		return 0, 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	return start, end
}
