package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/store"
)

// TradeObserver is notified after a trade has been committed. It lets the
// engine feed price caches and webhook dispatch without depending on the
// service layer.
type TradeObserver interface {
	TradeExecuted(p *domain.Portfolio, t *domain.Trade)
}

// TradeObserverFunc adapts a function to TradeObserver.
type TradeObserverFunc func(p *domain.Portfolio, t *domain.Trade)

func (f TradeObserverFunc) TradeExecuted(p *domain.Portfolio, t *domain.Trade) {
	f(p, t)
}

// Executor applies accepted trades to the ledger, one at a time per
// portfolio.
type Executor struct {
	ledger      store.Ledger
	locks       *Locks
	lockTimeout time.Duration
	observers   []TradeObserver
	logger      *slog.Logger
	now         func() time.Time
}

// NewExecutor creates an Executor. Observers are called in order after
// each successful commit, outside the portfolio lock.
func NewExecutor(
	ledger store.Ledger,
	locks *Locks,
	lockTimeout time.Duration,
	logger *slog.Logger,
	observers ...TradeObserver,
) *Executor {
	return &Executor{
		ledger:      ledger,
		locks:       locks,
		lockTimeout: lockTimeout,
		observers:   observers,
		logger:      logger,
		now:         time.Now,
	}
}

// Execute validates the proposal against the portfolio's current state and,
// if accepted, commits the new state and the trade record atomically.
//
// Errors: *domain.RejectError for rejections, domain.ErrBusy if the
// portfolio lock is not obtained within the lock timeout,
// domain.ErrPortfolioNotFound, and domain.ErrPersistenceFailure when the
// ledger cannot be read or written. Nothing is retried here.
func (e *Executor) Execute(ctx context.Context, portfolioID string, prop Proposal) (*domain.Trade, error) {
	var (
		trade *domain.Trade
		next  *domain.Portfolio
	)
	err := e.WithLock(ctx, portfolioID, func(ctx context.Context) error {
		current, err := e.ledger.GetPortfolio(ctx, portfolioID)
		if err != nil {
			if errors.Is(err, domain.ErrPortfolioNotFound) {
				return err
			}
			return fmt.Errorf("%w: load portfolio: %w", domain.ErrPersistenceFailure, err)
		}

		if err := Validate(current, prop); err != nil {
			return err
		}

		// Timestamps never go backwards within a portfolio, so the log's
		// (executed_at, seq) order stays the order trades were applied in.
		executedAt := e.now().UTC()
		if executedAt.Before(current.UpdatedAt) {
			executedAt = current.UpdatedAt.UTC()
		}

		trade = &domain.Trade{
			TradeID:     uuid.New().String(),
			PortfolioID: portfolioID,
			Symbol:      prop.Symbol,
			Side:        prop.Side,
			Quantity:    prop.Quantity,
			Price:       prop.Price,
			ExecutedAt:  executedAt,
		}
		next = Apply(current, trade)

		// Validation was the last cancellation point.
		if err := e.ledger.Commit(context.WithoutCancel(ctx), next, trade); err != nil {
			return fmt.Errorf("%w: commit trade: %w", domain.ErrPersistenceFailure, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("trade executed",
		slog.String("portfolio_id", portfolioID),
		slog.String("trade_id", trade.TradeID),
		slog.String("symbol", trade.Symbol),
		slog.String("side", string(trade.Side)),
		slog.Int64("quantity", trade.Quantity),
		slog.String("price", trade.Price.String()),
		slog.String("balance", next.Balance.String()),
	)

	for _, o := range e.observers {
		o.TradeExecuted(next, trade)
	}
	return trade, nil
}

// WithLock runs fn while holding the portfolio's lock, so fn observes and
// may change the portfolio without racing trades.
func (e *Executor) WithLock(ctx context.Context, portfolioID string, fn func(ctx context.Context) error) error {
	release, err := e.locks.Acquire(ctx, portfolioID, e.lockTimeout)
	if err != nil {
		e.logger.Warn("portfolio busy",
			slog.String("portfolio_id", portfolioID),
			slog.Duration("lock_timeout", e.lockTimeout),
		)
		return err
	}
	defer release()
	return fn(ctx)
}
