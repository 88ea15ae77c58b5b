package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/engine"
	"github.com/efreitasn/portfolioledger/internal/store"
)

var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_.@-]{1,128}$`)

// PortfolioView is a portfolio together with its valuation at read time.
type PortfolioView struct {
	Portfolio *domain.Portfolio
	Valuation *engine.Valuation
}

// Reconciliation compares a portfolio's stored state with the state
// rebuilt from its trade log.
type Reconciliation struct {
	PortfolioID string
	TradeCount  int
	Consistent  bool
	Stored      *domain.Portfolio
	Replayed    *domain.Portfolio // nil when the log could not be replayed
	ReplayError string
	CheckedAt   time.Time
}

// PortfolioService handles portfolio creation, valued reads, snapshot
// history and reconciliation.
type PortfolioService struct {
	ledger      store.Ledger
	executor    *engine.Executor
	valuer      *engine.Valuer
	snapshots   store.Snapshots
	seedBalance decimal.Decimal
	autoCreate  bool
	logger      *slog.Logger
	now         func() time.Time
}

// NewPortfolioService creates a new PortfolioService with the given dependencies.
func NewPortfolioService(
	ledger store.Ledger,
	executor *engine.Executor,
	valuer *engine.Valuer,
	snapshots store.Snapshots,
	seedBalance decimal.Decimal,
	autoCreate bool,
	logger *slog.Logger,
) *PortfolioService {
	return &PortfolioService{
		ledger:      ledger,
		executor:    executor,
		valuer:      valuer,
		snapshots:   snapshots,
		seedBalance: seedBalance,
		autoCreate:  autoCreate,
		logger:      logger,
		now:         time.Now,
	}
}

// ForUser returns the user's valued portfolio. When auto-creation is on, a
// portfolio with the seed balance is created on first access and created
// is true.
func (s *PortfolioService) ForUser(ctx context.Context, userID string) (*PortfolioView, bool, error) {
	if !userIDRegex.MatchString(userID) {
		return nil, false, &domain.ValidationError{
			Message: "user_id must match ^[a-zA-Z0-9_.@-]{1,128}$",
		}
	}

	p, err := s.ledger.GetPortfolioByUser(ctx, userID)
	created := false
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrPortfolioNotFound) && s.autoCreate:
		p, created, err = s.create(ctx, userID)
		if err != nil {
			return nil, false, err
		}
	case errors.Is(err, domain.ErrPortfolioNotFound):
		return nil, false, err
	default:
		return nil, false, fmt.Errorf("%w: load portfolio: %w", domain.ErrPersistenceFailure, err)
	}

	return s.view(ctx, p), created, nil
}

func (s *PortfolioService) create(ctx context.Context, userID string) (*domain.Portfolio, bool, error) {
	now := s.now().UTC()
	p := &domain.Portfolio{
		ID:          uuid.New().String(),
		UserID:      userID,
		Balance:     s.seedBalance,
		SeedBalance: s.seedBalance,
		Positions:   make(map[string]int64),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.ledger.CreatePortfolio(ctx, p)
	if errors.Is(err, domain.ErrPortfolioExists) {
		// Lost a race with a concurrent first access.
		existing, err := s.ledger.GetPortfolioByUser(ctx, userID)
		if err != nil {
			return nil, false, fmt.Errorf("%w: load portfolio: %w", domain.ErrPersistenceFailure, err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: create portfolio: %w", domain.ErrPersistenceFailure, err)
	}

	s.logger.Info("portfolio created",
		slog.String("portfolio_id", p.ID),
		slog.String("user_id", userID),
		slog.String("seed_balance", p.SeedBalance.String()),
	)
	return p, true, nil
}

// Get returns the valued portfolio by ID.
func (s *PortfolioService) Get(ctx context.Context, portfolioID string) (*PortfolioView, error) {
	p, err := s.load(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, p), nil
}

func (s *PortfolioService) load(ctx context.Context, portfolioID string) (*domain.Portfolio, error) {
	p, err := s.ledger.GetPortfolio(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, domain.ErrPortfolioNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load portfolio: %w", domain.ErrPersistenceFailure, err)
	}
	return p, nil
}

func (s *PortfolioService) view(ctx context.Context, p *domain.Portfolio) *PortfolioView {
	return &PortfolioView{Portfolio: p, Valuation: s.valuer.Value(ctx, p)}
}

// Snapshots returns up to limit most recent valuation snapshots of the
// portfolio, oldest first.
func (s *PortfolioService) Snapshots(ctx context.Context, portfolioID string, limit int) ([]*domain.Snapshot, error) {
	if limit < 1 || limit > 1000 {
		return nil, &domain.ValidationError{Message: "limit must be between 1 and 1000"}
	}
	if _, err := s.load(ctx, portfolioID); err != nil {
		return nil, err
	}
	snaps, err := s.snapshots.Latest(ctx, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list snapshots: %w", domain.ErrPersistenceFailure, err)
	}
	return snaps, nil
}

// Reconcile replays the portfolio's trade log from its seed balance while
// holding the portfolio lock and reports whether the result matches the
// stored balance and positions.
func (s *PortfolioService) Reconcile(ctx context.Context, portfolioID string) (*Reconciliation, error) {
	var rec *Reconciliation
	err := s.executor.WithLock(ctx, portfolioID, func(ctx context.Context) error {
		stored, err := s.load(ctx, portfolioID)
		if err != nil {
			return err
		}
		trades, total, err := s.ledger.ListTrades(ctx, portfolioID, store.TradeQuery{})
		if err != nil {
			return fmt.Errorf("%w: list trades: %w", domain.ErrPersistenceFailure, err)
		}

		rec = &Reconciliation{
			PortfolioID: portfolioID,
			TradeCount:  total,
			Stored:      stored,
			CheckedAt:   s.now().UTC(),
		}
		replayed, err := engine.Replay(stored, trades)
		if err != nil {
			rec.ReplayError = err.Error()
			return nil
		}
		rec.Replayed = replayed
		rec.Consistent = engine.SameHoldings(stored, replayed)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !rec.Consistent {
		s.logger.Error("portfolio diverges from its trade log",
			slog.String("portfolio_id", portfolioID),
			slog.Int("trades", rec.TradeCount),
			slog.String("replay_error", rec.ReplayError),
		)
	}
	return rec, nil
}
