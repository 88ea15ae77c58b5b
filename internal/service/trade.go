package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/engine"
	"github.com/efreitasn/portfolioledger/internal/store"
)

// symbolRegex accepts share-class and exchange suffixes such as BRK.B or
// RDS-A.
var symbolRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.-]{0,9}$`)

// SubmitTradeRequest represents the input for trade submission.
type SubmitTradeRequest struct {
	PortfolioID string
	Symbol      string
	Side        domain.Side
	Quantity    int64
	Price       decimal.Decimal
}

// HistoryRequest selects a page of a portfolio's trade history.
type HistoryRequest struct {
	PortfolioID string
	Symbol      string // optional
	Limit       int    // 0 means the default limit
	Page        int    // 0 means 1
}

// HistoryPage is one page of trade history in ascending execution order.
type HistoryPage struct {
	Trades []*domain.Trade
	Page   int
	Limit  int
	Total  int
}

// TradeService handles trade submission and history queries.
type TradeService struct {
	executor     *engine.Executor
	ledger       store.Ledger
	currency     string
	defaultLimit int
	maxLimit     int
}

// NewTradeService creates a new TradeService with the given dependencies.
func NewTradeService(
	executor *engine.Executor,
	ledger store.Ledger,
	currency string,
	defaultLimit, maxLimit int,
) *TradeService {
	return &TradeService{
		executor:     executor,
		ledger:       ledger,
		currency:     currency,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Submit validates the request shape and hands the trade to the executor.
// Request-shape problems are *domain.ValidationError; business rejections
// are *domain.RejectError.
func (s *TradeService) Submit(ctx context.Context, req SubmitTradeRequest) (*domain.Trade, error) {
	if !symbolRegex.MatchString(req.Symbol) {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("symbol must be 1-10 characters of A-Z, 0-9, '.' or '-', got %q", req.Symbol),
		}
	}
	if !req.Side.Valid() {
		return nil, &domain.ValidationError{Message: "side must be 'BUY' or 'SELL'"}
	}

	// Precision only matters for prices the validator would otherwise accept.
	if req.Quantity > 0 && req.Price.IsPositive() {
		if err := domain.CheckPrecision(req.Price, s.currency); err != nil {
			return nil, domain.Reject(domain.ErrInvalidPrice, "price: "+err.Error())
		}
	}

	return s.executor.Execute(ctx, req.PortfolioID, engine.Proposal{
		Symbol:   req.Symbol,
		Side:     req.Side,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
}

// History returns a page of the portfolio's trades. Page 1 holds the most
// recent trades; every page is in ascending execution order.
func (s *TradeService) History(ctx context.Context, req HistoryRequest) (*HistoryPage, error) {
	limit := req.Limit
	if limit == 0 {
		limit = s.defaultLimit
	}
	if limit < 1 || limit > s.maxLimit {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("limit must be between 1 and %d", s.maxLimit),
		}
	}
	page := req.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return nil, &domain.ValidationError{Message: "page must be >= 1"}
	}
	if req.Symbol != "" && !symbolRegex.MatchString(req.Symbol) {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("symbol must be 1-10 characters of A-Z, 0-9, '.' or '-', got %q", req.Symbol),
		}
	}

	trades, total, err := s.ledger.ListTrades(ctx, req.PortfolioID, store.TradeQuery{
		Symbol: req.Symbol,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		if errors.Is(err, domain.ErrPortfolioNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: list trades: %w", domain.ErrPersistenceFailure, err)
	}

	return &HistoryPage{Trades: trades, Page: page, Limit: limit, Total: total}, nil
}
