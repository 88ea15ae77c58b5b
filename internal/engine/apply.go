package engine

import (
	"fmt"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

// Apply returns the state that results from executing trade on p. p is not
// modified. The trade must already have been accepted by Validate.
func Apply(p *domain.Portfolio, trade *domain.Trade) *domain.Portfolio {
	next := p.Clone()
	notional := trade.Notional()

	switch trade.Side {
	case domain.SideBuy:
		next.Balance = next.Balance.Sub(notional)
		next.Positions[trade.Symbol] += trade.Quantity
	case domain.SideSell:
		next.Balance = next.Balance.Add(notional)
		next.Positions[trade.Symbol] -= trade.Quantity
		if next.Positions[trade.Symbol] == 0 {
			delete(next.Positions, trade.Symbol)
		}
	}

	next.Version++
	next.UpdatedAt = trade.ExecutedAt
	return next
}

// Replay rebuilds a portfolio from its seed balance by validating and
// applying trades in order. It fails on the first trade the rebuilt state
// would have rejected.
func Replay(origin *domain.Portfolio, trades []*domain.Trade) (*domain.Portfolio, error) {
	state := &domain.Portfolio{
		ID:          origin.ID,
		UserID:      origin.UserID,
		Balance:     origin.SeedBalance,
		SeedBalance: origin.SeedBalance,
		Positions:   make(map[string]int64),
		CreatedAt:   origin.CreatedAt,
		UpdatedAt:   origin.CreatedAt,
	}

	for i, t := range trades {
		prop := Proposal{Symbol: t.Symbol, Side: t.Side, Quantity: t.Quantity, Price: t.Price}
		if err := Validate(state, prop); err != nil {
			return nil, fmt.Errorf("replay trade %d (%s): %w", i, t.TradeID, err)
		}
		state = Apply(state, t)
	}
	return state, nil
}

// SameHoldings reports whether a and b have equal balances and positions.
func SameHoldings(a, b *domain.Portfolio) bool {
	if !a.Balance.Equal(b.Balance) || len(a.Positions) != len(b.Positions) {
		return false
	}
	for sym, q := range a.Positions {
		if b.Positions[sym] != q {
			return false
		}
	}
	return true
}
