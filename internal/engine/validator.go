package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

// Proposal is a trade requested against a portfolio, before validation.
type Proposal struct {
	Symbol   string
	Side     domain.Side
	Quantity int64
	Price    decimal.Decimal
}

// Validate checks a proposal against the portfolio's current state. It
// returns nil to accept, or a *domain.RejectError. It has no side effects.
func Validate(p *domain.Portfolio, prop Proposal) error {
	if prop.Quantity <= 0 {
		return domain.Reject(domain.ErrInvalidQuantity, "quantity must be a positive integer")
	}
	if !prop.Price.IsPositive() {
		return domain.Reject(domain.ErrInvalidPrice, "price must be greater than 0")
	}

	switch prop.Side {
	case domain.SideBuy:
		cost := prop.Price.Mul(decimal.NewFromInt(prop.Quantity))
		if cost.GreaterThan(p.Balance) {
			return domain.Reject(domain.ErrInsufficientFunds,
				fmt.Sprintf("buying %d %s costs %s, balance is %s", prop.Quantity, prop.Symbol, cost, p.Balance))
		}
	case domain.SideSell:
		if held := p.Held(prop.Symbol); held < prop.Quantity {
			return domain.Reject(domain.ErrInsufficientShares,
				fmt.Sprintf("selling %d %s, holding %d", prop.Quantity, prop.Symbol, held))
		}
	default:
		return &domain.ValidationError{Message: "side must be 'BUY' or 'SELL'"}
	}
	return nil
}
