package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side indicates whether a trade buys or sells shares.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether s is BUY or SELL.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Trade is an immutable record of an executed BUY or SELL.
type Trade struct {
	TradeID     string
	PortfolioID string
	Symbol      string
	Side        Side
	Quantity    int64
	Price       decimal.Decimal // per share
	ExecutedAt  time.Time
	Seq         int64 // insertion order, breaks ExecutedAt ties
}

// Notional returns quantity × price.
func (t *Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// Before orders trades by execution time, then by insertion order.
func (t *Trade) Before(o *Trade) bool {
	if !t.ExecutedAt.Equal(o.ExecutedAt) {
		return t.ExecutedAt.Before(o.ExecutedAt)
	}
	return t.Seq < o.Seq
}
