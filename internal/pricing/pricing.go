// Package pricing supplies current share prices to the valuation engine.
package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

// Source returns the current price of a symbol. Implementations return an
// error wrapping domain.ErrPriceUnavailable when no price can be produced.
type Source interface {
	PriceOf(ctx context.Context, symbol string) (decimal.Decimal, error)
}

func unavailable(symbol, reason string) error {
	return fmt.Errorf("%w: %s: %s", domain.ErrPriceUnavailable, symbol, reason)
}

// StaticSource serves prices from a fixed table.
type StaticSource struct {
	prices map[string]decimal.Decimal
}

// NewStaticSource copies prices into a new StaticSource.
func NewStaticSource(prices map[string]decimal.Decimal) *StaticSource {
	s := &StaticSource{prices: make(map[string]decimal.Decimal, len(prices))}
	for sym, p := range prices {
		s.prices[sym] = p
	}
	return s
}

// ParseStaticPrices converts a symbol → price-string table, rejecting
// non-numeric and non-positive prices.
func ParseStaticPrices(raw map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for sym, v := range raw {
		p, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", sym, err)
		}
		if !p.IsPositive() {
			return nil, fmt.Errorf("price for %s must be > 0", sym)
		}
		out[sym] = p
	}
	return out, nil
}

func (s *StaticSource) PriceOf(_ context.Context, symbol string) (decimal.Decimal, error) {
	p, ok := s.prices[symbol]
	if !ok {
		return decimal.Zero, unavailable(symbol, "not in static table")
	}
	return p, nil
}

// Chain tries each source in order and returns the first price found.
type Chain []Source

func (c Chain) PriceOf(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var lastErr error = unavailable(symbol, "no sources configured")
	for _, src := range c {
		p, err := src.PriceOf(ctx, symbol)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	return decimal.Zero, lastErr
}
