package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/pricing"
)

// Fallback selects the price used for a held symbol whose live price is
// unavailable.
type Fallback string

const (
	// FallbackLastKnown uses the most recent price observed for the symbol
	// (live quote or executed trade), or zero if none was ever observed.
	FallbackLastKnown Fallback = "last_known"
	// FallbackZero values the position at zero.
	FallbackZero Fallback = "zero"
)

// ParseFallback validates a configured fallback policy.
func ParseFallback(s string) (Fallback, error) {
	switch Fallback(s) {
	case FallbackLastKnown, FallbackZero:
		return Fallback(s), nil
	}
	return "", fmt.Errorf("unknown valuation fallback %q, must be one of: last_known, zero", s)
}

// PriceOrigin tells where the price used for a position came from.
type PriceOrigin string

const (
	OriginLive      PriceOrigin = "live"
	OriginLastKnown PriceOrigin = "last_known"
	OriginNone      PriceOrigin = "none"
)

// PositionValue is one valued position.
type PositionValue struct {
	Symbol      string
	Quantity    int64
	Price       decimal.Decimal
	MarketValue decimal.Decimal
	Origin      PriceOrigin
}

// Valuation is the result of valuing a portfolio.
type Valuation struct {
	PortfolioID string
	Cash        decimal.Decimal
	Positions   []PositionValue // ordered by symbol
	Total       decimal.Decimal
	Partial     bool     // true when any held symbol lacked a live price
	Unavailable []string // symbols without a live price
	ValuedAt    time.Time
}

// Valuer computes total = cash + Σ quantity × price.
type Valuer struct {
	source      pricing.Source
	lastKnown   *pricing.LastKnown
	fallback    Fallback
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewValuer creates a Valuer. source may be nil, in which case every held
// symbol falls back. concurrency bounds parallel price lookups.
func NewValuer(source pricing.Source, lastKnown *pricing.LastKnown, fallback Fallback, concurrency int, logger *slog.Logger) *Valuer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Valuer{
		source:      source,
		lastKnown:   lastKnown,
		fallback:    fallback,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Value prices every held symbol and totals the portfolio. It never
// fails: symbols without a live price are valued per the fallback policy
// and reported in Unavailable.
func (v *Valuer) Value(ctx context.Context, p *domain.Portfolio) *Valuation {
	symbols := p.Symbols()
	live := make([]decimal.Decimal, len(symbols))
	errs := make([]error, len(symbols))

	var g errgroup.Group
	g.SetLimit(v.concurrency)
	for i, sym := range symbols {
		g.Go(func() error {
			live[i], errs[i] = v.livePrice(ctx, sym)
			return nil
		})
	}
	_ = g.Wait()

	val := &Valuation{
		PortfolioID: p.ID,
		Cash:        p.Balance,
		Positions:   make([]PositionValue, 0, len(symbols)),
		Total:       p.Balance,
		Unavailable: []string{},
		ValuedAt:    v.now().UTC(),
	}

	for i, sym := range symbols {
		qty := p.Positions[sym]
		pv := PositionValue{Symbol: sym, Quantity: qty}

		if errs[i] == nil {
			pv.Price = live[i]
			pv.Origin = OriginLive
			if v.lastKnown != nil {
				v.lastKnown.Observe(sym, live[i], val.ValuedAt)
			}
		} else {
			v.logger.Warn("price unavailable",
				slog.String("portfolio_id", p.ID),
				slog.String("symbol", sym),
				slog.String("error", errs[i].Error()),
			)
			val.Partial = true
			val.Unavailable = append(val.Unavailable, sym)
			pv.Price, pv.Origin = v.fallbackPrice(sym)
		}

		pv.MarketValue = pv.Price.Mul(decimal.NewFromInt(qty))
		val.Total = val.Total.Add(pv.MarketValue)
		val.Positions = append(val.Positions, pv)
	}

	return val
}

func (v *Valuer) livePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if v.source == nil {
		return decimal.Zero, fmt.Errorf("%w: %s: no price source configured", domain.ErrPriceUnavailable, symbol)
	}
	price, err := v.source.PriceOf(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s: non-positive price %s", domain.ErrPriceUnavailable, symbol, price)
	}
	return price, nil
}

func (v *Valuer) fallbackPrice(symbol string) (decimal.Decimal, PriceOrigin) {
	if v.fallback == FallbackLastKnown && v.lastKnown != nil {
		if price, _, ok := v.lastKnown.Get(symbol); ok {
			return price, OriginLastKnown
		}
	}
	return decimal.Zero, OriginNone
}

// ObserveTradePrices returns a TradeObserver that records executed prices
// into lastKnown.
func ObserveTradePrices(lastKnown *pricing.LastKnown) TradeObserver {
	return TradeObserverFunc(func(_ *domain.Portfolio, t *domain.Trade) {
		lastKnown.Observe(t.Symbol, t.Price, t.ExecutedAt)
	})
}
