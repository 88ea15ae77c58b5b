package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/engine"
	"github.com/efreitasn/portfolioledger/internal/pricing"
	"github.com/efreitasn/portfolioledger/internal/store"
)

type testDeps struct {
	ledger     *store.MemoryLedger
	snapshots  *store.SnapshotStore
	webhooks   *store.WebhookStore
	lastKnown  *pricing.LastKnown
	executor   *engine.Executor
	portfolios *PortfolioService
	trades     *TradeService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestDeps wires the services over in-memory stores with ACME priced
// at 55 and auto-creation enabled.
func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	logger := discardLogger()
	d := &testDeps{
		ledger:    store.NewMemoryLedger(),
		snapshots: store.NewSnapshotStore(),
		webhooks:  store.NewWebhookStore(),
		lastKnown: pricing.NewLastKnown(),
	}
	d.executor = engine.NewExecutor(d.ledger, engine.NewLocks(), time.Second, logger,
		engine.ObserveTradePrices(d.lastKnown))
	src := pricing.NewStaticSource(map[string]decimal.Decimal{"ACME": dec("55")})
	valuer := engine.NewValuer(src, d.lastKnown, engine.FallbackLastKnown, 4, logger)
	d.portfolios = NewPortfolioService(d.ledger, d.executor, valuer, d.snapshots, dec("1000"), true, logger)
	d.trades = NewTradeService(d.executor, d.ledger, domain.DefaultCurrency, 20, 100)
	return d
}

// newPortfolio creates the user's portfolio and returns its ID.
func (d *testDeps) newPortfolio(t *testing.T, userID string) string {
	t.Helper()
	view, _, err := d.portfolios.ForUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("create portfolio: %v", err)
	}
	return view.Portfolio.ID
}

func (d *testDeps) mustTrade(t *testing.T, portfolioID string, side domain.Side, symbol string, qty int64, price string) *domain.Trade {
	t.Helper()
	tr, err := d.trades.Submit(context.Background(), SubmitTradeRequest{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		Side:        side,
		Quantity:    qty,
		Price:       dec(price),
	})
	if err != nil {
		t.Fatalf("trade %s %d %s @ %s: %v", side, qty, symbol, price, err)
	}
	return tr
}
