package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newPortfolio(id string, balance string) *domain.Portfolio {
	b := dec(balance)
	created := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	return &domain.Portfolio{
		ID:          id,
		UserID:      "user-" + id,
		Balance:     b,
		SeedBalance: b,
		Positions:   map[string]int64{},
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

// fataler is satisfied by both *testing.T and *rapid.T.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// newTestExecutor returns an executor over a fresh MemoryLedger holding
// one portfolio "p1" with the given balance.
func newTestExecutor(t fataler, balance string) (*Executor, *store.MemoryLedger) {
	t.Helper()
	ledger := store.NewMemoryLedger()
	if err := ledger.CreatePortfolio(context.Background(), newPortfolio("p1", balance)); err != nil {
		t.Fatalf("create portfolio: %v", err)
	}
	return NewExecutor(ledger, NewLocks(), time.Second, discardLogger()), ledger
}

func buy(symbol string, qty int64, price string) Proposal {
	return Proposal{Symbol: symbol, Side: domain.SideBuy, Quantity: qty, Price: dec(price)}
}

func sell(symbol string, qty int64, price string) Proposal {
	return Proposal{Symbol: symbol, Side: domain.SideSell, Quantity: qty, Price: dec(price)}
}

// rejectCode returns the reason code of a *domain.RejectError, or "".
func rejectCode(err error) string {
	var rej *domain.RejectError
	if errors.As(err, &rej) {
		return rej.Code()
	}
	return ""
}

// failingLedger wraps a Ledger and fails every Commit.
type failingLedger struct {
	store.Ledger
	commitErr error
}

func (f *failingLedger) Commit(context.Context, *domain.Portfolio, *domain.Trade) error {
	return f.commitErr
}
