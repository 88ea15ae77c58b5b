package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

func TestStaticSource(t *testing.T) {
	s := NewStaticSource(map[string]decimal.Decimal{"ACME": decimal.NewFromInt(55)})

	p, err := s.PriceOf(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Equal(decimal.NewFromInt(55)) {
		t.Errorf("price = %s, want 55", p)
	}

	_, err = s.PriceOf(context.Background(), "MISSING")
	if !errors.Is(err, domain.ErrPriceUnavailable) {
		t.Errorf("got %v, want ErrPriceUnavailable", err)
	}
}

func TestParseStaticPrices(t *testing.T) {
	got, err := ParseStaticPrices(map[string]string{"ACME": "55.10", "X": "3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got["ACME"].Equal(decimal.RequireFromString("55.1")) {
		t.Errorf("ACME = %s", got["ACME"])
	}

	for _, bad := range []map[string]string{
		{"ACME": "abc"},
		{"ACME": "0"},
		{"ACME": "-1"},
	} {
		if _, err := ParseStaticPrices(bad); err == nil {
			t.Errorf("ParseStaticPrices(%v) expected error", bad)
		}
	}
}

func TestChain_FirstHitWins(t *testing.T) {
	first := NewStaticSource(map[string]decimal.Decimal{"A": decimal.NewFromInt(1)})
	second := NewStaticSource(map[string]decimal.Decimal{"A": decimal.NewFromInt(2), "B": decimal.NewFromInt(3)})
	c := Chain{first, second}

	if p, _ := c.PriceOf(context.Background(), "A"); !p.Equal(decimal.NewFromInt(1)) {
		t.Errorf("A = %s, want 1", p)
	}
	if p, _ := c.PriceOf(context.Background(), "B"); !p.Equal(decimal.NewFromInt(3)) {
		t.Errorf("B = %s, want 3", p)
	}
	if _, err := c.PriceOf(context.Background(), "C"); !errors.Is(err, domain.ErrPriceUnavailable) {
		t.Errorf("C: got %v, want ErrPriceUnavailable", err)
	}
	if _, err := (Chain{}).PriceOf(context.Background(), "A"); !errors.Is(err, domain.ErrPriceUnavailable) {
		t.Errorf("empty chain: got %v, want ErrPriceUnavailable", err)
	}
}

func TestLastKnown_KeepsNewest(t *testing.T) {
	l := NewLastKnown()
	now := time.Now()

	l.Observe("ACME", decimal.NewFromInt(50), now)
	l.Observe("ACME", decimal.NewFromInt(40), now.Add(-time.Minute)) // older, ignored
	l.Observe("ACME", decimal.Zero, now.Add(time.Minute))            // non-positive, ignored

	p, at, ok := l.Get("ACME")
	if !ok {
		t.Fatal("expected a price")
	}
	if !p.Equal(decimal.NewFromInt(50)) || !at.Equal(now) {
		t.Errorf("got %s at %v, want 50 at %v", p, at, now)
	}

	l.Observe("ACME", decimal.NewFromInt(60), now.Add(time.Second))
	if p, _, _ := l.Get("ACME"); !p.Equal(decimal.NewFromInt(60)) {
		t.Errorf("got %s, want 60", p)
	}

	if _, _, ok := l.Get("NONE"); ok {
		t.Error("expected no price for unseen symbol")
	}
}
