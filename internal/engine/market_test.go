package engine

import (
	"context"
	"testing"
	"time"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/pricing"
	"github.com/efreitasn/portfolioledger/internal/store"
)

func newTestMarket(seed uint64, keep int) (*MarketSimulator, *pricing.SimulatedSource, *store.MarketEventStore) {
	prices := pricing.NewSimulatedSource(pricing.SimulatedOptions{Seed: seed, MaxStep: 0, Places: 2})
	events := store.NewMarketEventStore()
	m := NewMarketSimulator(prices, events, seed, keep, discardLogger())
	m.now = func() time.Time { return time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC) }
	return m, prices, events
}

func TestMarketSimulator_RunOnceRecordsEvent(t *testing.T) {
	m, _, events := newTestMarket(9, 0)
	ctx := context.Background()

	e, err := m.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if e.EventID == "" || e.EventType == "" || len(e.Sectors) < 1 || len(e.Sectors) > 2 {
		t.Fatalf("malformed event %+v", e)
	}
	if _, ok := sentimentDrift[e.Sentiment]; !ok {
		t.Fatalf("unknown sentiment %q", e.Sentiment)
	}
	if len(e.Sectors) == 2 && e.Sectors[0] == e.Sectors[1] {
		t.Fatalf("duplicate sectors %v", e.Sectors)
	}

	got, _ := events.Latest(ctx, 0)
	if len(got) != 1 || got[0].EventID != e.EventID {
		t.Fatalf("event not recorded: %+v", got)
	}
}

func TestMarketSimulator_SameSeedSameEvents(t *testing.T) {
	a, _, _ := newTestMarket(5, 0)
	b, _, _ := newTestMarket(5, 0)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		ea, _ := a.RunOnce(ctx)
		eb, _ := b.RunOnce(ctx)
		if ea.EventType != eb.EventType || ea.Sentiment != eb.Sentiment || len(ea.Sectors) != len(eb.Sectors) {
			t.Fatalf("event %d differs: %+v vs %+v", i, ea, eb)
		}
	}
}

func TestMarketSimulator_DriftFollowsSentiment(t *testing.T) {
	m, prices, _ := newTestMarket(11, 0)
	ctx := context.Background()

	// With no random step, only the event drift moves prices.
	for i := 0; i < 20; i++ {
		before, _ := prices.PriceOf(ctx, "ACME")
		e, err := m.RunOnce(ctx)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		after, _ := prices.PriceOf(ctx, "ACME")

		switch {
		case !e.Affects(domain.SectorAll) || e.Sentiment == domain.SentimentNeutral:
			if !after.Equal(before) {
				t.Fatalf("ACME moved %s -> %s on %+v", before, after, e)
			}
		case e.Sentiment == domain.SentimentPositive:
			if after.LessThan(before) {
				t.Fatalf("ACME fell %s -> %s on positive %+v", before, after, e)
			}
		case e.Sentiment == domain.SentimentNegative:
			if after.GreaterThan(before) {
				t.Fatalf("ACME rose %s -> %s on negative %+v", before, after, e)
			}
		}
	}
}

func TestMarketSimulator_TrimsFeed(t *testing.T) {
	m, _, events := newTestMarket(1, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := m.RunOnce(ctx); err != nil {
			t.Fatalf("run: %v", err)
		}
	}
	got, _ := events.Latest(ctx, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 events kept, got %d", len(got))
	}
}

func TestMarketSimulator_StartRejectsBadSpec(t *testing.T) {
	m, _, _ := newTestMarket(1, 0)
	if err := m.Start(context.Background(), "whenever"); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}
