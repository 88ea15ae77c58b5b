package store

import (
	"context"
	"testing"
	"time"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

func newTestEvent(eventType string, at time.Time) *domain.MarketEvent {
	return &domain.MarketEvent{
		EventID:   eventType,
		EventType: eventType,
		Sentiment: domain.SentimentNeutral,
		Sectors:   []string{"tech"},
		EventDate: at,
	}
}

func TestMarketEventStore_LatestNewestFirst(t *testing.T) {
	s := NewMarketEventStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	_ = s.Record(ctx, newTestEvent("first", base))
	_ = s.Record(ctx, newTestEvent("tie-a", base.Add(time.Minute)))
	_ = s.Record(ctx, newTestEvent("tie-b", base.Add(time.Minute)))

	got, err := s.Latest(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].EventType != "tie-b" || got[1].EventType != "tie-a" {
		t.Fatalf("unexpected order %+v", got)
	}
	if got[0].Seq != 3 {
		t.Errorf("expected seq 3, got %d", got[0].Seq)
	}

	got[0].Sectors[0] = "mutated"
	again, _ := s.Latest(ctx, 1)
	if again[0].Sectors[0] != "tech" {
		t.Error("Latest returned shared sectors slice")
	}
}

func TestMarketEventStore_Trim(t *testing.T) {
	s := NewMarketEventStore()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_ = s.Record(ctx, newTestEvent("e", base.Add(time.Duration(i)*time.Minute)))
	}

	removed, err := s.Trim(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	got, _ := s.Latest(ctx, 0)
	if len(got) != 2 || !got[1].EventDate.Equal(base.Add(3*time.Minute)) {
		t.Fatalf("expected the 2 newest events, got %+v", got)
	}
}
