package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

func newTestSnapshot(portfolioID string, at time.Time, total int64) *domain.Snapshot {
	return &domain.Snapshot{
		PortfolioID: portfolioID,
		TakenAt:     at,
		Balance:     decimal.NewFromInt(total),
		TotalValue:  decimal.NewFromInt(total),
	}
}

func TestSnapshotStore_Latest(t *testing.T) {
	s := NewSnapshotStore()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		_ = s.Record(ctx, newTestSnapshot("p1", base.Add(time.Duration(i)*time.Minute), int64(i)))
	}

	got, err := s.Latest(ctx, "p1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(got))
	}
	for i, want := range []int64{2, 3, 4} {
		if !got[i].TotalValue.Equal(decimal.NewFromInt(want)) {
			t.Errorf("position %d: total %s, want %d", i, got[i].TotalValue, want)
		}
	}
}

func TestSnapshotStore_Latest_Empty(t *testing.T) {
	s := NewSnapshotStore()

	got, err := s.Latest(context.Background(), "none", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected non-nil empty slice, got %v", got)
	}
}

func TestSnapshotStore_Prune(t *testing.T) {
	s := NewSnapshotStore()
	ctx := context.Background()
	base := time.Now()

	_ = s.Record(ctx, newTestSnapshot("p1", base.Add(-2*time.Hour), 1))
	_ = s.Record(ctx, newTestSnapshot("p1", base, 2))
	_ = s.Record(ctx, newTestSnapshot("p2", base.Add(-3*time.Hour), 3))

	removed, err := s.Prune(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	p1, _ := s.Latest(ctx, "p1", 0)
	if len(p1) != 1 || !p1[0].TotalValue.Equal(decimal.NewFromInt(2)) {
		t.Errorf("p1 after prune = %v", p1)
	}
	if p2, _ := s.Latest(ctx, "p2", 0); len(p2) != 0 {
		t.Errorf("p2 should be empty after prune, got %d", len(p2))
	}
}
