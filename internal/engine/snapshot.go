package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/store"
)

// SnapshotNotifier is told about every recorded snapshot.
type SnapshotNotifier interface {
	SnapshotRecorded(s *domain.Snapshot)
}

// Snapshotter periodically values every portfolio and records the result.
type Snapshotter struct {
	ledger    store.Ledger
	valuer    *Valuer
	snapshots store.Snapshots
	retention time.Duration // 0 keeps everything
	notifier  SnapshotNotifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewSnapshotter creates a Snapshotter. notifier may be nil.
func NewSnapshotter(
	ledger store.Ledger,
	valuer *Valuer,
	snapshots store.Snapshots,
	retention time.Duration,
	notifier SnapshotNotifier,
	logger *slog.Logger,
) *Snapshotter {
	return &Snapshotter{
		ledger:    ledger,
		valuer:    valuer,
		snapshots: snapshots,
		retention: retention,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Start schedules RunOnce on the cron spec (with seconds field) and blocks
// until ctx is cancelled, then waits for a running pass to finish.
func (s *Snapshotter) Start(ctx context.Context, spec string) error {
	return runScheduled(ctx, "snapshot", spec, s.logger, func(ctx context.Context) error {
		_, err := s.RunOnce(ctx)
		return err
	})
}

// RunOnce records one snapshot per portfolio and prunes snapshots older
// than the retention window. A failure on one portfolio does not stop the
// pass; the errors are joined and returned with the number recorded.
func (s *Snapshotter) RunOnce(ctx context.Context) (int, error) {
	ids, err := s.ledger.ListPortfolioIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list portfolios: %w", err)
	}

	takenAt := s.now().UTC().Truncate(time.Second)
	recorded := 0
	var errs []error

	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		p, err := s.ledger.GetPortfolio(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("portfolio %s: %w", id, err))
			continue
		}
		val := s.valuer.Value(ctx, p)
		snap := &domain.Snapshot{
			PortfolioID: id,
			TakenAt:     takenAt,
			Balance:     val.Cash,
			TotalValue:  val.Total,
			Partial:     val.Partial,
		}
		if err := s.snapshots.Record(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("portfolio %s: %w", id, err))
			continue
		}
		recorded++
		if s.notifier != nil {
			s.notifier.SnapshotRecorded(snap)
		}
	}

	if s.retention > 0 {
		pruned, err := s.snapshots.Prune(ctx, takenAt.Add(-s.retention))
		if err != nil {
			errs = append(errs, fmt.Errorf("prune snapshots: %w", err))
		} else if pruned > 0 {
			s.logger.Debug("snapshots pruned", slog.Int("count", pruned))
		}
	}

	s.logger.Info("snapshot pass complete",
		slog.Int("portfolios", len(ids)),
		slog.Int("recorded", recorded),
	)
	return recorded, errors.Join(errs...)
}
