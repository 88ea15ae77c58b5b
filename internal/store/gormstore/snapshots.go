package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/store"
)

var _ store.Snapshots = (*Snapshots)(nil)

// Snapshots is a store.Snapshots persisted in PostgreSQL.
type Snapshots struct {
	db *gorm.DB
}

// NewSnapshots wraps an open gorm connection.
func NewSnapshots(db *gorm.DB) *Snapshots {
	return &Snapshots{db: db}
}

func (s *Snapshots) Record(ctx context.Context, snap *domain.Snapshot) error {
	row := snapshotRow{
		PortfolioID: snap.PortfolioID,
		TakenAt:     snap.TakenAt,
		Balance:     snap.Balance,
		TotalValue:  snap.TotalValue,
		Partial:     snap.Partial,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "portfolio_id"}, {Name: "taken_at"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "total_value", "partial"}),
	}).Create(&row).Error
}

func (s *Snapshots) Latest(ctx context.Context, portfolioID string, limit int) ([]*domain.Snapshot, error) {
	query := s.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("taken_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []snapshotRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.Snapshot, len(rows))
	for i, row := range rows {
		result[len(rows)-1-i] = toSnapshot(row)
	}
	return result, nil
}

func (s *Snapshots) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	res := s.db.WithContext(ctx).Where("taken_at < ?", cutoff).Delete(&snapshotRow{})
	return int(res.RowsAffected), res.Error
}
