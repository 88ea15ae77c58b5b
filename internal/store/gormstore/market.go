package gormstore

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/store"
)

var _ store.MarketEvents = (*MarketEvents)(nil)

// MarketEvents is a store.MarketEvents persisted in PostgreSQL.
type MarketEvents struct {
	db *gorm.DB
}

// NewMarketEvents wraps an open gorm connection.
func NewMarketEvents(db *gorm.DB) *MarketEvents {
	return &MarketEvents{db: db}
}

func (m *MarketEvents) Record(ctx context.Context, e *domain.MarketEvent) error {
	row := marketEventRow{
		EventID:     e.EventID,
		EventType:   e.EventType,
		Description: e.Description,
		Sentiment:   e.Sentiment,
		Sectors:     strings.Join(e.Sectors, ","),
		EventDate:   e.EventDate,
	}
	if err := m.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	e.Seq = row.Seq
	return nil
}

func (m *MarketEvents) Latest(ctx context.Context, limit int) ([]*domain.MarketEvent, error) {
	query := m.db.WithContext(ctx).Order("event_date DESC, seq DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []marketEventRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.MarketEvent, len(rows))
	for i, row := range rows {
		result[i] = toMarketEvent(row)
	}
	return result, nil
}

func (m *MarketEvents) Trim(ctx context.Context, keep int) (int, error) {
	db := m.db.WithContext(ctx)
	newest := db.Model(&marketEventRow{}).
		Select("seq").
		Order("event_date DESC, seq DESC").
		Limit(keep)
	res := db.Where("seq NOT IN (?)", newest).Delete(&marketEventRow{})
	return int(res.RowsAffected), res.Error
}
