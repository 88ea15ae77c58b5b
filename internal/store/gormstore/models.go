package gormstore

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

type portfolioRow struct {
	ID          string          `gorm:"primaryKey;type:varchar(64)"`
	UserID      string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Balance     decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	SeedBalance decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Version     int64           `gorm:"not null;default:0"`
	CreatedAt   time.Time       `gorm:"type:timestamptz;not null"`
	UpdatedAt   time.Time       `gorm:"type:timestamptz;not null"`
}

func (portfolioRow) TableName() string {
	return "portfolios"
}

type positionRow struct {
	PortfolioID string `gorm:"primaryKey;type:varchar(64)"`
	Symbol      string `gorm:"primaryKey;type:varchar(16)"`
	Quantity    int64  `gorm:"not null"`
}

func (positionRow) TableName() string {
	return "positions"
}

type tradeRow struct {
	Seq         int64           `gorm:"primaryKey;autoIncrement"`
	TradeID     string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	PortfolioID string          `gorm:"type:varchar(64);not null;index:idx_trades_portfolio_executed,priority:1"`
	Symbol      string          `gorm:"type:varchar(16);not null"`
	Side        string          `gorm:"type:varchar(4);not null"`
	Quantity    int64           `gorm:"not null"`
	Price       decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	ExecutedAt  time.Time       `gorm:"type:timestamptz;not null;index:idx_trades_portfolio_executed,priority:2"`
}

func (tradeRow) TableName() string {
	return "trades"
}

type snapshotRow struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	PortfolioID string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_snapshots_portfolio_taken,priority:1"`
	TakenAt     time.Time       `gorm:"type:timestamptz;not null;uniqueIndex:idx_snapshots_portfolio_taken,priority:2"`
	Balance     decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	TotalValue  decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Partial     bool            `gorm:"not null;default:false"`
}

func (snapshotRow) TableName() string {
	return "portfolio_snapshots"
}

type marketEventRow struct {
	Seq         int64     `gorm:"primaryKey;autoIncrement"`
	EventID     string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	EventType   string    `gorm:"type:varchar(64);not null"`
	Description string    `gorm:"type:text;not null"`
	Sentiment   string    `gorm:"type:varchar(16);not null"`
	Sectors     string    `gorm:"type:varchar(128);not null"` // comma separated
	EventDate   time.Time `gorm:"type:timestamptz;not null;index"`
}

func (marketEventRow) TableName() string {
	return "market_events"
}

func toPortfolio(row portfolioRow, positions []positionRow) *domain.Portfolio {
	p := &domain.Portfolio{
		ID:          row.ID,
		UserID:      row.UserID,
		Balance:     row.Balance,
		SeedBalance: row.SeedBalance,
		Positions:   make(map[string]int64, len(positions)),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		Version:     row.Version,
	}
	for _, pos := range positions {
		p.Positions[pos.Symbol] = pos.Quantity
	}
	return p
}

func toTrade(row tradeRow) *domain.Trade {
	return &domain.Trade{
		TradeID:     row.TradeID,
		PortfolioID: row.PortfolioID,
		Symbol:      row.Symbol,
		Side:        domain.Side(row.Side),
		Quantity:    row.Quantity,
		Price:       row.Price,
		ExecutedAt:  row.ExecutedAt,
		Seq:         row.Seq,
	}
}

func toSnapshot(row snapshotRow) *domain.Snapshot {
	return &domain.Snapshot{
		PortfolioID: row.PortfolioID,
		TakenAt:     row.TakenAt,
		Balance:     row.Balance,
		TotalValue:  row.TotalValue,
		Partial:     row.Partial,
	}
}

func toMarketEvent(row marketEventRow) *domain.MarketEvent {
	var sectors []string
	if row.Sectors != "" {
		sectors = strings.Split(row.Sectors, ",")
	}
	return &domain.MarketEvent{
		EventID:     row.EventID,
		EventType:   row.EventType,
		Description: row.Description,
		Sentiment:   row.Sentiment,
		Sectors:     sectors,
		EventDate:   row.EventDate,
		Seq:         row.Seq,
	}
}
