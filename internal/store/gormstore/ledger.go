package gormstore

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/store"
)

var _ store.Ledger = (*Ledger)(nil)

// Ledger is a store.Ledger persisted in PostgreSQL. Each commit is a
// single transaction guarded by an optimistic version check.
type Ledger struct {
	db *gorm.DB
}

// NewLedger wraps an open gorm connection.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) CreatePortfolio(ctx context.Context, p *domain.Portfolio) error {
	row := portfolioRow{
		ID:          p.ID,
		UserID:      p.UserID,
		Balance:     p.Balance,
		SeedBalance: p.SeedBalance,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrPortfolioExists
			}
			return err
		}
		for symbol, qty := range p.Positions {
			if err := tx.Create(&positionRow{PortfolioID: p.ID, Symbol: symbol, Quantity: qty}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// load reads the portfolio row and its positions in one read-only,
// repeatable-read transaction so the pair is consistent.
func (l *Ledger) load(ctx context.Context, where string, arg any) (*domain.Portfolio, error) {
	var p *domain.Portfolio
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row portfolioRow
		if err := tx.Where(where, arg).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPortfolioNotFound
			}
			return err
		}
		var positions []positionRow
		if err := tx.Where("portfolio_id = ?", row.ID).Find(&positions).Error; err != nil {
			return err
		}
		p = toPortfolio(row, positions)
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (l *Ledger) GetPortfolio(ctx context.Context, id string) (*domain.Portfolio, error) {
	return l.load(ctx, "id = ?", id)
}

func (l *Ledger) GetPortfolioByUser(ctx context.Context, userID string) (*domain.Portfolio, error) {
	return l.load(ctx, "user_id = ?", userID)
}

func (l *Ledger) ListPortfolioIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := l.db.WithContext(ctx).Model(&portfolioRow{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Commit updates the balance and version only if the stored version is the
// one next was derived from, upserts or deletes the traded symbol's
// position, and inserts the trade row, all in one transaction.
func (l *Ledger) Commit(ctx context.Context, next *domain.Portfolio, trade *domain.Trade) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&portfolioRow{}).
			Where("id = ? AND version = ?", next.ID, next.Version-1).
			Updates(map[string]any{
				"balance":    next.Balance,
				"version":    next.Version,
				"updated_at": next.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&portfolioRow{}).Where("id = ?", next.ID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return domain.ErrPortfolioNotFound
			}
			return domain.ErrVersionConflict
		}

		if qty := next.Positions[trade.Symbol]; qty > 0 {
			pos := positionRow{PortfolioID: next.ID, Symbol: trade.Symbol, Quantity: qty}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "portfolio_id"}, {Name: "symbol"}},
				DoUpdates: clause.AssignmentColumns([]string{"quantity"}),
			}).Create(&pos).Error
			if err != nil {
				return err
			}
		} else {
			err := tx.Where("portfolio_id = ? AND symbol = ?", next.ID, trade.Symbol).
				Delete(&positionRow{}).Error
			if err != nil {
				return err
			}
		}

		row := tradeRow{
			TradeID:     trade.TradeID,
			PortfolioID: trade.PortfolioID,
			Symbol:      trade.Symbol,
			Side:        string(trade.Side),
			Quantity:    trade.Quantity,
			Price:       trade.Price,
			ExecutedAt:  trade.ExecutedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		trade.Seq = row.Seq
		return nil
	})
}

// ListTrades checks the portfolio, counts matching trades and reads the
// page in one read-only, repeatable-read transaction so total and page
// agree with each other.
func (l *Ledger) ListTrades(ctx context.Context, portfolioID string, q store.TradeQuery) ([]*domain.Trade, int, error) {
	var (
		trades []*domain.Trade
		total  int64
	)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&portfolioRow{}).Where("id = ?", portfolioID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrPortfolioNotFound
		}

		filtered := func() *gorm.DB {
			query := tx.Model(&tradeRow{}).Where("portfolio_id = ?", portfolioID)
			if q.Symbol != "" {
				query = query.Where("symbol = ?", q.Symbol)
			}
			return query
		}

		if err := filtered().Count(&total).Error; err != nil {
			return err
		}

		start, end := store.PageBounds(int(total), q.Page, q.Limit)
		if end <= start {
			trades = []*domain.Trade{}
			return nil
		}

		var rows []tradeRow
		err := filtered().Order("executed_at ASC, seq ASC").
			Offset(start).
			Limit(end - start).
			Find(&rows).Error
		if err != nil {
			return err
		}

		trades = make([]*domain.Trade, len(rows))
		for i, row := range rows {
			trades[i] = toTrade(row)
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, 0, err
	}
	return trades, int(total), nil
}
