package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time valuation of a portfolio, recorded by the
// snapshot job and used for the value-over-time series.
type Snapshot struct {
	PortfolioID string
	TakenAt     time.Time
	Balance     decimal.Decimal
	TotalValue  decimal.Decimal
	Partial     bool // at least one held symbol had no live price
}
