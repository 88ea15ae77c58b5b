package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is a user's simulated cash balance plus share positions.
type Portfolio struct {
	ID          string
	UserID      string
	Balance     decimal.Decimal  // never negative
	SeedBalance decimal.Decimal  // balance at creation, the replay origin
	Positions   map[string]int64 // symbol → quantity, entries are always > 0
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64 // incremented on every committed trade
}

// Held returns the quantity held for symbol, or 0 if there is no position.
func (p *Portfolio) Held(symbol string) int64 {
	return p.Positions[symbol]
}

// Symbols returns the held symbols in ascending order.
func (p *Portfolio) Symbols() []string {
	out := make([]string, 0, len(p.Positions))
	for s := range p.Positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy so callers never share the positions map.
func (p *Portfolio) Clone() *Portfolio {
	c := *p
	c.Positions = make(map[string]int64, len(p.Positions))
	for s, q := range p.Positions {
		c.Positions[s] = q
	}
	return &c
}
