package pricing

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type observation struct {
	price decimal.Decimal
	at    time.Time
}

// LastKnown remembers the most recent price observed for each symbol,
// whether from a live quote or an executed trade.
type LastKnown struct {
	mu     sync.RWMutex
	prices map[string]observation
}

// NewLastKnown creates an empty LastKnown.
func NewLastKnown() *LastKnown {
	return &LastKnown{prices: make(map[string]observation)}
}

// Observe records price for symbol unless a newer observation exists.
func (l *LastKnown) Observe(symbol string, price decimal.Decimal, at time.Time) {
	if !price.IsPositive() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.prices[symbol]; ok && prev.at.After(at) {
		return
	}
	l.prices[symbol] = observation{price: price, at: at}
}

// Get returns the last observed price and when it was observed.
func (l *LastKnown) Get(symbol string) (decimal.Decimal, time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	o, ok := l.prices[symbol]
	return o.price, o.at, ok
}
