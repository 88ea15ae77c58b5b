package pricing

import (
	"context"
	"hash/fnv"
	"math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"
)

// Band is the range a simulated symbol's price stays within, and the
// sector market events address it by.
type Band struct {
	Low    float64
	High   float64
	Sector string
}

// DefaultBands are the well-known symbols of the dashboard's sample market.
// Any other symbol walks within GenericBand.
var DefaultBands = map[string]Band{
	"AAPL": {Low: 150, High: 180, Sector: "tech"},
	"GOOG": {Low: 100, High: 130, Sector: "tech"},
	"MSFT": {Low: 250, High: 300, Sector: "tech"},
}

// GenericBand applies to symbols without an entry in the band table.
var GenericBand = Band{Low: 10, High: 50}

// SimulatedOptions configures a SimulatedSource.
type SimulatedOptions struct {
	Seed    uint64
	MaxStep float64 // largest relative move per Step, e.g. 0.02
	Places  int32   // decimal places prices are rounded to
	Bands   map[string]Band
}

type walk struct {
	band  Band
	rng   *rand.Rand
	price float64
}

// SimulatedSource produces a bounded random walk per symbol. Each symbol
// draws from its own generator seeded by (Seed, symbol), so the sequence a
// symbol follows does not depend on which other symbols are priced.
type SimulatedSource struct {
	opts SimulatedOptions

	mu    sync.Mutex
	walks map[string]*walk
}

// NewSimulatedSource creates a SimulatedSource. Nil Bands means DefaultBands.
func NewSimulatedSource(opts SimulatedOptions) *SimulatedSource {
	if opts.Bands == nil {
		opts.Bands = DefaultBands
	}
	return &SimulatedSource{opts: opts, walks: make(map[string]*walk)}
}

func symbolStream(symbol string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return h.Sum64()
}

// walkFor returns the symbol's walk, starting it at a seeded point inside
// its band on first use. Callers hold s.mu.
func (s *SimulatedSource) walkFor(symbol string) *walk {
	if w, ok := s.walks[symbol]; ok {
		return w
	}
	band, ok := s.opts.Bands[symbol]
	if !ok {
		band = GenericBand
	}
	rng := rand.New(rand.NewPCG(s.opts.Seed, symbolStream(symbol)))
	w := &walk{
		band:  band,
		rng:   rng,
		price: band.Low + rng.Float64()*(band.High-band.Low),
	}
	s.walks[symbol] = w
	return w
}

func (s *SimulatedSource) PriceOf(_ context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.walkFor(symbol)
	return decimal.NewFromFloat(w.price).Round(s.opts.Places), nil
}

// Sector returns the sector the symbol is simulated in, or "" if it has none.
func (s *SimulatedSource) Sector(symbol string) string {
	return s.opts.Bands[symbol].Sector
}

// Step moves every started walk by a random relative amount in
// [-MaxStep, MaxStep] plus bias(symbol), keeping it inside its band.
// bias may be nil.
func (s *SimulatedSource) Step(bias func(symbol string) float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for symbol, w := range s.walks {
		move := (w.rng.Float64()*2 - 1) * s.opts.MaxStep
		if bias != nil {
			move += bias(symbol)
		}
		w.price = clamp(w.price*(1+move), w.band.Low, w.band.High)
	}
}

// Symbols returns the number of symbols with a started walk.
func (s *SimulatedSource) Symbols() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.walks)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
