package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/pricing"
	"github.com/efreitasn/portfolioledger/internal/store"
)

var marketEventTypes = []string{
	"Interest Rate Change",
	"Tech Sector Boom",
	"Global Recession Fear",
	"Major Company Earnings",
	"Oil Price Spike",
	"Geopolitical Tension",
}

var marketSentiments = []string{
	domain.SentimentPositive,
	domain.SentimentNegative,
	domain.SentimentNeutral,
}

var marketSectors = []string{"tech", "finance", "energy", domain.SectorAll}

// sentimentDrift is the relative price move an event adds to each affected
// symbol on top of the random step.
var sentimentDrift = map[string]float64{
	domain.SentimentPositive: 0.01,
	domain.SentimentNegative: -0.01,
	domain.SentimentNeutral:  0,
}

// MarketSimulator generates simulated market events and moves the
// simulated prices in response.
type MarketSimulator struct {
	prices *pricing.SimulatedSource
	events store.MarketEvents
	keep   int // 0 keeps everything
	logger *slog.Logger
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMarketSimulator creates a MarketSimulator whose event sequence is
// determined by seed.
func NewMarketSimulator(
	prices *pricing.SimulatedSource,
	events store.MarketEvents,
	seed uint64,
	keep int,
	logger *slog.Logger,
) *MarketSimulator {
	h := fnv.New64a()
	_, _ = h.Write([]byte("market-events"))
	return &MarketSimulator{
		prices: prices,
		events: events,
		keep:   keep,
		logger: logger,
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(seed, h.Sum64())),
	}
}

// Start schedules RunOnce on the cron spec and blocks until ctx is
// cancelled.
func (m *MarketSimulator) Start(ctx context.Context, spec string) error {
	return runScheduled(ctx, "market event", spec, m.logger, func(ctx context.Context) error {
		_, err := m.RunOnce(ctx)
		return err
	})
}

// next draws the next event. One or two distinct sectors are affected.
func (m *MarketSimulator) next() *domain.MarketEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	eventType := marketEventTypes[m.rng.IntN(len(marketEventTypes))]
	sentiment := marketSentiments[m.rng.IntN(len(marketSentiments))]
	order := m.rng.Perm(len(marketSectors))
	sectors := make([]string, 1+m.rng.IntN(2))
	for i := range sectors {
		sectors[i] = marketSectors[order[i]]
	}

	return &domain.MarketEvent{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		Description: fmt.Sprintf("Simulated event: %s impacting market sentiments.", eventType),
		Sentiment:   sentiment,
		Sectors:     sectors,
		EventDate:   m.now().UTC(),
	}
}

// RunOnce generates one event, steps the simulated prices with the event's
// drift applied to the sectors it affects, records the event and trims
// the feed.
func (m *MarketSimulator) RunOnce(ctx context.Context) (*domain.MarketEvent, error) {
	event := m.next()

	drift := sentimentDrift[event.Sentiment]
	m.prices.Step(func(symbol string) float64 {
		if event.Affects(m.prices.Sector(symbol)) {
			return drift
		}
		return 0
	})

	if err := m.events.Record(ctx, event); err != nil {
		return nil, fmt.Errorf("record market event: %w", err)
	}
	if m.keep > 0 {
		if _, err := m.events.Trim(ctx, m.keep); err != nil {
			return event, fmt.Errorf("trim market events: %w", err)
		}
	}

	m.logger.Info("market event generated",
		slog.String("event_type", event.EventType),
		slog.String("sentiment", event.Sentiment),
		slog.Any("sectors", event.Sectors),
		slog.Int("symbols", m.prices.Symbols()),
	)
	return event, nil
}
