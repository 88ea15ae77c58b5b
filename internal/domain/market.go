package domain

import "time"

// Market event sentiments.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// SectorAll marks an event that affects every symbol.
const SectorAll = "all"

// MarketEvent is a simulated market headline. Its sentiment nudges the
// simulated prices of the sectors it affects.
type MarketEvent struct {
	EventID     string
	EventType   string
	Description string
	Sentiment   string
	Sectors     []string
	EventDate   time.Time
	Seq         int64 // insertion order, breaks EventDate ties
}

// Affects reports whether the event touches sector.
func (e *MarketEvent) Affects(sector string) bool {
	for _, s := range e.Sectors {
		if s == SectorAll || s == sector {
			return true
		}
	}
	return false
}
