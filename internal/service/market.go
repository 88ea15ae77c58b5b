package service

import (
	"context"
	"fmt"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/store"
)

const (
	defaultMarketEventLimit = 20
	maxMarketEventLimit     = 100
)

// MarketService reads the simulated market event feed.
type MarketService struct {
	events store.MarketEvents
}

// NewMarketService creates a new MarketService.
func NewMarketService(events store.MarketEvents) *MarketService {
	return &MarketService{events: events}
}

// Recent returns up to limit of the newest market events, newest first.
// A zero limit means the default of 20.
func (s *MarketService) Recent(ctx context.Context, limit int) ([]*domain.MarketEvent, error) {
	if limit == 0 {
		limit = defaultMarketEventLimit
	}
	if limit < 1 || limit > maxMarketEventLimit {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("limit must be between 1 and %d", maxMarketEventLimit),
		}
	}
	events, err := s.events.Latest(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list market events: %w", domain.ErrPersistenceFailure, err)
	}
	return events, nil
}
