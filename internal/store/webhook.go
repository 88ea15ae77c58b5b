package store

import (
	"sort"
	"sync"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

type subscriptionKey struct {
	portfolioID string
	event       string
}

// WebhookStore is a thread-safe in-memory store for webhook subscriptions.
// At most one subscription exists per (portfolio_id, event); webhook_id is
// a secondary index.
type WebhookStore struct {
	mu   sync.RWMutex
	subs map[subscriptionKey]*domain.Webhook
	byID map[string]subscriptionKey
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		subs: make(map[subscriptionKey]*domain.Webhook),
		byID: make(map[string]subscriptionKey),
	}
}

// Upsert stores w unless a subscription for the same portfolio and event
// exists, in which case only its URL and UpdatedAt change and its
// webhook_id is kept. It returns a copy of the stored subscription and
// whether it was newly created.
func (s *WebhookStore) Upsert(w *domain.Webhook) (*domain.Webhook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := subscriptionKey{portfolioID: w.PortfolioID, event: w.Event}
	if existing, ok := s.subs[key]; ok {
		if existing.URL != w.URL {
			existing.URL = w.URL
			existing.UpdatedAt = w.UpdatedAt
		}
		c := *existing
		return &c, false
	}

	stored := *w
	s.subs[key] = &stored
	s.byID[w.WebhookID] = key
	c := stored
	return &c, true
}

// Get returns the subscription with the given ID, or domain.ErrWebhookNotFound.
func (s *WebhookStore) Get(id string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrWebhookNotFound
	}
	c := *s.subs[key]
	return &c, nil
}

// Lookup returns the portfolio's subscription for event, or nil.
func (s *WebhookStore) Lookup(portfolioID, event string) *domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.subs[subscriptionKey{portfolioID: portfolioID, event: event}]
	if !ok {
		return nil
	}
	c := *w
	return &c
}

// ListByPortfolio returns the portfolio's subscriptions ordered by event.
func (s *WebhookStore) ListByPortfolio(portfolioID string) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Webhook, 0)
	for key, w := range s.subs {
		if key.portfolioID == portfolioID {
			c := *w
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Event < result[j].Event })
	return result
}

// Delete removes a subscription by ID, or returns domain.ErrWebhookNotFound.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.byID, id)
	delete(s.subs, key)
	return nil
}
