package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/store"
)

var webhookEvents = []string{domain.EventTradeExecuted, domain.EventSnapshotRecorded}

func validWebhookEvent(event string) bool {
	for _, e := range webhookEvents {
		if e == event {
			return true
		}
	}
	return false
}

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	PortfolioID string
	URL         string
	Events      []string
}

// WebhookService handles webhook subscriptions and fire-and-forget event
// delivery. It observes executed trades and recorded snapshots.
type WebhookService struct {
	store    *store.WebhookStore
	ledger   store.Ledger
	client   *http.Client
	currency string
	logger   *slog.Logger
	inflight sync.WaitGroup
}

// NewWebhookService creates a new WebhookService with the given dependencies.
func NewWebhookService(
	webhookStore *store.WebhookStore,
	ledger store.Ledger,
	webhookTimeout time.Duration,
	currency string,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		store:    webhookStore,
		ledger:   ledger,
		client:   &http.Client{Timeout: webhookTimeout},
		currency: currency,
		logger:   logger,
	}
}

// Upsert validates the request and creates or updates one subscription per
// event. It returns the subscriptions and whether any was newly created.
func (s *WebhookService) Upsert(ctx context.Context, req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
	if err := s.portfolioExists(ctx, req.PortfolioID); err != nil {
		return nil, false, err
	}
	if err := validateWebhookURL(req.URL); err != nil {
		return nil, false, err
	}
	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	events := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !validWebhookEvent(event) {
			return nil, false, &domain.ValidationError{
				Message: fmt.Sprintf("unknown event type %q, must be one of: %s", event, strings.Join(webhookEvents, ", ")),
			}
		}
		dup := false
		for _, e := range events {
			dup = dup || e == event
		}
		if !dup {
			events = append(events, event)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(events))
	for _, event := range events {
		w, created := s.store.Upsert(&domain.Webhook{
			WebhookID:   uuid.New().String(),
			PortfolioID: req.PortfolioID,
			Event:       event,
			URL:         req.URL,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		anyCreated = anyCreated || created
		webhooks = append(webhooks, w)
	}
	return webhooks, anyCreated, nil
}

func validateWebhookURL(raw string) error {
	if raw == "" {
		return &domain.ValidationError{Message: "url is required"}
	}
	if len(raw) > 2048 {
		return &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return &domain.ValidationError{Message: "url must use https scheme"}
	}
	return nil
}

func (s *WebhookService) portfolioExists(ctx context.Context, portfolioID string) error {
	_, err := s.ledger.GetPortfolio(ctx, portfolioID)
	if err == nil || errors.Is(err, domain.ErrPortfolioNotFound) {
		return err
	}
	return fmt.Errorf("%w: load portfolio: %w", domain.ErrPersistenceFailure, err)
}

// List returns the portfolio's subscriptions.
func (s *WebhookService) List(ctx context.Context, portfolioID string) ([]*domain.Webhook, error) {
	if err := s.portfolioExists(ctx, portfolioID); err != nil {
		return nil, err
	}
	return s.store.ListByPortfolio(portfolioID), nil
}

// Delete removes a subscription by ID.
func (s *WebhookService) Delete(webhookID string) error {
	return s.store.Delete(webhookID)
}

type eventPayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

type tradeExecutedData struct {
	TradeID     string  `json:"trade_id"`
	PortfolioID string  `json:"portfolio_id"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
	Notional    float64 `json:"notional"`
	Balance     float64 `json:"balance"`
	Position    int64   `json:"position"`
}

type snapshotRecordedData struct {
	PortfolioID  string  `json:"portfolio_id"`
	Balance      float64 `json:"balance"`
	TotalValue   float64 `json:"total_value"`
	TotalDisplay string  `json:"total_value_display"`
	Partial      bool    `json:"partial"`
}

// TradeExecuted delivers trade.executed to the portfolio's subscription,
// if any. Fire-and-forget.
func (s *WebhookService) TradeExecuted(p *domain.Portfolio, t *domain.Trade) {
	wh := s.store.Lookup(t.PortfolioID, domain.EventTradeExecuted)
	if wh == nil {
		return
	}

	s.dispatch(wh, eventPayload{
		Event:     domain.EventTradeExecuted,
		Timestamp: t.ExecutedAt.UTC().Truncate(time.Second).Format(time.RFC3339),
		Data: tradeExecutedData{
			TradeID:     t.TradeID,
			PortfolioID: t.PortfolioID,
			Symbol:      t.Symbol,
			Side:        string(t.Side),
			Quantity:    t.Quantity,
			Price:       domain.ToFloat(t.Price),
			Notional:    domain.ToFloat(t.Notional()),
			Balance:     domain.ToFloat(p.Balance),
			Position:    p.Held(t.Symbol),
		},
	})
}

// SnapshotRecorded delivers snapshot.recorded to the portfolio's
// subscription, if any. Fire-and-forget.
func (s *WebhookService) SnapshotRecorded(snap *domain.Snapshot) {
	wh := s.store.Lookup(snap.PortfolioID, domain.EventSnapshotRecorded)
	if wh == nil {
		return
	}

	s.dispatch(wh, eventPayload{
		Event:     domain.EventSnapshotRecorded,
		Timestamp: snap.TakenAt.UTC().Format(time.RFC3339),
		Data: snapshotRecordedData{
			PortfolioID:  snap.PortfolioID,
			Balance:      domain.ToFloat(snap.Balance),
			TotalValue:   domain.ToFloat(snap.TotalValue),
			TotalDisplay: domain.FormatAmount(snap.TotalValue, s.currency),
			Partial:      snap.Partial,
		},
	})
}

func (s *WebhookService) dispatch(wh *domain.Webhook, payload eventPayload) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.deliver(wh, payload); err != nil {
			s.logger.Warn("webhook delivery failed",
				slog.String("webhook_id", wh.WebhookID),
				slog.String("event", payload.Event),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until every in-flight delivery has finished.
func (s *WebhookService) Wait() {
	s.inflight.Wait()
}

// deliver sends the payload via HTTP POST with the delivery headers.
func (s *WebhookService) deliver(wh *domain.Webhook, payload eventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", payload.Event)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return nil
}
