package domain

import "time"

// Webhook event types.
const (
	EventTradeExecuted    = "trade.executed"
	EventSnapshotRecorded = "snapshot.recorded"
)

// Webhook represents a portfolio's subscription to an event notification.
type Webhook struct {
	WebhookID   string
	PortfolioID string
	Event       string
	URL         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
