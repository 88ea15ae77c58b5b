package domain

import "errors"

// Sentinel errors for domain-level error handling. Each message is the
// stable reason code returned to API clients; the handler layer maps them
// to HTTP status codes.
var (
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrInsufficientFunds  = errors.New("insufficient_funds")
	ErrInsufficientShares = errors.New("insufficient_shares")
	ErrBusy               = errors.New("busy")
	ErrPersistenceFailure = errors.New("persistence_failure")
	ErrPriceUnavailable   = errors.New("price_unavailable")
	ErrPortfolioNotFound  = errors.New("portfolio_not_found")
	ErrPortfolioExists    = errors.New("portfolio_already_exists")
	ErrVersionConflict    = errors.New("version_conflict")
	ErrWebhookNotFound    = errors.New("webhook_not_found")
)

// RejectError is a trade rejection. It unwraps to one of the rejection
// sentinels so callers can match with errors.Is.
type RejectError struct {
	Reason  error
	Message string
}

func (e *RejectError) Error() string {
	return e.Message
}

func (e *RejectError) Unwrap() error {
	return e.Reason
}

// Code returns the stable reason code of the rejection.
func (e *RejectError) Code() string {
	return e.Reason.Error()
}

// Reject builds a RejectError for the given sentinel.
func Reject(reason error, message string) *RejectError {
	return &RejectError{Reason: reason, Message: message}
}

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Retryable reports whether the caller may retry the operation with backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrPersistenceFailure)
}
