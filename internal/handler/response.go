package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

// busyRetryAfter is the Retry-After hint, in seconds, sent with 409 busy.
const busyRetryAfter = 1

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{Error: errorCode, Message: message})
}

// writeServiceError maps an error returned by the service layer to its
// HTTP status and stable error code.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		rejectErr     *domain.RejectError
	)
	switch {
	case errors.As(err, &validationErr):
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
	case errors.As(err, &rejectErr):
		WriteError(w, http.StatusUnprocessableEntity, rejectErr.Code(), rejectErr.Message)
	case errors.Is(err, domain.ErrBusy):
		w.Header().Set("Retry-After", strconv.Itoa(busyRetryAfter))
		WriteError(w, http.StatusConflict, "busy", "Portfolio is processing another trade, retry shortly")
	case errors.Is(err, domain.ErrPersistenceFailure):
		w.Header().Set("Retry-After", strconv.Itoa(busyRetryAfter))
		WriteError(w, http.StatusServiceUnavailable, "persistence_failure", "The ledger could not be updated, retry shortly")
	case errors.Is(err, domain.ErrPortfolioNotFound):
		WriteError(w, http.StatusNotFound, "portfolio_not_found", "Portfolio not found")
	case errors.Is(err, domain.ErrWebhookNotFound):
		WriteError(w, http.StatusNotFound, "webhook_not_found", "Webhook not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// ParseJSON decodes the request body as JSON into v, rejecting unknown
// fields and trailing data.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return errors.New("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON: %v", err)
	}
	if dec.More() {
		return errors.New("Request body must contain a single JSON object")
	}
	return nil
}

// queryInt reads an optional integer query parameter, returning 0 when absent.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Message: name + " must be a valid integer"}
	}
	return n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
