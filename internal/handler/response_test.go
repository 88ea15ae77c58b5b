package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]string{"status": "ok"})

	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want %q", got, "application/json")
	}
	if w.Code != http.StatusCreated {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusCreated)
	}
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("body status = %q, want %q", result["status"], "ok")
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		code       string
		retryAfter bool
	}{
		{"validation", &domain.ValidationError{Message: "bad"}, http.StatusBadRequest, "validation_error", false},
		{"insufficient funds", domain.Reject(domain.ErrInsufficientFunds, "no cash"), http.StatusUnprocessableEntity, "insufficient_funds", false},
		{"insufficient shares", domain.Reject(domain.ErrInsufficientShares, "no shares"), http.StatusUnprocessableEntity, "insufficient_shares", false},
		{"invalid price", domain.Reject(domain.ErrInvalidPrice, "zero"), http.StatusUnprocessableEntity, "invalid_price", false},
		{"invalid quantity", domain.Reject(domain.ErrInvalidQuantity, "zero"), http.StatusUnprocessableEntity, "invalid_quantity", false},
		{"busy", fmt.Errorf("%w: %w", domain.ErrBusy, errors.New("deadline")), http.StatusConflict, "busy", true},
		{"persistence", fmt.Errorf("%w: commit: disk", domain.ErrPersistenceFailure), http.StatusServiceUnavailable, "persistence_failure", true},
		{"portfolio not found", domain.ErrPortfolioNotFound, http.StatusNotFound, "portfolio_not_found", false},
		{"webhook not found", domain.ErrWebhookNotFound, http.StatusNotFound, "webhook_not_found", false},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeServiceError(w, tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp errorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if resp.Error != tt.code {
				t.Errorf("error = %q, want %q", resp.Error, tt.code)
			}
			if got := w.Header().Get("Retry-After") != ""; got != tt.retryAfter {
				t.Errorf("Retry-After present = %v, want %v", got, tt.retryAfter)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     string
	}{
		{"valid", "application/json", `{"name":"test"}`, ""},
		{"charset", "application/json; charset=utf-8", `{"name":"test"}`, ""},
		{"missing content type", "", `{"name":"test"}`, "Content-Type"},
		{"wrong content type", "text/plain", `{"name":"test"}`, "Content-Type"},
		{"malformed", "application/json", `{"name":`, "valid JSON"},
		{"unknown field", "application/json", `{"name":"a","extra":1}`, "valid JSON"},
		{"trailing object", "application/json", `{"name":"a"}{"name":"b"}`, "single JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}

			var p payload
			err := ParseJSON(r, &p)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if p.Name != "test" {
					t.Errorf("name = %q, want %q", p.Name, "test")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=5&page=x", nil)

	if n, err := queryInt(r, "limit"); err != nil || n != 5 {
		t.Errorf("limit = %d, %v; want 5, nil", n, err)
	}
	if n, err := queryInt(r, "missing"); err != nil || n != 0 {
		t.Errorf("missing = %d, %v; want 0, nil", n, err)
	}
	var ve *domain.ValidationError
	if _, err := queryInt(r, "page"); !errors.As(err, &ve) {
		t.Errorf("page: expected ValidationError, got %v", err)
	}
}
