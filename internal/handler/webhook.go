package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/service"
)

// WebhookHandler handles HTTP requests for webhook endpoints.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// upsertWebhookRequest is the JSON request body for POST /webhooks.
type upsertWebhookRequest struct {
	PortfolioID string   `json:"portfolio_id"`
	URL         string   `json:"url"`
	Events      []string `json:"events"`
}

type webhookResponse struct {
	WebhookID   string `json:"webhook_id"`
	PortfolioID string `json:"portfolio_id"`
	Event       string `json:"event"`
	URL         string `json:"url"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// webhookListResponse is the JSON response for POST and GET /webhooks.
type webhookListResponse struct {
	Webhooks []webhookResponse `json:"webhooks"`
}

// Upsert handles POST /webhooks. It answers 201 if any subscription was
// created and 200 if all already existed.
func (h *WebhookHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertWebhookRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	webhooks, anyCreated, err := h.webhookSvc.Upsert(r.Context(), service.UpsertWebhookRequest{
		PortfolioID: req.PortfolioID,
		URL:         req.URL,
		Events:      req.Events,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if anyCreated {
		status = http.StatusCreated
	}
	WriteJSON(w, status, buildWebhookList(webhooks))
}

// List handles GET /webhooks?portfolio_id=.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	portfolioID := r.URL.Query().Get("portfolio_id")
	if portfolioID == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "portfolio_id query parameter is required")
		return
	}

	webhooks, err := h.webhookSvc.List(r.Context(), portfolioID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildWebhookList(webhooks))
}

// Delete handles DELETE /webhooks/{webhook_id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.webhookSvc.Delete(chi.URLParam(r, "webhook_id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildWebhookList(webhooks []*domain.Webhook) webhookListResponse {
	resp := webhookListResponse{Webhooks: make([]webhookResponse, len(webhooks))}
	for i, wh := range webhooks {
		resp.Webhooks[i] = webhookResponse{
			WebhookID:   wh.WebhookID,
			PortfolioID: wh.PortfolioID,
			Event:       wh.Event,
			URL:         wh.URL,
			CreatedAt:   formatTime(wh.CreatedAt),
			UpdatedAt:   formatTime(wh.UpdatedAt),
		}
	}
	return resp
}
