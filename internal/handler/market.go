package handler

import (
	"net/http"

	"github.com/efreitasn/portfolioledger/internal/service"
)

// MarketHandler handles HTTP requests for the market event feed.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

type marketImpactResponse struct {
	OverallSentiment string   `json:"overall_sentiment"`
	SectorsAffected  []string `json:"sectors_affected"`
}

type marketEventResponse struct {
	EventID     string               `json:"event_id"`
	EventType   string               `json:"event_type"`
	Description string               `json:"description"`
	Impact      marketImpactResponse `json:"impact"`
	EventDate   string               `json:"event_date"`
}

type marketEventListResponse struct {
	Events []marketEventResponse `json:"events"`
}

// List handles GET /market-events?limit=.
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	events, err := h.marketSvc.Recent(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := marketEventListResponse{Events: make([]marketEventResponse, len(events))}
	for i, e := range events {
		resp.Events[i] = marketEventResponse{
			EventID:     e.EventID,
			EventType:   e.EventType,
			Description: e.Description,
			Impact: marketImpactResponse{
				OverallSentiment: e.Sentiment,
				SectorsAffected:  e.Sectors,
			},
			EventDate: formatTime(e.EventDate),
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}
