package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/service"
)

// TradeHandler handles HTTP requests for trade endpoints.
type TradeHandler struct {
	tradeSvc *service.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// submitTradeRequest is the JSON request body for POST
// /portfolios/{portfolio_id}/trades. Price may be a number or a string.
type submitTradeRequest struct {
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Side     string          `json:"side"`
}

type tradeResponse struct {
	TradeID     string  `json:"trade_id"`
	PortfolioID string  `json:"portfolio_id"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
	Notional    float64 `json:"notional"`
	ExecutedAt  string  `json:"executed_at"`
}

type tradeListResponse struct {
	Trades []tradeResponse `json:"trades"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

// Submit handles POST /portfolios/{portfolio_id}/trades.
func (h *TradeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	trade, err := h.tradeSvc.Submit(r.Context(), service.SubmitTradeRequest{
		PortfolioID: chi.URLParam(r, "portfolio_id"),
		Symbol:      req.Symbol,
		Side:        domain.Side(req.Side),
		Quantity:    req.Quantity,
		Price:       req.Price,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildTradeResponse(trade))
}

// List handles GET /portfolios/{portfolio_id}/trades.
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.tradeSvc.History(r.Context(), service.HistoryRequest{
		PortfolioID: chi.URLParam(r, "portfolio_id"),
		Symbol:      r.URL.Query().Get("symbol"),
		Limit:       limit,
		Page:        page,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	trades := make([]tradeResponse, len(result.Trades))
	for i, t := range result.Trades {
		trades[i] = buildTradeResponse(t)
	}
	WriteJSON(w, http.StatusOK, tradeListResponse{
		Trades: trades,
		Total:  result.Total,
		Page:   result.Page,
		Limit:  result.Limit,
	})
}

func buildTradeResponse(t *domain.Trade) tradeResponse {
	return tradeResponse{
		TradeID:     t.TradeID,
		PortfolioID: t.PortfolioID,
		Symbol:      t.Symbol,
		Side:        string(t.Side),
		Quantity:    t.Quantity,
		Price:       domain.ToFloat(t.Price),
		Notional:    domain.ToFloat(t.Notional()),
		ExecutedAt:  t.ExecutedAt.UTC().Format(time.RFC3339Nano),
	}
}
