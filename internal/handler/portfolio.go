package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/service"
)

const defaultSnapshotLimit = 100

// PortfolioHandler handles HTTP requests for portfolio endpoints.
type PortfolioHandler struct {
	portfolioSvc *service.PortfolioService
	currency     string
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioSvc *service.PortfolioService, currency string) *PortfolioHandler {
	return &PortfolioHandler{portfolioSvc: portfolioSvc, currency: currency}
}

// positionResponse is a single valued position.
type positionResponse struct {
	Symbol      string  `json:"symbol"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
	MarketValue float64 `json:"market_value"`
	PriceSource string  `json:"price_source"`
}

// unavailableResponse names a held symbol that had no live price.
type unavailableResponse struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// portfolioResponse is the portfolio read model.
type portfolioResponse struct {
	PortfolioID       string                `json:"portfolio_id"`
	UserID            string                `json:"user_id"`
	Currency          string                `json:"currency"`
	Balance           float64               `json:"balance"`
	BalanceDisplay    string                `json:"balance_display"`
	SeedBalance       float64               `json:"seed_balance"`
	Positions         []positionResponse    `json:"positions"`
	TotalValue        float64               `json:"total_value"`
	TotalValueDisplay string                `json:"total_value_display"`
	Partial           bool                  `json:"partial"`
	Unavailable       []unavailableResponse `json:"unavailable"`
	Version           int64                 `json:"version"`
	ValuedAt          string                `json:"valued_at"`
	CreatedAt         string                `json:"created_at"`
	UpdatedAt         string                `json:"updated_at"`
}

type snapshotResponse struct {
	TakenAt           string  `json:"taken_at"`
	Balance           float64 `json:"balance"`
	TotalValue        float64 `json:"total_value"`
	TotalValueDisplay string  `json:"total_value_display"`
	Partial           bool    `json:"partial"`
}

type snapshotListResponse struct {
	PortfolioID string             `json:"portfolio_id"`
	Snapshots   []snapshotResponse `json:"snapshots"`
}

type holdingsResponse struct {
	Balance   float64          `json:"balance"`
	Positions map[string]int64 `json:"positions"`
}

type reconcileResponse struct {
	PortfolioID string            `json:"portfolio_id"`
	Consistent  bool              `json:"consistent"`
	TradeCount  int               `json:"trade_count"`
	Stored      holdingsResponse  `json:"stored"`
	Replayed    *holdingsResponse `json:"replayed"`
	ReplayError string            `json:"replay_error,omitempty"`
	CheckedAt   string            `json:"checked_at"`
}

// GetForUser handles GET /users/{user_id}/portfolio.
func (h *PortfolioHandler) GetForUser(w http.ResponseWriter, r *http.Request) {
	view, created, err := h.portfolioSvc.ForUser(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	WriteJSON(w, status, h.buildPortfolioResponse(view))
}

// Get handles GET /portfolios/{portfolio_id}.
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.portfolioSvc.Get(r.Context(), chi.URLParam(r, "portfolio_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.buildPortfolioResponse(view))
}

// Snapshots handles GET /portfolios/{portfolio_id}/snapshots.
func (h *PortfolioHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolio_id")
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if limit == 0 {
		limit = defaultSnapshotLimit
	}

	snaps, err := h.portfolioSvc.Snapshots(r.Context(), portfolioID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := snapshotListResponse{
		PortfolioID: portfolioID,
		Snapshots:   make([]snapshotResponse, len(snaps)),
	}
	for i, s := range snaps {
		resp.Snapshots[i] = snapshotResponse{
			TakenAt:           formatTime(s.TakenAt),
			Balance:           domain.ToFloat(s.Balance),
			TotalValue:        domain.ToFloat(s.TotalValue),
			TotalValueDisplay: domain.FormatAmount(s.TotalValue, h.currency),
			Partial:           s.Partial,
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Reconcile handles GET /portfolios/{portfolio_id}/reconcile.
func (h *PortfolioHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.portfolioSvc.Reconcile(r.Context(), chi.URLParam(r, "portfolio_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := reconcileResponse{
		PortfolioID: rec.PortfolioID,
		Consistent:  rec.Consistent,
		TradeCount:  rec.TradeCount,
		Stored:      holdings(rec.Stored),
		ReplayError: rec.ReplayError,
		CheckedAt:   formatTime(rec.CheckedAt),
	}
	if rec.Replayed != nil {
		replayed := holdings(rec.Replayed)
		resp.Replayed = &replayed
	}
	WriteJSON(w, http.StatusOK, resp)
}

func holdings(p *domain.Portfolio) holdingsResponse {
	return holdingsResponse{Balance: domain.ToFloat(p.Balance), Positions: p.Positions}
}

func (h *PortfolioHandler) buildPortfolioResponse(view *service.PortfolioView) portfolioResponse {
	p, val := view.Portfolio, view.Valuation

	positions := make([]positionResponse, len(val.Positions))
	for i, pos := range val.Positions {
		positions[i] = positionResponse{
			Symbol:      pos.Symbol,
			Quantity:    pos.Quantity,
			Price:       domain.ToFloat(pos.Price),
			MarketValue: domain.ToFloat(pos.MarketValue),
			PriceSource: string(pos.Origin),
		}
	}

	unavailable := make([]unavailableResponse, len(val.Unavailable))
	for i, sym := range val.Unavailable {
		unavailable[i] = unavailableResponse{Symbol: sym, Error: domain.ErrPriceUnavailable.Error()}
	}

	return portfolioResponse{
		PortfolioID:       p.ID,
		UserID:            p.UserID,
		Currency:          h.currency,
		Balance:           domain.ToFloat(p.Balance),
		BalanceDisplay:    domain.FormatAmount(p.Balance, h.currency),
		SeedBalance:       domain.ToFloat(p.SeedBalance),
		Positions:         positions,
		TotalValue:        domain.ToFloat(val.Total),
		TotalValueDisplay: domain.FormatAmount(val.Total, h.currency),
		Partial:           val.Partial,
		Unavailable:       unavailable,
		Version:           p.Version,
		ValuedAt:          formatTime(val.ValuedAt),
		CreatedAt:         formatTime(p.CreatedAt),
		UpdatedAt:         formatTime(p.UpdatedAt),
	}
}

