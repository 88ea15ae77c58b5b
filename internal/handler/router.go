package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/efreitasn/portfolioledger/internal/service"
)

// Services groups the services the router dispatches to.
type Services struct {
	Portfolios *service.PortfolioService
	Trades     *service.TradeService
	Webhooks   *service.WebhookService
	Markets    *service.MarketService
}

// NewRouter creates a chi router with all routes registered, panic
// recovery, request logging, and Content-Type validation middleware.
func NewRouter(svcs Services, currency string, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	portfolioH := NewPortfolioHandler(svcs.Portfolios, currency)
	tradeH := NewTradeHandler(svcs.Trades)
	webhookH := NewWebhookHandler(svcs.Webhooks)
	marketH := NewMarketHandler(svcs.Markets)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/users/{user_id}/portfolio", portfolioH.GetForUser)

	r.Route("/portfolios/{portfolio_id}", func(r chi.Router) {
		r.Get("/", portfolioH.Get)
		r.Get("/trades", tradeH.List)
		r.Post("/trades", tradeH.Submit)
		r.Get("/snapshots", portfolioH.Snapshots)
		r.Get("/reconcile", portfolioH.Reconcile)
	})

	r.Post("/webhooks", webhookH.Upsert)
	r.Get("/webhooks", webhookH.List)
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

	r.Get("/market-events", marketH.List)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog. Server errors log at error level.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// contentTypeJSON rejects POST, PUT, and PATCH requests whose Content-Type
// is not application/json with 400 before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
