package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/efreitasn/portfolioledger/internal/config"
	"github.com/efreitasn/portfolioledger/internal/domain"
	"github.com/efreitasn/portfolioledger/internal/engine"
	"github.com/efreitasn/portfolioledger/internal/handler"
	"github.com/efreitasn/portfolioledger/internal/pricing"
	"github.com/efreitasn/portfolioledger/internal/service"
	"github.com/efreitasn/portfolioledger/internal/store"
	"github.com/efreitasn/portfolioledger/internal/store/gormstore"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// Stores. The in-memory ledger is the default; DATABASE_DSN switches
	// the ledger, snapshot series and market events to PostgreSQL.
	var (
		ledger    store.Ledger
		snapshots store.Snapshots
		events    store.MarketEvents
		db        *gorm.DB
	)
	if cfg.DatabaseDSN != "" {
		db, err = gormstore.Open(gormstore.Options{
			DSN:             cfg.DatabaseDSN,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		ledger = gormstore.NewLedger(db)
		snapshots = gormstore.NewSnapshots(db)
		events = gormstore.NewMarketEvents(db)
		logger.Info("using postgres ledger")
	} else {
		ledger = store.NewMemoryLedger()
		snapshots = store.NewSnapshotStore()
		events = store.NewMarketEventStore()
		logger.Info("using in-memory ledger")
	}
	webhookStore := store.NewWebhookStore()

	// Pricing.
	seed := cfg.SimulationSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	var simulated *pricing.SimulatedSource
	if cfg.MarketSimulation {
		currency, err := domain.LookupCurrency(cfg.Currency)
		if err != nil {
			logger.Error("failed to configure prices", slog.String("error", err.Error()))
			os.Exit(1)
		}
		simulated = pricing.NewSimulatedSource(pricing.SimulatedOptions{
			Seed:    seed,
			MaxStep: cfg.SimulationMaxStep,
			Places:  int32(currency.Fraction),
		})
		logger.Info("market simulation enabled", slog.Uint64("seed", seed))
	}
	source, err := newPriceSource(cfg, simulated)
	if err != nil {
		logger.Error("failed to configure prices", slog.String("error", err.Error()))
		os.Exit(1)
	}
	lastKnown := pricing.NewLastKnown()
	fallback, err := engine.ParseFallback(cfg.ValuationFallback)
	if err != nil {
		logger.Error("failed to configure valuation", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Services (webhook first, it observes trades and snapshots).
	webhookSvc := service.NewWebhookService(webhookStore, ledger, cfg.WebhookTimeout, cfg.Currency, logger)

	// Engine.
	executor := engine.NewExecutor(ledger, engine.NewLocks(), cfg.LockTimeout, logger,
		engine.ObserveTradePrices(lastKnown),
		webhookSvc,
	)
	valuer := engine.NewValuer(source, lastKnown, fallback, cfg.ValuationConcurrency, logger)

	portfolioSvc := service.NewPortfolioService(ledger, executor, valuer, snapshots, cfg.SeedBalance, cfg.AutoCreate, logger)
	tradeSvc := service.NewTradeService(executor, ledger, cfg.Currency, cfg.HistoryDefaultLimit, cfg.HistoryMaxLimit)

	router := handler.NewRouter(handler.Services{
		Portfolios: portfolioSvc,
		Trades:     tradeSvc,
		Webhooks:   webhookSvc,
		Markets:    service.NewMarketService(events),
	}, cfg.Currency, logger)

	// Background jobs with cancellable context.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var jobs sync.WaitGroup
	if cfg.SnapshotsEnabled() {
		snapshotter := engine.NewSnapshotter(ledger, valuer, snapshots, cfg.SnapshotRetention, webhookSvc, logger)
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			if err := snapshotter.Start(ctx, cfg.SnapshotSchedule); err != nil {
				logger.Error("snapshot scheduler error", slog.String("error", err.Error()))
			}
		}()
		logger.Info("snapshots scheduled", slog.String("schedule", cfg.SnapshotSchedule))
	}

	if simulated != nil && cfg.MarketEventsEnabled() {
		market := engine.NewMarketSimulator(simulated, events, seed, cfg.MarketEventKeep, logger)
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			if err := market.Start(ctx, cfg.MarketEventSchedule); err != nil {
				logger.Error("market event scheduler error", slog.String("error", err.Error()))
			}
		}()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("currency", cfg.Currency))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, stop the background jobs, drain
	// webhook deliveries, then release the database.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()
	jobs.Wait()
	webhookSvc.Wait()

	if err := gormstore.Close(db); err != nil {
		logger.Error("database close error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// newPriceSource consults the configured static table first, then the
// HTTP quote endpoint if one is set, then the simulated market if enabled.
func newPriceSource(cfg *config.Config, simulated *pricing.SimulatedSource) (pricing.Source, error) {
	prices, err := pricing.ParseStaticPrices(cfg.StaticPrices)
	if err != nil {
		return nil, err
	}
	chain := pricing.Chain{pricing.NewStaticSource(prices)}
	if cfg.PriceSourceURL != "" {
		chain = append(chain, pricing.NewHTTPSource(cfg.PriceSourceURL, cfg.PriceTimeout, cfg.PriceCacheTTL))
	}
	if simulated != nil {
		chain = append(chain, simulated)
	}
	return chain, nil
}
