// Package main is the entry point for the investfolio valuation service.
// The service maintains a transaction ledger, values multi-asset portfolios
// (stocks, crypto, Polish treasury bonds), builds daily snapshots and
// computes risk indicators over them.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/SzymonLiszewski/investfolio/internal/clientdata"
	"github.com/SzymonLiszewski/investfolio/internal/clients/exchangerate"
	"github.com/SzymonLiszewski/investfolio/internal/clients/marketdata"
	"github.com/SzymonLiszewski/investfolio/internal/config"
	"github.com/SzymonLiszewski/investfolio/internal/database"
	"github.com/SzymonLiszewski/investfolio/internal/modules/analytics"
	analyticshandlers "github.com/SzymonLiszewski/investfolio/internal/modules/analytics/handlers"
	"github.com/SzymonLiszewski/investfolio/internal/modules/assets"
	"github.com/SzymonLiszewski/investfolio/internal/modules/bonds"
	bondhandlers "github.com/SzymonLiszewski/investfolio/internal/modules/bonds/handlers"
	"github.com/SzymonLiszewski/investfolio/internal/modules/currency"
	currencyhandlers "github.com/SzymonLiszewski/investfolio/internal/modules/currency/handlers"
	"github.com/SzymonLiszewski/investfolio/internal/modules/economic"
	economichandlers "github.com/SzymonLiszewski/investfolio/internal/modules/economic/handlers"
	"github.com/SzymonLiszewski/investfolio/internal/modules/indicators"
	"github.com/SzymonLiszewski/investfolio/internal/modules/portfolio"
	portfoliohandlers "github.com/SzymonLiszewski/investfolio/internal/modules/portfolio/handlers"
	"github.com/SzymonLiszewski/investfolio/internal/modules/positions"
	"github.com/SzymonLiszewski/investfolio/internal/modules/prices"
	"github.com/SzymonLiszewski/investfolio/internal/modules/snapshots"
	"github.com/SzymonLiszewski/investfolio/internal/modules/transactions"
	transactionhandlers "github.com/SzymonLiszewski/investfolio/internal/modules/transactions/handlers"
	"github.com/SzymonLiszewski/investfolio/internal/modules/valuation"
	"github.com/SzymonLiszewski/investfolio/internal/scheduler"
	"github.com/SzymonLiszewski/investfolio/internal/server"
	"github.com/SzymonLiszewski/investfolio/pkg/logger"
)

// riskFreeRate is the annual risk-free rate used for Sharpe and Sortino.
const riskFreeRate = 0.01

// cleanupSchedule runs the client data cache cleanup at 03:00 daily.
const cleanupSchedule = "0 0 3 * * *"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting investfolio")

	// Databases. portfolio.db holds the ledger, positions and snapshots,
	// history.db holds price and economic time series, cache.db holds
	// client-side caches (exchange rates, current prices).
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileLedger,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{portfolioDB, historyDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("db", db.Name()).Msg("Failed to migrate database")
		}
	}

	// Repositories
	assetRepo := assets.NewRepository(portfolioDB.Conn(), log)
	txRepo := transactions.NewRepository(portfolioDB.Conn(), log)
	positionRepo := positions.NewRepository(portfolioDB.Conn(), log)
	snapshotRepo := snapshots.NewRepository(portfolioDB.Conn(), log)
	economicRepo := economic.NewRepository(historyDB.Conn(), log)
	priceRepo := prices.NewRepository(historyDB.Conn(), log)
	cacheRepo := clientdata.NewRepository(cacheDB.Conn())

	// External clients
	fxClient := exchangerate.NewClient(cfg.ExchangeRateURL, cacheRepo, log)
	marketClient := marketdata.NewClient(cfg.PriceServiceURL, log)

	// Services
	converter := currency.NewConverter(fxClient, log)
	bondCalc := bonds.NewCalculator(economicRepo, log)
	engine := valuation.NewEngine(bondCalc, converter, log)
	priceSvc := prices.NewService(priceRepo, marketClient, marketClient, cacheRepo, log)
	positionSvc := positions.NewService(positionRepo, txRepo, converter, log)
	snapshotBuilder := snapshots.NewBuilder(
		snapshotRepo, txRepo, assetRepo, priceSvc, engine, converter, cfg.BaseCurrency, log)
	txSvc := transactions.NewService(txRepo, assetRepo, positionSvc, priceSvc, snapshotBuilder, log)
	indicatorCalc := indicators.NewCalculator(riskFreeRate, log)
	analyticsSvc := analytics.NewService(priceSvc, log)
	portfolioSvc := portfolio.NewService(
		positionRepo, positionSvc, assetRepo, txRepo, priceSvc,
		snapshotRepo, engine, indicatorCalc, converter, cfg.BenchmarkSymbol, log)

	// Background jobs
	snapshotJob := snapshots.NewJob(snapshotBuilder, log)
	cleanupJob := clientdata.NewCleanupJob(cacheRepo, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.SnapshotSchedule, snapshotJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule snapshot job")
	}
	if err := sched.AddJob(cleanupSchedule, cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cleanup job")
	}
	sched.Start()
	defer sched.Stop()

	systemHandlers := server.NewSystemHandlers(cfg.DataDir, map[string]*database.DB{
		"portfolio": portfolioDB,
		"history":   historyDB,
		"cache":     cacheDB,
	}, log)
	systemHandlers.SetScheduler(sched, snapshotJob, cleanupJob)

	srv := server.New(server.Config{
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
		Log:          log,
		Portfolio:    portfoliohandlers.NewHandler(portfolioSvc, snapshotBuilder, cfg.BaseCurrency, log),
		Transactions: transactionhandlers.NewHandler(txSvc, log),
		Bonds:        bondhandlers.NewHandler(bondCalc, assetRepo, log),
		Currency:     currencyhandlers.NewHandler(converter, fxClient, log),
		Economic:     economichandlers.NewHandler(economicRepo, log),
		Analytics:    analyticshandlers.NewHandler(analyticsSvc, log),
		System:       systemHandlers,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
