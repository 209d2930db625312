// Package main is the entry point for the portfoy portfolio-tracking server.
// It records buy/sell transactions, maintains average-cost positions,
// refreshes valuations from the market-data source, and serves aggregated
// profit/loss views over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ozank/portfoy/internal/clientdata"
	"github.com/ozank/portfoy/internal/clients/yahoo"
	"github.com/ozank/portfoy/internal/config"
	"github.com/ozank/portfoy/internal/database"
	"github.com/ozank/portfoy/internal/modules/goals"
	"github.com/ozank/portfoy/internal/modules/ledger"
	ledgerhandlers "github.com/ozank/portfoy/internal/modules/ledger/handlers"
	"github.com/ozank/portfoy/internal/modules/portfolio"
	portfoliohandlers "github.com/ozank/portfoy/internal/modules/portfolio/handlers"
	"github.com/ozank/portfoy/internal/modules/pricing"
	"github.com/ozank/portfoy/internal/modules/watchlist"
	"github.com/ozank/portfoy/internal/scheduler"
	"github.com/ozank/portfoy/internal/server"
	"github.com/ozank/portfoy/internal/session"
	"github.com/ozank/portfoy/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting portfoy")

	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfoy.db"),
		Profile: database.ProfileLedger,
		Name:    "portfoy",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}

	// Repositories
	cacheRepo := clientdata.NewRepository(db.Conn())
	txRepo := ledger.NewTransactionRepository(db.Conn(), log)
	positionRepo := portfolio.NewPositionRepository(db.Conn(), log)
	goalRepo := goals.NewRepository(db.Conn(), log)
	watchRepo := watchlist.NewRepository(db.Conn(), log)

	if err := watchRepo.SeedIfEmpty(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed watchlist")
	}

	// Services
	quoteClient := yahoo.NewClient(cfg.MarketDataURL, cacheRepo, cfg.QuoteTTL, log)
	pricingSvc := pricing.NewService(quoteClient, log)
	ledgerSvc := ledger.NewService(db.Conn(), txRepo, positionRepo, log)
	folioSvc := portfolio.NewService(positionRepo, pricingSvc, log)
	watchSvc := watchlist.NewService(watchRepo, quoteClient, log)
	sessions := session.NewManager()

	// Periodic price refresh
	sched := scheduler.New(log)
	refreshJob := scheduler.NewRefreshPricesJob(positionRepo, folioSvc, pricingSvc, log)
	if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}
	purgeJob := scheduler.NewPurgeCacheJob(cacheRepo, 7*24*time.Hour, log)
	if err := sched.AddJob("@daily", purgeJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache purge job")
	}
	sched.Start()

	// Positions should not show day-old prices until the first tick.
	go func() {
		if err := sched.RunNow(refreshJob); err != nil {
			log.Error().Err(err).Msg("Initial price refresh failed")
		}
	}()

	srv := server.New(server.Config{
		Port:              cfg.Port,
		DevMode:           cfg.DevMode,
		Log:               log,
		Sessions:          sessions,
		LedgerHandlers:    ledgerhandlers.NewHandler(ledgerSvc, log),
		PortfolioHandlers: portfoliohandlers.NewHandler(folioSvc, pricingSvc, goalRepo, log),
		GoalRepo:          goalRepo,
		Watchlist:         watchSvc,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
