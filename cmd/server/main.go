// Package main is the entry point for the Folio portfolio analytics
// service. It wires the transaction store, the price oracle and the
// pipeline services together, then serves the analytics API over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/avasseur/folio/internal/clients/yahoo"
	"github.com/avasseur/folio/internal/config"
	"github.com/avasseur/folio/internal/database"
	"github.com/avasseur/folio/internal/modules/analytics"
	"github.com/avasseur/folio/internal/modules/enrichment"
	"github.com/avasseur/folio/internal/modules/overview"
	"github.com/avasseur/folio/internal/modules/transactions"
	"github.com/avasseur/folio/internal/scheduler"
	"github.com/avasseur/folio/internal/server"
	"github.com/avasseur/folio/pkg/logger"
)

func main() {
	// Load configuration first to get log level
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

	log.Info().Msg("Starting Folio")

	// Transaction store
	db, err := database.New(database.Config{
		Path: cfg.DatabasePath(),
		Name: "transactions",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	if err := transactions.Migrate(db.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}
	log.Info().Str("path", cfg.DatabasePath()).Msg("Database ready")

	// Optional transaction import at startup
	if cfg.ImportCSVPath != "" {
		if err := importTransactions(cfg.ImportCSVPath, db, log); err != nil {
			log.Fatal().Err(err).Str("path", cfg.ImportCSVPath).Msg("Failed to import transactions")
		}
	}

	// Pipeline services
	repository := transactions.NewRepository(db.Conn(), log)
	oracle := yahoo.NewOracle(yahoo.NewClient(cfg.YahooBaseURL, log))
	enricher := enrichment.New(oracle, log)
	overviewService := overview.NewService(repository, enricher, log)

	srv := server.New(server.Config{
		Log:             log,
		Port:            cfg.Port,
		DevMode:         cfg.DevMode,
		OverviewHandler: overview.NewHandler(overviewService, log),
		MetricsHandler:  analytics.NewHandler(log),
	})

	// Background snapshots, disabled unless a schedule is configured
	sched := scheduler.New(log)
	if cfg.SnapshotSchedule != "" {
		job := scheduler.NewSnapshotJob(overviewService, log)
		if err := sched.AddJob(cfg.SnapshotSchedule, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.SnapshotSchedule).Msg("Invalid snapshot schedule")
		}
		sched.Start()
		defer sched.Stop()
	}

	// Start HTTP server
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Wait for shutdown signal or server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	// Graceful shutdown with a deadline for in-flight requests
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// importTransactions loads a CSV file into the transaction store. The
// import is transactional, so a malformed file leaves the store
// untouched.
func importTransactions(path string, db *database.DB, log zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	importer := transactions.NewImporter(db.Conn(), log)
	imported, err := importer.Import(f)
	if err != nil {
		return err
	}
	log.Info().Int("rows", imported).Str("path", path).Msg("Transactions imported")
	return nil
}
