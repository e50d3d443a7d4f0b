package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/TheDragonShaman/AuralArchive-sub002/internal/api"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/config"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/indexer/adapter"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/logger"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/scheduler"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/scheduler/tasks"
	"github.com/TheDragonShaman/AuralArchive-sub002/internal/search"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Local .env files override nothing already in the environment.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer log.Close()

	log.Info().
		Str("logLevel", cfg.Logging.Level).
		Int("configuredIndexers", len(cfg.Indexers)).
		Msg("AuralArchive starting")

	registry := adapter.NewRegistry()
	manager, err := indexer.NewManager(cfg, registry, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize indexers")
	}

	searchSvc := search.NewService(manager, log.Logger, search.Options{
		HistorySize:     cfg.Search.HistorySize,
		DisableVariants: !cfg.Search.VariantGeneration,
		LimitPerIndexer: cfg.Search.LimitPerIndexer,
	})

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	healthTask := tasks.NewIndexerHealthTask(manager, cfg.Search.HealthInterval(), log.Logger)
	if err := sched.RegisterTask(healthTask.Config()); err != nil {
		log.Fatal().Err(err).Msg("Failed to register health task")
	}
	sched.Start()

	server := api.NewServer(searchSvc, manager, log.Logger)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.Server.Address())
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("API server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("API server shutdown error")
	}
	if err := sched.Stop(); err != nil {
		log.Warn().Err(err).Msg("Scheduler shutdown error")
	}
	searchSvc.Shutdown()
	log.Info().Msg("AuralArchive stopped")
}
