package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/config"
	"tally/internal/ledger"
	applog "tally/internal/log"
	"tally/internal/postgres"
	"tally/internal/services"
	"tally/internal/storage"
	"tally/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.DefaultConfig().Level,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting tally-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	}()

	// The worker only reads, no publisher needed
	service := services.NewLedgerService(ledger.New(store), nil)
	reportWorker := worker.NewReportWorker(service, cfg.ReportsDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Consume transaction events when a broker is configured. Without one
	// the timer below still keeps the current month fresh.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			return amqpClient.ConsumeTransactionEvents(ctx, func(msg *amqp.TransactionEventMessage) error {
				return reportWorker.HandleEvent(ctx, msg)
			})
		})
	} else {
		logger.Info("AMQP disabled, rebuilding on timer only")
	}

	g.Go(func() error {
		return reportWorker.RunPeriodic(ctx, cfg.RebuildInterval)
	})

	logger.Info("Worker running",
		"reports_dir", cfg.ReportsDir,
		"rebuild_interval", cfg.RebuildInterval.String(),
		"amqp_enabled", cfg.AMQPURL != "")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}

func openStore(cfg *config.Config) (ledger.Store, func() error, error) {
	switch cfg.DataBackend {
	case "postgres":
		repo, err := postgres.NewRepository(context.Background(), cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	}
}
