package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/ledger"
	"tally/internal/memory"
	"tally/internal/postgres"
	"tally/internal/services"
	"tally/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	amqpClient := f.connectAMQP(config)

	service := f.assemble(repo, amqpClient, repo)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	return &Result{
		Service: service,
		Cleanup: service.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := postgres.NewRepository(ctx, config.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
	}

	amqpClient := f.connectAMQP(config)

	service := f.assemble(repo, amqpClient, repo)

	f.logger.Info("Initialized Postgres backend", "amqp_enabled", amqpClient != nil)

	return &Result{
		Service: service,
		Cleanup: service.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(_ context.Context, config Config) (*Result, error) {
	store := memory.New()

	amqpClient := f.connectAMQP(config)

	service := f.assemble(store, amqpClient, nil)

	f.logger.Info("Initialized memory backend", "amqp_enabled", amqpClient != nil)

	return &Result{
		Service: service,
		Cleanup: service.Close,
	}, nil
}

// connectAMQP dials the broker when configured. A broken broker never blocks
// startup, the service runs without events instead.
func (f *DefaultFactory) connectAMQP(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}

	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

func (f *DefaultFactory) assemble(store ledger.Store, amqpClient *amqp.Client, storeCloser io.Closer) *services.LedgerService {
	var publisher services.EventPublisher
	closers := []io.Closer{storeCloser}
	if amqpClient != nil {
		publisher = amqpClient
		closers = append(closers, amqpClient)
	}
	return services.NewLedgerService(ledger.New(store), publisher, closers...)
}
