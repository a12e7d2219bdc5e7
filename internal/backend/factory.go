package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finsight/internal/amqp"
	"finsight/internal/storage"
	"finsight/internal/store/memory"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	result := &BackendResult{Store: repo, Ready: repo.Ping}
	closers := []func() error{repo.Close}

	if client := f.connectAMQP(config); client != nil {
		result.Publisher = client
		closers = append([]func() error{client.Close}, closers...)
	}
	result.Cleanup = func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", result.Publisher != nil)
	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	result := &BackendResult{
		Store: memory.New(),
		Ready: func(context.Context) error { return nil },
	}
	if config.AMQPURL != "" {
		// Memory ids are not visible to the worker's store.
		f.logger.Warn("AMQP publishing ignored for memory backend")
	}
	f.logger.Info("Initialized memory backend")
	return result, nil
}

// connectAMQP returns nil when AMQP is disabled or unreachable; the server
// keeps accepting writes and the worker's sweep picks up pending rows.
func (f *DefaultFactory) connectAMQP(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
