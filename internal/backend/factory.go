package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"apledger/internal/adapters"
	"apledger/internal/amqp"
	"apledger/internal/gateway"
	"apledger/internal/gateway/google"
	"apledger/internal/gateway/memory"
	"apledger/internal/gateway/yamlfile"
	applog "apledger/internal/log"
	"apledger/internal/storage"
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
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

// CreateBackend builds the primary gateway for config.Type, then wraps it
// with AMQP publishing (when configured) and the snapshot cache.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		primary gateway.Gateway
		closers []func() error
		err     error
	)
	switch config.Type {
	case MemoryBackend:
		primary, err = f.createMemoryBackend(config)
	case FileBackend:
		primary = yamlfile.New(config.FilePath)
		f.logger.Info("Initialized file backend", applog.FieldPath, config.FilePath)
	case SQLiteBackend:
		var repo *storage.SQLiteRepository
		repo, err = storage.NewSQLiteRepository(config.SQLitePath)
		if err == nil {
			primary = repo
			closers = append(closers, repo.Close)
			f.logger.Info("Initialized SQLite backend", "db_path", config.SQLitePath)
		}
	case SheetsBackend:
		primary, err = f.CreateMirror(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", config.Type, err)
	}

	result := &BackendResult{Gateway: primary}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue, config.AMQPAttempts)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Gateway = adapters.NewPublishing(result.Gateway, client)
			result.Publishing = true
			closers = append(closers, client.Close)
		}
	}

	if config.CacheTTL > 0 {
		result.Gateway = gateway.NewCached(result.Gateway, config.CacheTTL)
	}

	result.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return result, nil
}

// CreateMirror opens the Google Sheets gateway.
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (gateway.Gateway, error) {
	cli, err := google.New(ctx, config.Sheets)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.Sheets.SpreadsheetID)
	return cli, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (gateway.Gateway, error) {
	if config.MemorySeed == "" {
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	}
	store, err := memory.NewFromFile(config.MemorySeed)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Initialized memory backend", "seed", config.MemorySeed)
	return store, nil
}
