package backend

import (
	"context"
	"fmt"

	"horeca/internal/cache"
	"horeca/internal/log"
	"horeca/internal/sources/google"
	"horeca/internal/sources/memory"
	"horeca/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger

	// newSheets is replaced in tests.
	newSheets func(ctx context.Context, opts google.Options) (*google.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.FromContext(context.Background(), log.ComponentBackend)
	}
	return &DefaultFactory{
		logger:    logger.WithComponent(log.ComponentBackend),
		newSheets: google.New,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		res = f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.usesSheets() {
		if err := f.attachSheets(ctx, config, res); err != nil {
			_ = res.Cleanup()
			return nil, err
		}
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Ports: Ports{
			Raw:       repo,
			Ledger:    repo,
			Locations: repo,
			Labor:     repo,
			Revenue:   repo,
			PnL:       repo,
		},
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) *BackendResult {
	store := memory.New()
	f.logger.InfoContext(ctx, "Initialized memory backend")
	return &BackendResult{
		Ports: Ports{
			Raw:       store,
			Ledger:    store,
			Locations: store,
			Labor:     store,
			Revenue:   store,
			PnL:       store,
		},
		Cleanup: func() error { return nil },
	}
}

// attachSheets swaps in the spreadsheet as ledger and/or result source and
// starts a janitor that evicts expired cached ranges.
func (f *DefaultFactory) attachSheets(ctx context.Context, config Config, res *BackendResult) error {
	client, err := f.newSheets(ctx, google.Options{
		SpreadsheetID: config.GoogleSpreadsheetID,
		LedgerSheet:   config.LedgerSheetName,
		ResultSheet:   config.ResultSheetName,
		CacheTTL:      config.SheetsCacheTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	if config.Ledger == LedgerSheets {
		res.Ports.Ledger = client
		res.Ports.Locations = client
	}
	if config.ResultSheetName != "" {
		res.Ports.Expected = client
	}

	janitor := cache.NewJanitor()
	janitor.Register(client.Cache())
	if config.SheetsCacheTTL > 0 {
		janitor.Start(config.SheetsCacheTTL)
	}

	prev := res.Cleanup
	res.Cleanup = func() error {
		janitor.Stop()
		return prev()
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets source",
		"ledger", config.Ledger == LedgerSheets,
		"results", config.ResultSheetName != "")
	return nil
}
