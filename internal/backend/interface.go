package backend

import (
	"context"
	"time"

	"horeca/internal/services"
	"horeca/internal/sources"
)

// Ports is the set of readers and writers a backend provides. Expected is
// nil when no stated results are configured.
type Ports struct {
	Raw       sources.RawRecordReader
	Ledger    sources.LedgerReader
	Locations sources.LedgerLocationLister
	Labor     sources.LaborAggregateWriter
	Revenue   sources.RevenueAggregateWriter
	PnL       sources.PnLWriter
	Expected  sources.ExpectedResultSource
}

// Dependencies returns the service wiring for these ports.
func (p Ports) Dependencies(publisher sources.CompletionPublisher) services.Dependencies {
	return services.Dependencies{
		Raw:       p.Raw,
		Ledger:    p.Ledger,
		Locations: p.Locations,
		Labor:     p.Labor,
		Revenue:   p.Revenue,
		PnL:       p.PnL,
		Publisher: publisher,
	}
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the ports and a cleanup function, never nil
type BackendResult struct {
	Ports   Ports
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type   BackendType
	Ledger LedgerType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID string
	LedgerSheetName     string
	ResultSheetName     string
	SheetsCacheTTL      time.Duration
}

// BackendType selects where raw records and aggregates live.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// LedgerType selects where ledger entries are read from.
type LedgerType string

const (
	LedgerStore  LedgerType = "store"
	LedgerSheets LedgerType = "sheets"
)

func (lt LedgerType) IsValid() bool {
	return lt == LedgerStore || lt == LedgerSheets
}
