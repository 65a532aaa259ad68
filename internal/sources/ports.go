package sources

import (
	"context"
	"time"

	"horeca/internal/core"
)

// Ports for inbound readers and outbound writers.
type (
	RawRecordReader interface {
		// ListRawRecords returns records of the given kinds within rng. The
		// filter may be applied loosely; reducers re-check it after resolving
		// payload identifiers.
		ListRawRecords(ctx context.Context, kinds []core.RecordKind, rng core.DateRange, f core.Filter) ([]core.RawRecord, error)
	}

	LedgerReader interface {
		ListLedgerEntries(ctx context.Context, locationID string, year, month int) ([]core.LedgerEntry, error)
	}

	LedgerLocationLister interface {
		// ListLedgerLocations returns the locations with ledger data for a month.
		ListLedgerLocations(ctx context.Context, year, month int) ([]string, error)
	}

	// LaborAggregateWriter stores labor buckets. A run owns every bucket in
	// its range that matches its filter: DeleteLaborAggregatesExcept drops
	// those not in keep and returns how many went.
	LaborAggregateWriter interface {
		UpsertLaborAggregate(ctx context.Context, a core.LaborAggregate) error
		DeleteLaborAggregatesExcept(ctx context.Context, rng core.DateRange, f core.Filter, keep []core.BucketKey) (int, error)
	}

	// RevenueAggregateWriter stores revenue buckets; the filter's team is
	// ignored because revenue buckets have none.
	RevenueAggregateWriter interface {
		UpsertRevenueAggregate(ctx context.Context, a core.RevenueAggregate) error
		DeleteRevenueAggregatesExcept(ctx context.Context, rng core.DateRange, f core.Filter, keep []core.BucketKey) (int, error)
	}

	PnLWriter interface {
		// UpsertPnL overwrites the record keyed by (location, year, month)
		// together with its breakdown and returns the stored row id.
		UpsertPnL(ctx context.Context, rec core.PnLRecord, report core.ValidationReport) (int64, error)
	}

	// ExpectedResultSource supplies an independently stated net result for a
	// period. ok is false when the source has no figure for key.
	ExpectedResultSource interface {
		ExpectedResult(ctx context.Context, key core.PnLKey) (amount core.Money, ok bool, err error)
		Name() string
	}

	CompletionPublisher interface {
		PublishCompletion(ctx context.Context, ev CompletionEvent) error
	}
)

// CompletionEvent describes a finished aggregation run.
type CompletionEvent struct {
	RunID             string
	Kind              string
	From              string
	To                string
	LocationID        string
	TeamID            string
	Year              int
	Month             int
	RecordsProcessed  int
	RecordsAggregated int
	Errors            []string
	Status            string
	ProcessingTime    time.Duration
	CompletedAt       time.Time
}
