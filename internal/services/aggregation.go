// Package services runs the aggregation pipelines: raw records to labor and
// revenue buckets, and ledger entries to validated P&L records.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"horeca/internal/aggregate"
	"horeca/internal/core"
	"horeca/internal/log"
	"horeca/internal/metrics"
	"horeca/internal/pnl"
	"horeca/internal/reconcile"
	"horeca/internal/sources"
)

// Run kinds, shared with the completion events.
const (
	KindLabor   = "labor"
	KindRevenue = "revenue"
	KindPnL     = "pnl"
)

// Completion statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// DefaultConcurrency bounds RunPnLForLocations when Options leaves it unset.
const DefaultConcurrency = 4

// Dependencies are the ports a service reads from and writes to. Publisher
// is optional; the other ports are required by the runs that use them.
type Dependencies struct {
	Raw       sources.RawRecordReader
	Ledger    sources.LedgerReader
	Locations sources.LedgerLocationLister
	Labor     sources.LaborAggregateWriter
	Revenue   sources.RevenueAggregateWriter
	PnL       sources.PnLWriter
	Publisher sources.CompletionPublisher
}

type Options struct {
	Concurrency int
	Metrics     *metrics.AggregationMetrics
	Logger      *log.Logger
}

// AggregationService is the only caller of the aggregate writers.
type AggregationService struct {
	deps        Dependencies
	calc        *pnl.Calculator
	validator   *reconcile.Validator
	concurrency int
	metrics     *metrics.AggregationMetrics
	logger      *log.Logger

	newRunID func() string
	now      func() time.Time
}

// PnLResult is the outcome of one P&L run.
type PnLResult struct {
	RunID          string
	ID             int64
	Record         core.PnLRecord
	Report         core.ValidationReport
	ProcessingTime time.Duration
}

func NewAggregationService(deps Dependencies, calc *pnl.Calculator, validator *reconcile.Validator, opts Options) *AggregationService {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.FromContext(context.Background(), log.ComponentAggregate)
	}
	return &AggregationService{
		deps:        deps,
		calc:        calc,
		validator:   validator,
		concurrency: opts.Concurrency,
		metrics:     opts.Metrics,
		logger:      logger,
		newRunID:    uuid.NewString,
		now:         time.Now,
	}
}

// RunLabor reduces shift and planned shift records in rng into labor buckets
// and upserts each bucket, then removes stored buckets of the same range and
// filter that this run no longer produces. Read and write failures abort the
// run; bucket errors are reported in the result and their stored rows kept.
func (s *AggregationService) RunLabor(ctx context.Context, rng core.DateRange, f core.Filter) (core.ProcessResult, error) {
	if s.deps.Labor == nil {
		return core.ProcessResult{}, errors.New("labor aggregate writer not configured")
	}
	return runBuckets(ctx, s, KindLabor, rng, f,
		[]core.RecordKind{core.KindShift, core.KindPlannedShift},
		aggregate.ReduceLabor,
		s.deps.Labor.UpsertLaborAggregate,
		s.deps.Labor.DeleteLaborAggregatesExcept,
		func(a core.LaborAggregate) core.BucketKey { return a.Key },
	)
}

// RunRevenue reduces revenue day records in rng into (date, location) buckets.
func (s *AggregationService) RunRevenue(ctx context.Context, rng core.DateRange, f core.Filter) (core.ProcessResult, error) {
	if s.deps.Revenue == nil {
		return core.ProcessResult{}, errors.New("revenue aggregate writer not configured")
	}
	if f.TeamID != "" {
		return core.ProcessResult{}, errors.New("revenue aggregates have no team dimension")
	}
	return runBuckets(ctx, s, KindRevenue, rng, f,
		[]core.RecordKind{core.KindRevenueDay},
		aggregate.ReduceRevenue,
		s.deps.Revenue.UpsertRevenueAggregate,
		s.deps.Revenue.DeleteRevenueAggregatesExcept,
		func(a core.RevenueAggregate) core.BucketKey { return a.Key },
	)
}

func runBuckets[O any](
	ctx context.Context,
	s *AggregationService,
	kind string,
	rng core.DateRange,
	f core.Filter,
	kinds []core.RecordKind,
	reduce func([]core.RawRecord, core.Filter) aggregate.Result[core.BucketKey, O],
	write func(context.Context, O) error,
	prune func(context.Context, core.DateRange, core.Filter, []core.BucketKey) (int, error),
	keyOf func(O) core.BucketKey,
) (core.ProcessResult, error) {
	if err := rng.Validate(); err != nil {
		return core.ProcessResult{}, err
	}
	if s.deps.Raw == nil {
		return core.ProcessResult{}, errors.New("raw record reader not configured")
	}

	start := s.now()
	result := core.ProcessResult{RunID: s.newRunID()}
	logger := s.logger.With(log.NewFields().WithRunID(result.RunID).WithRange(rng.From, rng.To, f.LocationID, f.TeamID).ToSlice()...)
	logger.InfoContext(ctx, "Aggregation started", log.FieldKind, kind)

	event := sources.CompletionEvent{
		RunID:      result.RunID,
		Kind:       kind,
		From:       rng.From,
		To:         rng.To,
		LocationID: f.LocationID,
		TeamID:     f.TeamID,
	}

	fail := func(err error) (core.ProcessResult, error) {
		result.ProcessingTime = s.now().Sub(start)
		s.metrics.ObserveRun(kind, result.RecordsProcessed, result.RecordsAggregated, len(result.Errors), result.ProcessingTime, err)
		logger.ErrorContext(ctx, "Aggregation failed", log.FieldKind, kind, log.FieldError, err)
		event.Status = StatusFailed
		event.Errors = append(append([]string(nil), result.Errors...), err.Error())
		s.publish(ctx, logger, event, result)
		return result, err
	}

	records, err := s.deps.Raw.ListRawRecords(ctx, kinds, rng, f)
	if err != nil {
		return fail(fmt.Errorf("list raw records: %w", err))
	}

	reduced := reduce(records, f)
	result.RecordsProcessed = reduced.Processed
	result.Errors = reduced.Errors

	keep := append([]core.BucketKey(nil), reduced.Skipped...)
	for _, row := range reduced.Rows {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err := write(ctx, row); err != nil {
			return fail(fmt.Errorf("upsert %s aggregate %s: %w", kind, keyOf(row), err))
		}
		result.RecordsAggregated++
		keep = append(keep, keyOf(row))
	}

	deleted, err := prune(ctx, rng, f, keep)
	if err != nil {
		return fail(fmt.Errorf("remove stale %s aggregates: %w", kind, err))
	}
	result.BucketsDeleted = deleted

	result.ProcessingTime = s.now().Sub(start)
	s.metrics.ObserveRun(kind, result.RecordsProcessed, result.RecordsAggregated, len(result.Errors), result.ProcessingTime, nil)

	for _, msg := range result.Errors {
		logger.WarnContext(ctx, "Bucket skipped", log.FieldKind, kind, log.FieldError, msg)
	}
	logger.InfoContext(ctx, "Aggregation completed",
		log.FieldKind, kind,
		log.FieldProcessed, result.RecordsProcessed,
		log.FieldAggregated, result.RecordsAggregated,
		log.FieldDeleted, result.BucketsDeleted,
		log.FieldGroupErrors, len(result.Errors),
		log.FieldDuration, result.ProcessingTime.Milliseconds(),
	)

	event.Status = StatusCompleted
	event.Errors = result.Errors
	s.publish(ctx, logger, event, result)
	return result, nil
}

// RunPnL computes, validates and stores the P&L record of one location and
// month. Validation findings are reported, never fatal.
func (s *AggregationService) RunPnL(ctx context.Context, locationID string, year, month int) (PnLResult, error) {
	if err := core.ValidatePeriod(year, month); err != nil {
		return PnLResult{}, err
	}
	if s.deps.Ledger == nil || s.deps.PnL == nil {
		return PnLResult{}, errors.New("ledger reader and P&L writer must be configured")
	}

	start := s.now()
	res := PnLResult{RunID: s.newRunID()}
	logger := s.logger.WithComponent(log.ComponentPnL).With(log.NewFields().WithRunID(res.RunID).WithPeriod(locationID, year, month).ToSlice()...)

	event := sources.CompletionEvent{
		RunID:      res.RunID,
		Kind:       KindPnL,
		LocationID: locationID,
		Year:       year,
		Month:      month,
	}
	var processed int

	fail := func(outcome string, err error) (PnLResult, error) {
		res.ProcessingTime = s.now().Sub(start)
		s.metrics.ObservePnL(outcome)
		logger.ErrorContext(ctx, "P&L run failed", log.FieldError, err)
		event.Status = StatusFailed
		event.Errors = []string{err.Error()}
		s.publish(ctx, logger, event, core.ProcessResult{RecordsProcessed: processed, ProcessingTime: res.ProcessingTime})
		return res, err
	}

	entries, err := s.deps.Ledger.ListLedgerEntries(ctx, locationID, year, month)
	if err != nil {
		return fail("error", fmt.Errorf("list ledger entries: %w", err))
	}
	processed = len(entries)

	rec, err := s.calc.Calculate(locationID, year, month, entries)
	if err != nil {
		outcome := "error"
		if errors.Is(err, core.ErrNoData) {
			outcome = "no_data"
		}
		return fail(outcome, err)
	}

	var report core.ValidationReport
	if s.validator != nil {
		report = s.validator.Validate(ctx, rec, entries)
	}

	id, err := s.deps.PnL.UpsertPnL(ctx, rec, report)
	if err != nil {
		return fail("error", fmt.Errorf("upsert pnl %s: %w", rec.Key, err))
	}

	res.ID = id
	res.Record = rec
	res.Report = report
	res.ProcessingTime = s.now().Sub(start)

	s.metrics.ObservePnL("ok")
	if s.validator != nil {
		missing := make([]string, len(report.MissingCategories))
		for i, b := range report.MissingCategories {
			missing[i] = string(b)
		}
		s.metrics.ObserveReconcile(string(report.Status), string(report.Balance.Status), missing)
	}

	issues := Issues(report)
	if report.Status == core.StatusFail {
		logger.WarnContext(ctx, "P&L reconciliation failed", log.FieldStatus, report.Status, "issues", issues)
	}
	logger.InfoContext(ctx, "P&L run completed",
		"id", id,
		log.FieldProcessed, len(entries),
		log.FieldAmountCents, rec.Resultaat.Cents,
		log.FieldStatus, report.Status,
		log.FieldDuration, res.ProcessingTime.Milliseconds(),
	)

	event.Status = StatusCompleted
	event.Errors = issues
	s.publish(ctx, logger, event, core.ProcessResult{
		RecordsProcessed:  len(entries),
		RecordsAggregated: 1,
		ProcessingTime:    res.ProcessingTime,
	})
	return res, nil
}

// RunPnLForLocations runs RunPnL for every location with at most the
// configured number in flight. Keys never overlap, so one failing location
// does not stop the others; failures are joined into the returned error and
// results hold the successful runs in location order. An empty list means
// every location with ledger data for the month.
func (s *AggregationService) RunPnLForLocations(ctx context.Context, locations []string, year, month int) ([]PnLResult, error) {
	if err := core.ValidatePeriod(year, month); err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		if s.deps.Locations == nil {
			return nil, errors.New("no locations given and no location lister configured")
		}
		var err error
		locations, err = s.deps.Locations.ListLedgerLocations(ctx, year, month)
		if err != nil {
			return nil, fmt.Errorf("list ledger locations: %w", err)
		}
		if len(locations) == 0 {
			return nil, fmt.Errorf("%w: no ledger entries for %04d-%02d", core.ErrNoData, year, month)
		}
	}

	results := make([]PnLResult, len(locations))
	errs := make([]error, len(locations))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, loc := range locations {
		i, loc := i, loc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = fmt.Errorf("location %q: %w", loc, err)
				return nil
			}
			res, err := s.RunPnL(ctx, loc, year, month)
			if err != nil {
				errs[i] = fmt.Errorf("location %q: %w", loc, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	out := make([]PnLResult, 0, len(locations))
	for i := range results {
		if errs[i] == nil {
			out = append(out, results[i])
		}
	}
	return out, errors.Join(errs...)
}

// Issues renders the findings of a validation report as short messages.
func Issues(r core.ValidationReport) []string {
	var out []string
	for _, b := range r.MissingCategories {
		out = append(out, fmt.Sprintf("missing category %s", b))
	}
	for _, d := range r.Unmapped {
		out = append(out, fmt.Sprintf("unmapped subcategory %q: %s in %d entries", d.Subcategory, d.Amount, d.Entries))
	}
	out = append(out, r.Inconsistencies...)
	if r.Balance.Status == core.BalanceFail {
		out = append(out, fmt.Sprintf("balance check against %s failed: computed %s, expected %s, margin %.4f%%",
			r.Balance.Source, r.Balance.Computed, r.Balance.Expected, r.Balance.ErrorMarginPct))
	}
	return out
}

func (s *AggregationService) publish(ctx context.Context, logger *log.Logger, ev sources.CompletionEvent, res core.ProcessResult) {
	if s.deps.Publisher == nil {
		return
	}
	ev.RecordsProcessed = res.RecordsProcessed
	ev.RecordsAggregated = res.RecordsAggregated
	ev.ProcessingTime = res.ProcessingTime
	ev.CompletedAt = s.now().UTC()
	if err := s.deps.Publisher.PublishCompletion(ctx, ev); err != nil {
		logger.WarnContext(ctx, "Failed to publish completion event", log.FieldError, err)
	}
}
