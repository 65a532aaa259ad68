// Package worker turns aggregation requests from the message queue into
// service runs.
package worker

import (
	"context"
	"errors"
	"fmt"

	"horeca/internal/amqp"
	"horeca/internal/core"
	"horeca/internal/log"
	"horeca/internal/services"
)

// Runner is the part of the aggregation service the worker drives.
type Runner interface {
	RunLabor(ctx context.Context, rng core.DateRange, f core.Filter) (core.ProcessResult, error)
	RunRevenue(ctx context.Context, rng core.DateRange, f core.Filter) (core.ProcessResult, error)
	RunPnL(ctx context.Context, locationID string, year, month int) (services.PnLResult, error)
	RunPnLForLocations(ctx context.Context, locations []string, year, month int) ([]services.PnLResult, error)
}

type AggregationWorker struct {
	runner Runner
	logger *log.Logger
}

func NewAggregationWorker(runner Runner, logger *log.Logger) *AggregationWorker {
	if logger == nil {
		logger = log.FromContext(context.Background(), log.ComponentWorker)
	}
	return &AggregationWorker{runner: runner, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleAggregationRequest runs one request. Requests that can never succeed
// are marked with amqp.ErrPermanent so they are not redelivered.
func (w *AggregationWorker) HandleAggregationRequest(ctx context.Context, req *amqp.AggregationRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: invalid request: %v", amqp.ErrPermanent, err)
	}

	w.logger.InfoContext(ctx, "Processing aggregation request",
		log.FieldKind, req.Kind,
		log.FieldFrom, req.From,
		log.FieldTo, req.To,
		log.FieldLocation, req.LocationID,
		log.FieldYear, req.Year,
		log.FieldMonth, req.Month,
		"timestamp", req.Timestamp)

	var err error
	switch req.Kind {
	case amqp.KindLabor:
		_, err = w.runner.RunLabor(ctx, req.Range(), req.Filter())
	case amqp.KindRevenue:
		_, err = w.runner.RunRevenue(ctx, req.Range(), req.Filter())
	case amqp.KindPnL:
		if req.LocationID != "" {
			_, err = w.runner.RunPnL(ctx, req.LocationID, req.Year, req.Month)
		} else {
			_, err = w.runner.RunPnLForLocations(ctx, nil, req.Year, req.Month)
		}
	}
	if err == nil {
		return nil
	}

	if isPermanent(err) {
		return fmt.Errorf("%w: %s run: %w", amqp.ErrPermanent, req.Kind, err)
	}
	return fmt.Errorf("%s run: %w", req.Kind, err)
}

// isPermanent reports whether retrying err cannot help. A joined error is
// permanent only when every part is.
func isPermanent(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		parts := joined.Unwrap()
		if len(parts) == 0 {
			return false
		}
		for _, e := range parts {
			if !isPermanent(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, core.ErrNoData) ||
		errors.Is(err, core.ErrInvalidRange) ||
		errors.Is(err, core.ErrInvalidPeriod)
}
