package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"horeca/internal/amqp"
	"horeca/internal/log"
	"horeca/internal/metrics"
	"horeca/internal/worker"
)

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume aggregation requests from AMQP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWorker(cmd)
		},
	}
}

func (a *app) runWorker(cmd *cobra.Command) error {
	if err := a.cfg.RequireAMQP(); err != nil {
		return err
	}
	ctx, stop := GracefulShutdown(cmd.Context())
	defer stop()

	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, a.cfg.AMQPEventsQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	svc, cleanup, err := a.service(ctx, client)
	if err != nil {
		return err
	}
	defer cleanup()

	w := worker.NewAggregationWorker(svc, a.logger)
	a.logger.InfoContext(ctx, "Worker started",
		"exchange", a.cfg.AMQPExchange,
		"queue", a.cfg.AMQPQueue,
		"events_queue", a.cfg.AMQPEventsQueue,
		"metrics_addr", a.cfg.MetricsAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeAggregationRequests(gctx, w.HandleAggregationRequest)
	})
	if a.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, a.cfg.MetricsAddr)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		a.logger.InfoContext(context.Background(), "Worker stopped", log.FieldError, ctx.Err())
		return nil
	}
	return err
}
