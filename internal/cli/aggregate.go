package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"horeca/internal/amqp"
	"horeca/internal/core"
)

type aggregateOptions struct {
	from     string
	to       string
	location string
	team     string
	async    bool
}

func newAggregateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Reduce raw records into labor or revenue aggregates",
	}
	cmd.AddCommand(
		newAggregateKindCmd(a, amqp.KindLabor, "Aggregate shifts per date, location and team"),
		newAggregateKindCmd(a, amqp.KindRevenue, "Aggregate revenue per date and location"),
	)
	return cmd
}

func newAggregateKindCmd(a *app, kind, short string) *cobra.Command {
	var opts aggregateOptions

	cmd := &cobra.Command{
		Use:   kind,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.to == "" {
				opts.to = opts.from
			}
			rng, err := core.NewDateRange(opts.from, opts.to)
			if err != nil {
				return err
			}
			f := core.Filter{LocationID: opts.location, TeamID: opts.team}
			if opts.async {
				return a.publishRequest(cmd, amqp.NewRangeRequest(kind, rng, f))
			}
			return a.runAggregate(cmd, kind, rng, f)
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "first date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&opts.to, "to", "", "last date, YYYY-MM-DD (default: --from)")
	cmd.Flags().StringVar(&opts.location, "location", "", "only this location")
	if kind == amqp.KindLabor {
		cmd.Flags().StringVar(&opts.team, "team", "", "only this team")
	}
	cmd.Flags().BoolVar(&opts.async, "async", false, "publish a request for the worker instead of running here")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func (a *app) runAggregate(cmd *cobra.Command, kind string, rng core.DateRange, f core.Filter) error {
	ctx := cmd.Context()
	svc, cleanup, err := a.service(ctx, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	var res core.ProcessResult
	if kind == amqp.KindLabor {
		res, err = svc.RunLabor(ctx, rng, f)
	} else {
		res, err = svc.RunRevenue(ctx, rng, f)
	}
	if err != nil {
		return err
	}
	printProcessResult(cmd.OutOrStdout(), kind, res)
	return nil
}

func (a *app) publishRequest(cmd *cobra.Command, req *amqp.AggregationRequest) error {
	if err := a.cfg.RequireAMQP(); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, "")
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.PublishAggregationRequest(cmd.Context(), req); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "queued %s request on %s\n", req.Kind, a.cfg.AMQPQueue)
	return nil
}

func printProcessResult(out io.Writer, kind string, res core.ProcessResult) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "kind\t%s\n", kind)
	fmt.Fprintf(w, "run\t%s\n", res.RunID)
	fmt.Fprintf(w, "records processed\t%d\n", res.RecordsProcessed)
	fmt.Fprintf(w, "buckets written\t%d\n", res.RecordsAggregated)
	fmt.Fprintf(w, "stale buckets removed\t%d\n", res.BucketsDeleted)
	fmt.Fprintf(w, "bucket errors\t%d\n", len(res.Errors))
	fmt.Fprintf(w, "duration\t%s\n", res.ProcessingTime)
	w.Flush()
	for _, msg := range res.Errors {
		fmt.Fprintf(out, "  ! %s\n", msg)
	}
}
