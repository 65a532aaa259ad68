package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"horeca/internal/amqp"
	"horeca/internal/services"
)

type pnlOptions struct {
	year      int
	month     int
	locations []string
	async     bool
}

func newPnLCmd(a *app) *cobra.Command {
	var opts pnlOptions

	cmd := &cobra.Command{
		Use:   "pnl",
		Short: "Roll ledger entries up into monthly P&L records",
		Long: `Computes, validates and stores the P&L record of each location for one month.
Without --location every location with ledger data for the month is processed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.async {
				if len(opts.locations) > 1 {
					return fmt.Errorf("--async accepts at most one --location")
				}
				loc := ""
				if len(opts.locations) == 1 {
					loc = opts.locations[0]
				}
				return a.publishRequest(cmd, amqp.NewPnLRequest(loc, opts.year, opts.month))
			}
			return a.runPnL(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.year, "year", 0, "calendar year (required)")
	cmd.Flags().IntVar(&opts.month, "month", 0, "calendar month 1-12 (required)")
	cmd.Flags().StringSliceVar(&opts.locations, "location", nil, "locations to process (repeatable)")
	cmd.Flags().BoolVar(&opts.async, "async", false, "publish a request for the worker instead of running here")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func (a *app) runPnL(cmd *cobra.Command, opts pnlOptions) error {
	ctx := cmd.Context()
	svc, cleanup, err := a.service(ctx, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	results, runErr := svc.RunPnLForLocations(ctx, opts.locations, opts.year, opts.month)
	printPnLResults(cmd.OutOrStdout(), results)
	return runErr
}

func printPnLResults(out io.Writer, results []services.PnLResult) {
	if len(results) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "location\tperiod\trevenue\tcosts\tresultaat\tstatus\tbalance")
	for _, r := range results {
		rec := r.Record
		fmt.Fprintf(w, "%s\t%04d-%02d\t%s\t%s\t%s\t%s\t%s\n",
			rec.Key.LocationID, rec.Key.Year, rec.Key.Month,
			rec.TotalRevenue, rec.TotalCosts, rec.Resultaat,
			r.Report.Status, r.Report.Balance.Status)
	}
	w.Flush()

	for _, r := range results {
		for _, issue := range services.Issues(r.Report) {
			fmt.Fprintf(out, "  ! %s: %s\n", r.Record.Key.LocationID, issue)
		}
	}
}
