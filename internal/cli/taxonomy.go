package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"horeca/internal/backend"
	"horeca/internal/core"
	"horeca/internal/taxonomy"
)

type taxonomyCheckOptions struct {
	file  string
	year  int
	month int
}

func newTaxonomyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Inspect the category taxonomy",
	}
	cmd.AddCommand(newTaxonomyCheckCmd(a))
	return cmd
}

func newTaxonomyCheckCmd(a *app) *cobra.Command {
	var opts taxonomyCheckOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the taxonomy and, for a period, its coverage of the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.file
			if path == "" {
				path = a.cfg.TaxonomyFile
			}
			tax, err := LoadTaxonomy(path)
			if err != nil {
				return err
			}
			printTaxonomy(cmd.OutOrStdout(), tax)

			if opts.year == 0 && opts.month == 0 {
				return nil
			}
			if err := core.ValidatePeriod(opts.year, opts.month); err != nil {
				return err
			}
			return a.checkCoverage(cmd, tax, opts.year, opts.month)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "taxonomy YAML file (default: TAXONOMY_FILE or the embedded taxonomy)")
	cmd.Flags().IntVar(&opts.year, "year", 0, "check ledger coverage for this year")
	cmd.Flags().IntVar(&opts.month, "month", 0, "check ledger coverage for this month")
	return cmd
}

func printTaxonomy(out io.Writer, tax *taxonomy.Taxonomy) {
	fmt.Fprintf(out, "taxonomy version %s\n", tax.Version())
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "bucket\tgroup\tlabels\texpected")
	for _, b := range core.DetailedBuckets() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\n", b, b.Group(), len(tax.DetailedLabels(b)), tax.Expected(b))
	}
	for _, b := range core.SummaryBuckets() {
		fmt.Fprintf(w, "%s\tsummary\t%d\t\n", b, len(tax.SummaryLabels(b)))
	}
	w.Flush()
}

// checkCoverage lists ledger subcategories of the period that reach no bucket.
func (a *app) checkCoverage(cmd *cobra.Command, tax *taxonomy.Taxonomy, year, month int) error {
	ctx := cmd.Context()
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return err
	}
	res, err := a.newBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	locations, err := res.Ports.Locations.ListLedgerLocations(ctx, year, month)
	if err != nil {
		return fmt.Errorf("list ledger locations: %w", err)
	}

	unmapped := make(map[string]core.Money)
	entries := 0
	for _, loc := range locations {
		list, err := res.Ports.Ledger.ListLedgerEntries(ctx, loc, year, month)
		if err != nil {
			return fmt.Errorf("list ledger entries for %q: %w", loc, err)
		}
		entries += len(list)
		for _, e := range list {
			if !tax.Covers(e.Subcategory) {
				unmapped[e.Subcategory] = unmapped[e.Subcategory].Add(e.Amount)
			}
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%04d-%02d: %d locations, %d ledger entries\n", year, month, len(locations), entries)
	if len(unmapped) == 0 {
		fmt.Fprintln(out, "every subcategory is mapped")
		return nil
	}

	labels := make([]string, 0, len(unmapped))
	for l := range unmapped {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		fmt.Fprintf(out, "  ! unmapped %q: %s\n", l, unmapped[l])
	}
	return fmt.Errorf("%d unmapped subcategories", len(labels))
}
