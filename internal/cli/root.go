package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"horeca/internal/backend"
	"horeca/internal/config"
	"horeca/internal/log"
	"horeca/internal/metrics"
	"horeca/internal/pnl"
	"horeca/internal/reconcile"
	"horeca/internal/services"
	"horeca/internal/sources"
)

var (
	// Version and Commit are set at build time via ldflags.
	Version = "dev"
	Commit  = "none"
)

type app struct {
	envFile string

	cfg       *config.Config
	logger    *log.Logger
	logCloser io.Closer

	// newBackend is replaced in tests.
	newBackend func(ctx context.Context, cfg backend.Config) (*backend.BackendResult, error)
}

func newApp() *app {
	return &app{}
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := LoadEnvFile(a.envFile); err != nil {
		return err
	}
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger, closer, err := SetupLogger(cfg)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.logCloser = closer
	if a.newBackend == nil {
		a.newBackend = backend.NewFactory(logger).CreateBackend
	}

	logger.DebugContext(cmd.Context(), "horeca starting",
		"command", cmd.CommandPath(), "version", Version, "commit", Commit)
	return nil
}

func (a *app) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
		a.logCloser = nil
	}
}

// service builds the aggregation service over the configured backend. The
// returned cleanup releases the backend.
func (a *app) service(ctx context.Context, publisher sources.CompletionPublisher) (*services.AggregationService, backend.CleanupFunc, error) {
	tax, err := LoadTaxonomy(a.cfg.TaxonomyFile)
	if err != nil {
		return nil, nil, err
	}
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := a.newBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}

	svc := services.NewAggregationService(
		res.Ports.Dependencies(publisher),
		pnl.NewCalculator(tax),
		reconcile.NewValidator(tax, res.Ports.Expected, a.cfg.ReconcileTolerancePct),
		services.Options{
			Concurrency: a.cfg.Concurrency,
			Metrics:     metrics.Aggregation(),
			Logger:      a.logger.WithComponent(log.ComponentAggregate),
		},
	)
	return svc, res.Cleanup, nil
}

// NewRootCmd builds the horeca command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "horeca",
		Short: "Normalize workforce and ledger data into aggregates and monthly P&L records",
		Long: `horeca reduces raw shift and revenue records into per-day labor and revenue
aggregates, and rolls categorized ledger entries up into validated monthly
profit-and-loss records per location.`,
		Version:           Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load environment from this file instead of ./.env")

	root.AddCommand(
		newAggregateCmd(a),
		newPnLCmd(a),
		newTaxonomyCmd(a),
		newWorkerCmd(a),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	a := newApp()
	defer a.close()
	return newRootCmd(a).ExecuteContext(ctx)
}
