// Package metrics exposes Prometheus collectors for aggregation runs.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"horeca/internal/log"
)

type AggregationMetrics struct {
	recordsProcessed *prometheus.CounterVec
	bucketsWritten   *prometheus.CounterVec
	groupErrors      *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	pnlRuns          *prometheus.CounterVec
	reconcileStatus  *prometheus.CounterVec
	missingCategory  *prometheus.CounterVec
}

var (
	aggregationOnce     sync.Once
	aggregationRegistry *AggregationMetrics
)

// Aggregation returns the process-wide collectors, registering them with the
// default registry on first use.
func Aggregation() *AggregationMetrics {
	aggregationOnce.Do(func() {
		aggregationRegistry = newAggregationMetrics()
		prometheus.MustRegister(aggregationRegistry.collectors()...)
	})
	return aggregationRegistry
}

func newAggregationMetrics() *AggregationMetrics {
	return &AggregationMetrics{
		recordsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horeca_records_processed_total",
			Help: "Raw records visited by aggregation runs, by kind.",
		}, []string{"kind"}),
		bucketsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horeca_buckets_written_total",
			Help: "Aggregate buckets upserted, by kind.",
		}, []string{"kind"}),
		groupErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horeca_group_errors_total",
			Help: "Buckets skipped because reduction failed, by kind.",
		}, []string{"kind"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "horeca_run_duration_seconds",
			Help:    "Wall time of aggregation runs, by kind and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "outcome"}),
		pnlRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horeca_pnl_runs_total",
			Help: "P&L rollups by outcome (ok, no_data, error).",
		}, []string{"outcome"}),
		reconcileStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horeca_reconcile_total",
			Help: "Reconciliation results by validation and balance status.",
		}, []string{"status", "balance"}),
		missingCategory: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horeca_missing_category_total",
			Help: "Expected detailed buckets found empty, by bucket.",
		}, []string{"bucket"}),
	}
}

func (m *AggregationMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.recordsProcessed, m.bucketsWritten, m.groupErrors, m.runDuration,
		m.pnlRuns, m.reconcileStatus, m.missingCategory,
	}
}

func (m *AggregationMetrics) ObserveRun(kind string, processed, written, groupErrors int, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.recordsProcessed.WithLabelValues(kind).Add(float64(processed))
	m.bucketsWritten.WithLabelValues(kind).Add(float64(written))
	m.groupErrors.WithLabelValues(kind).Add(float64(groupErrors))
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.runDuration.WithLabelValues(kind, outcome).Observe(took.Seconds())
}

func (m *AggregationMetrics) ObservePnL(outcome string) {
	if m == nil {
		return
	}
	m.pnlRuns.WithLabelValues(outcome).Inc()
}

func (m *AggregationMetrics) ObserveReconcile(status, balance string, missing []string) {
	if m == nil {
		return
	}
	m.reconcileStatus.WithLabelValues(status, balance).Inc()
	for _, b := range missing {
		m.missingCategory.WithLabelValues(b).Inc()
	}
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Metrics server listening", log.FieldComponent, log.ComponentMetrics, "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
