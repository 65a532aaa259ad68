// Package reconcile annotates computed P&L records with completeness and
// balance checks. Findings never block persistence.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"horeca/internal/core"
	"horeca/internal/log"
	"horeca/internal/sources"
	"horeca/internal/taxonomy"
)

const DefaultTolerancePct = 0.5

type Validator struct {
	tax          *taxonomy.Taxonomy
	expected     sources.ExpectedResultSource
	tolerancePct float64
}

// NewValidator builds a validator. expected may be nil, in which case the
// balance check is reported as skipped.
func NewValidator(tax *taxonomy.Taxonomy, expected sources.ExpectedResultSource, tolerancePct float64) *Validator {
	if tolerancePct < 0 {
		tolerancePct = DefaultTolerancePct
	}
	return &Validator{tax: tax, expected: expected, tolerancePct: tolerancePct}
}

// Validate checks rec against the entries it was computed from.
func (v *Validator) Validate(ctx context.Context, rec core.PnLRecord, entries []core.LedgerEntry) core.ValidationReport {
	report := core.ValidationReport{
		MissingCategories: v.missingCategories(rec),
		Unmapped:          v.unmapped(entries),
		Inconsistencies:   inconsistencies(rec),
		Balance:           v.balance(ctx, rec),
	}

	report.Status = core.StatusPass
	if len(report.MissingCategories) > 0 || len(report.Unmapped) > 0 ||
		len(report.Inconsistencies) > 0 || report.Balance.Status == core.BalanceFail {
		report.Status = core.StatusFail
	}
	return report
}

func (v *Validator) missingCategories(rec core.PnLRecord) []core.DetailedBucket {
	if rec.EntryCount == 0 {
		return nil
	}
	var missing []core.DetailedBucket
	for _, b := range core.DetailedBuckets() {
		if v.tax.Expected(b) && rec.Detailed[b].IsZero() {
			missing = append(missing, b)
		}
	}
	return missing
}

// unmapped groups entries whose subcategory no bucket of either table lists.
func (v *Validator) unmapped(entries []core.LedgerEntry) []core.Discrepancy {
	bySub := make(map[string]*core.Discrepancy)
	for _, e := range entries {
		if v.tax.Covers(e.Subcategory) {
			continue
		}
		d, ok := bySub[e.Subcategory]
		if !ok {
			d = &core.Discrepancy{Subcategory: e.Subcategory}
			bySub[e.Subcategory] = d
		}
		d.Amount = d.Amount.Add(e.Amount)
		d.Entries++
	}

	out := make([]core.Discrepancy, 0, len(bySub))
	for _, d := range bySub {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subcategory < out[j].Subcategory })
	if len(out) == 0 {
		return nil
	}
	return out
}

// inconsistencies compares summary splits with the detailed groups that
// cover the same ledger lines.
func inconsistencies(rec core.PnLRecord) []string {
	var out []string
	if rec.CostOfSalesTotal != rec.TotalCostOfSales {
		out = append(out, fmt.Sprintf("cost of sales: summary %s, detailed %s", rec.CostOfSalesTotal, rec.TotalCostOfSales))
	}
	if rec.LaborTotal != rec.TotalLaborCosts {
		out = append(out, fmt.Sprintf("labor: summary %s, detailed %s", rec.LaborTotal, rec.TotalLaborCosts))
	}
	return out
}

func (v *Validator) balance(ctx context.Context, rec core.PnLRecord) core.BalanceCheck {
	check := core.BalanceCheck{Status: core.BalanceSkipped, Computed: rec.Resultaat}
	if v.expected == nil {
		return check
	}
	check.Source = v.expected.Name()

	want, ok, err := v.expected.ExpectedResult(ctx, rec.Key)
	if err != nil {
		slog.WarnContext(ctx, "Expected result unavailable, skipping balance check", log.FieldComponent, log.ComponentReconcile,
			"key", rec.Key.String(), "source", check.Source, "error", err)
		return check
	}
	if !ok {
		return check
	}

	check.Expected = want
	check.ErrorMarginPct = MarginPct(rec.Resultaat, want)
	check.Status = core.BalancePass
	if check.ErrorMarginPct > v.tolerancePct {
		check.Status = core.BalanceFail
	}
	return check
}

// MarginPct returns |computed - expected| / |expected| * 100. A zero
// expected value gives 0 when computed is also zero and 100 otherwise.
func MarginPct(computed, expected core.Money) float64 {
	diff := math.Abs(float64(computed.Cents - expected.Cents))
	if expected.Cents == 0 {
		if diff == 0 {
			return 0
		}
		return 100
	}
	return math.Round(diff/math.Abs(float64(expected.Cents))*100*10000) / 10000
}
