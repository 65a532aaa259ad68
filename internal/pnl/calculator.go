// Package pnl rolls categorized ledger entries up into a monthly profit and
// loss record.
package pnl

import (
	"fmt"
	"sort"

	"horeca/internal/core"
	"horeca/internal/taxonomy"
)

// Calculator computes P&L records against an injected taxonomy.
type Calculator struct {
	tax *taxonomy.Taxonomy
}

func NewCalculator(tax *taxonomy.Taxonomy) *Calculator {
	return &Calculator{tax: tax}
}

func (c *Calculator) Taxonomy() *taxonomy.Taxonomy {
	return c.tax
}

// Calculate rolls entries up for one location and month. Amounts keep their
// ledger sign: costs are negative and are added, never subtracted.
//
// An empty entry set is a data-completeness failure and yields an error
// wrapping core.ErrNoData instead of a zeroed record.
func (c *Calculator) Calculate(locationID string, year, month int, entries []core.LedgerEntry) (core.PnLRecord, error) {
	key := core.PnLKey{LocationID: locationID, Year: year, Month: month}
	if err := core.ValidatePeriod(year, month); err != nil {
		return core.PnLRecord{}, err
	}
	if len(entries) == 0 {
		return core.PnLRecord{}, fmt.Errorf("%w: no ledger entries for %s", core.ErrNoData, key)
	}

	sum := func(b core.SummaryBucket) core.Money {
		return taxonomy.SumBySubcategories(entries, c.tax.SummaryLabels(b))
	}

	rec := core.PnLRecord{
		Key:                 key,
		RevenueFood:         sum(core.RevenueFood),
		RevenueBeverage:     sum(core.RevenueBeverage),
		CostOfSalesFood:     sum(core.CostOfSalesFood),
		CostOfSalesBeverage: sum(core.CostOfSalesBeverage),
		LaborContract:       sum(core.LaborContract),
		LaborFlex:           sum(core.LaborFlex),
		Detailed:            make(map[core.DetailedBucket]core.Money, len(core.DetailedBuckets())),
		EntryCount:          len(entries),
	}
	rec.RevenueTotal = rec.RevenueFood.Add(rec.RevenueBeverage)
	rec.CostOfSalesTotal = rec.CostOfSalesFood.Add(rec.CostOfSalesBeverage)
	rec.LaborTotal = rec.LaborContract.Add(rec.LaborFlex)

	for _, b := range core.DetailedBuckets() {
		rec.Detailed[b] = taxonomy.SumBySubcategories(entries, c.tax.DetailedLabels(b))
	}

	rec.TotalRevenue = rec.RevenueTotal
	rec.TotalCostOfSales = rec.DetailedTotal(core.GroupCostOfSales)
	rec.TotalLaborCosts = rec.DetailedTotal(core.GroupLabor)
	rec.TotalOtherCosts = rec.DetailedTotal(core.GroupOtherCosts)
	rec.TotalCosts = rec.TotalCostOfSales.Add(rec.TotalLaborCosts).Add(rec.TotalOtherCosts)

	rec.Resultaat = rec.TotalRevenue.
		Add(rec.TotalCostOfSales).
		Add(rec.TotalLaborCosts).
		Add(rec.TotalOtherCosts).
		Add(rec.Detailed[core.IncomeFromReceivables])

	rec.Breakdown = c.breakdown(entries)
	return rec, nil
}

// breakdown sums entries per subcategory, sorted by label. The bucket is the
// detailed bucket when the label has one, else the summary bucket, else "".
func (c *Calculator) breakdown(entries []core.LedgerEntry) []core.SubcategoryAmount {
	totals := make(map[string]core.Money)
	for _, e := range entries {
		totals[e.Subcategory] = totals[e.Subcategory].Add(e.Amount)
	}

	out := make([]core.SubcategoryAmount, 0, len(totals))
	for label, amount := range totals {
		row := core.SubcategoryAmount{Subcategory: label, Amount: amount}
		if b, ok := c.tax.DetailedBucketOf(label); ok {
			row.Bucket = string(b)
		} else if b, ok := c.tax.SummaryBucketOf(label); ok {
			row.Bucket = string(b)
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subcategory < out[j].Subcategory })
	return out
}
