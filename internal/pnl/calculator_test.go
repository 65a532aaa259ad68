package pnl

import (
	"errors"
	"strings"
	"testing"

	"horeca/internal/core"
	"horeca/internal/taxonomy"
)

func mustDefault(t *testing.T) *taxonomy.Taxonomy {
	t.Helper()
	tax, err := taxonomy.Default()
	if err != nil {
		t.Fatalf("taxonomy.Default: %v", err)
	}
	return tax
}

func entry(sub string, euros float64) core.LedgerEntry {
	return core.LedgerEntry{LocationID: "L1", Year: 2024, Month: 3, Subcategory: sub, Amount: core.FromEuros(euros)}
}

func TestCalculateResultaatScenario(t *testing.T) {
	calc := NewCalculator(mustDefault(t))
	entries := []core.LedgerEntry{
		entry("Omzet keuken", 60000),
		entry("Omzet bar", 40000),
		entry("Inkoop keuken", -12000),
		entry("Inkoop dranken", -8000),
		entry("Lonen en salarissen", -45000),
		entry("Uitzendkrachten", -5000),
		entry("Huur", -10000),
		entry("Verzekeringen", -3000),
		entry("Afschrijving inventaris", -2000),
		entry("Opbrengst vorderingen", 500),
	}

	rec, err := calc.Calculate("L1", 2024, 3, entries)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	checks := []struct {
		name string
		got  core.Money
		want float64
	}{
		{"revenue food", rec.RevenueFood, 60000},
		{"revenue beverage", rec.RevenueBeverage, 40000},
		{"revenue total", rec.RevenueTotal, 100000},
		{"cost of sales total", rec.CostOfSalesTotal, -20000},
		{"labor contract", rec.LaborContract, -45000},
		{"labor flex", rec.LaborFlex, -5000},
		{"labor total", rec.LaborTotal, -50000},
		{"total cost of sales", rec.TotalCostOfSales, -20000},
		{"total labor", rec.TotalLaborCosts, -50000},
		{"total other", rec.TotalOtherCosts, -15000},
		{"total costs", rec.TotalCosts, -85000},
		{"income from receivables", rec.Detailed[core.IncomeFromReceivables], 500},
		{"resultaat", rec.Resultaat, 15500},
	}
	for _, c := range checks {
		if c.got != core.FromEuros(c.want) {
			t.Errorf("%s = %v, want %.2f", c.name, c.got, c.want)
		}
	}
	if rec.EntryCount != len(entries) {
		t.Errorf("entry count = %d, want %d", rec.EntryCount, len(entries))
	}
}

func TestCalculateCategorySumCompleteness(t *testing.T) {
	tax := mustDefault(t)
	calc := NewCalculator(tax)

	// One entry per label of every detailed cost bucket.
	var entries []core.LedgerEntry
	amount := -1.01
	for _, b := range core.DetailedBuckets() {
		if b.Group() == core.GroupIncome {
			continue
		}
		for _, l := range tax.DetailedLabels(b) {
			entries = append(entries, entry(l, amount))
			amount -= 1.37
		}
	}

	rec, err := calc.Calculate("L1", 2024, 3, entries)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	var all core.Money
	for _, e := range entries {
		all = all.Add(e.Amount)
	}
	detailed := rec.DetailedTotal(core.GroupCostOfSales).
		Add(rec.DetailedTotal(core.GroupLabor)).
		Add(rec.DetailedTotal(core.GroupOtherCosts))
	if rec.TotalCosts != detailed {
		t.Errorf("total costs %v != detailed groups %v", rec.TotalCosts, detailed)
	}
	if rec.TotalCosts != all {
		t.Errorf("total costs %v != sum of entries %v", rec.TotalCosts, all)
	}
	if rec.CostOfSalesTotal != rec.TotalCostOfSales || rec.LaborTotal != rec.TotalLaborCosts {
		t.Errorf("summary and detailed disagree: cos %v/%v labor %v/%v",
			rec.CostOfSalesTotal, rec.TotalCostOfSales, rec.LaborTotal, rec.TotalLaborCosts)
	}
}

func TestCalculateNoData(t *testing.T) {
	calc := NewCalculator(mustDefault(t))
	_, err := calc.Calculate("L9", 2024, 2, nil)
	if !errors.Is(err, core.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	if !strings.Contains(err.Error(), "L9") {
		t.Errorf("error %q does not name the location", err)
	}
}

func TestCalculateInvalidPeriod(t *testing.T) {
	calc := NewCalculator(mustDefault(t))
	_, err := calc.Calculate("L1", 2024, 13, []core.LedgerEntry{entry("Huur", -1)})
	if !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("err = %v, want ErrInvalidPeriod", err)
	}
}

func TestCalculateUnmappedExcludedAndBrokenDown(t *testing.T) {
	calc := NewCalculator(mustDefault(t))
	entries := []core.LedgerEntry{
		entry("Omzet keuken", 1000),
		entry("Mysterieuze kosten", -250),
		entry("Mysterieuze kosten", -50),
		entry("Huur", -400),
	}

	rec, err := calc.Calculate("L1", 2024, 3, entries)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if rec.Resultaat != core.FromEuros(600) {
		t.Errorf("resultaat = %v, want 600.00 (unmapped excluded)", rec.Resultaat)
	}

	want := []core.SubcategoryAmount{
		{Subcategory: "Huur", Bucket: "housing", Amount: core.FromEuros(-400)},
		{Subcategory: "Mysterieuze kosten", Bucket: "", Amount: core.FromEuros(-300)},
		{Subcategory: "Omzet keuken", Bucket: "revenue_food", Amount: core.FromEuros(1000)},
	}
	if len(rec.Breakdown) != len(want) {
		t.Fatalf("breakdown = %+v", rec.Breakdown)
	}
	for i := range want {
		if rec.Breakdown[i] != want[i] {
			t.Errorf("breakdown[%d] = %+v, want %+v", i, rec.Breakdown[i], want[i])
		}
	}
}

func TestCalculateWithAlternateTaxonomy(t *testing.T) {
	tax, err := taxonomy.Load(strings.NewReader(`
version: test
summary:
  revenue_food:
    labels: [Food]
detailed:
  housing:
    labels: [Rent]
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec, err := NewCalculator(tax).Calculate("L1", 2024, 3, []core.LedgerEntry{entry("Food", 10), entry("Rent", -4)})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if rec.Resultaat != core.FromEuros(6) {
		t.Errorf("resultaat = %v, want 6.00", rec.Resultaat)
	}
}
