package core

import "fmt"

// SummaryBucket is one coarse taxonomy bucket.
type SummaryBucket string

const (
	RevenueFood         SummaryBucket = "revenue_food"
	RevenueBeverage     SummaryBucket = "revenue_beverage"
	CostOfSalesFood     SummaryBucket = "cost_of_sales_food"
	CostOfSalesBeverage SummaryBucket = "cost_of_sales_beverage"
	LaborContract       SummaryBucket = "labor_contract"
	LaborFlex           SummaryBucket = "labor_flex"
)

// SummaryBuckets lists every summary bucket in reporting order.
func SummaryBuckets() []SummaryBucket {
	return []SummaryBucket{RevenueFood, RevenueBeverage, CostOfSalesFood, CostOfSalesBeverage, LaborContract, LaborFlex}
}

func (b SummaryBucket) Valid() bool {
	switch b {
	case RevenueFood, RevenueBeverage, CostOfSalesFood, CostOfSalesBeverage, LaborContract, LaborFlex:
		return true
	}
	return false
}

// DetailedBucket is one fine-grained taxonomy bucket.
type DetailedBucket string

const (
	CostOfGoods           DetailedBucket = "cost_of_goods"
	Wages                 DetailedBucket = "wages"
	Housing               DetailedBucket = "housing"
	Operating             DetailedBucket = "operating"
	Sales                 DetailedBucket = "sales"
	Vehicle               DetailedBucket = "vehicle"
	Office                DetailedBucket = "office"
	Insurance             DetailedBucket = "insurance"
	Accounting            DetailedBucket = "accounting"
	Administrative        DetailedBucket = "administrative"
	OtherCosts            DetailedBucket = "other"
	Depreciation          DetailedBucket = "depreciation"
	Financial             DetailedBucket = "financial"
	IncomeFromReceivables DetailedBucket = "income_from_receivables"
)

// RollupGroup is the legacy rollup a detailed bucket contributes to.
type RollupGroup string

const (
	GroupCostOfSales RollupGroup = "cost_of_sales"
	GroupLabor       RollupGroup = "labor"
	GroupOtherCosts  RollupGroup = "other_costs"
	GroupIncome      RollupGroup = "income"
)

// DetailedBuckets lists every detailed bucket in reporting order.
func DetailedBuckets() []DetailedBucket {
	return []DetailedBucket{
		CostOfGoods, Wages, Housing, Operating, Sales, Vehicle, Office, Insurance,
		Accounting, Administrative, OtherCosts, Depreciation, Financial, IncomeFromReceivables,
	}
}

// Group returns the rollup group of the bucket, or "" for unknown buckets.
func (b DetailedBucket) Group() RollupGroup {
	switch b {
	case CostOfGoods:
		return GroupCostOfSales
	case Wages:
		return GroupLabor
	case IncomeFromReceivables:
		return GroupIncome
	case Housing, Operating, Sales, Vehicle, Office, Insurance, Accounting, Administrative, OtherCosts, Depreciation, Financial:
		return GroupOtherCosts
	}
	return ""
}

func (b DetailedBucket) Valid() bool {
	return b.Group() != ""
}

// LedgerEntry is one categorized financial line item. Costs are negative.
type LedgerEntry struct {
	LocationID  string
	Year        int
	Month       int
	Category    string
	Subcategory string
	GLAccount   string
	Amount      Money
}

// PnLKey identifies an aggregated P&L record.
type PnLKey struct {
	LocationID string
	Year       int
	Month      int
}

func (k PnLKey) String() string {
	return fmt.Sprintf("%q/%04d-%02d", k.LocationID, k.Year, k.Month)
}

// SubcategoryAmount is one drill-down row of a P&L record.
type SubcategoryAmount struct {
	Subcategory string
	Bucket      string // detailed bucket key, or "" when unmapped
	Amount      Money
}

// PnLRecord is the aggregated profit-and-loss result for one location and month.
type PnLRecord struct {
	Key PnLKey

	// Summary splits
	RevenueFood         Money
	RevenueBeverage     Money
	RevenueTotal        Money
	CostOfSalesFood     Money
	CostOfSalesBeverage Money
	CostOfSalesTotal    Money
	LaborContract       Money
	LaborFlex           Money
	LaborTotal          Money

	// Detailed splits, one per detailed bucket
	Detailed map[DetailedBucket]Money

	// Legacy rollups
	TotalRevenue     Money
	TotalCostOfSales Money
	TotalLaborCosts  Money
	TotalOtherCosts  Money
	TotalCosts       Money

	Resultaat  Money
	EntryCount int

	Breakdown []SubcategoryAmount
}

// DetailedTotal returns the sum of detailed buckets in the given group.
func (r PnLRecord) DetailedTotal(g RollupGroup) Money {
	var total Money
	for _, b := range DetailedBuckets() {
		if b.Group() == g {
			total = total.Add(r.Detailed[b])
		}
	}
	return total
}
