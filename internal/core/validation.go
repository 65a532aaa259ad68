package core

type ValidationStatus string

const (
	StatusPass ValidationStatus = "pass"
	StatusFail ValidationStatus = "fail"
)

type BalanceStatus string

const (
	BalancePass    BalanceStatus = "pass"
	BalanceFail    BalanceStatus = "fail"
	BalanceSkipped BalanceStatus = "skipped"
)

// Discrepancy is a ledger subcategory whose amount reached no bucket.
type Discrepancy struct {
	Subcategory string
	Amount      Money
	Entries     int
}

// BalanceCheck compares the computed result against an externally stated one.
type BalanceCheck struct {
	Status         BalanceStatus
	Computed       Money
	Expected       Money
	ErrorMarginPct float64
	Source         string
}

// ValidationReport annotates a P&L record. It never blocks persistence.
type ValidationReport struct {
	Status            ValidationStatus
	MissingCategories []DetailedBucket
	Unmapped          []Discrepancy
	Inconsistencies   []string
	Balance           BalanceCheck
}
