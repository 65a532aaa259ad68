package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"horeca/internal/core"
)

// StoredPnL is a persisted P&L record with the validation annotations
// written alongside it.
type StoredPnL struct {
	ID                int64
	Record            core.PnLRecord
	ValidationStatus  core.ValidationStatus
	MissingCategories []core.DetailedBucket
	BalanceStatus     core.BalanceStatus
}

type moneyColumn struct {
	name string
	ptr  func(*core.PnLRecord) *core.Money
}

type detailedColumn struct {
	name   string
	bucket core.DetailedBucket
}

var summaryColumns = []moneyColumn{
	{"revenue_food_cents", func(r *core.PnLRecord) *core.Money { return &r.RevenueFood }},
	{"revenue_beverage_cents", func(r *core.PnLRecord) *core.Money { return &r.RevenueBeverage }},
	{"revenue_total_cents", func(r *core.PnLRecord) *core.Money { return &r.RevenueTotal }},
	{"cost_of_sales_food_cents", func(r *core.PnLRecord) *core.Money { return &r.CostOfSalesFood }},
	{"cost_of_sales_beverage_cents", func(r *core.PnLRecord) *core.Money { return &r.CostOfSalesBeverage }},
	{"cost_of_sales_total_cents", func(r *core.PnLRecord) *core.Money { return &r.CostOfSalesTotal }},
	{"labor_contract_cents", func(r *core.PnLRecord) *core.Money { return &r.LaborContract }},
	{"labor_flex_cents", func(r *core.PnLRecord) *core.Money { return &r.LaborFlex }},
	{"labor_total_cents", func(r *core.PnLRecord) *core.Money { return &r.LaborTotal }},
	{"total_revenue_cents", func(r *core.PnLRecord) *core.Money { return &r.TotalRevenue }},
	{"total_cost_of_sales_cents", func(r *core.PnLRecord) *core.Money { return &r.TotalCostOfSales }},
	{"total_labor_costs_cents", func(r *core.PnLRecord) *core.Money { return &r.TotalLaborCosts }},
	{"total_other_costs_cents", func(r *core.PnLRecord) *core.Money { return &r.TotalOtherCosts }},
	{"total_costs_cents", func(r *core.PnLRecord) *core.Money { return &r.TotalCosts }},
	{"resultaat_cents", func(r *core.PnLRecord) *core.Money { return &r.Resultaat }},
}

var detailedColumns = func() []detailedColumn {
	var cols []detailedColumn
	for _, b := range core.DetailedBuckets() {
		cols = append(cols, detailedColumn{name: "detailed_" + string(b) + "_cents", bucket: b})
	}
	return cols
}()

// pnlColumns lists every non-key column in a fixed order shared by the
// insert, update and select statements.
func pnlColumns() []string {
	var cols []string
	for _, c := range summaryColumns {
		cols = append(cols, c.name)
	}
	for _, c := range detailedColumns {
		cols = append(cols, c.name)
	}
	return append(cols, "entry_count", "validation_status", "missing_categories", "balance_status")
}

var upsertPnLQuery = func() string {
	cols := pnlColumns()
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = excluded." + c
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+3), ", ")
	return "INSERT INTO pnl_aggregates (location_id, year, month, " + strings.Join(cols, ", ") + ")" +
		" VALUES (" + placeholders + ")" +
		" ON CONFLICT (location_id, year, month) DO UPDATE SET " + strings.Join(sets, ", ") +
		" RETURNING id"
}()

var selectPnLQuery = "SELECT id, location_id, year, month, " + strings.Join(pnlColumns(), ", ") +
	" FROM pnl_aggregates WHERE location_id = ? AND year = ? AND month = ?"

// UpsertPnL writes the record and its subcategory breakdown in one
// transaction. Breakdown rows no longer produced by the record are removed
// so the stored drill-down always matches the current ledger.
func (r *SQLiteRepository) UpsertPnL(ctx context.Context, rec core.PnLRecord, report core.ValidationReport) (int64, error) {
	args := []any{rec.Key.LocationID, rec.Key.Year, rec.Key.Month}
	for _, c := range summaryColumns {
		args = append(args, c.ptr(&rec).Cents)
	}
	for _, c := range detailedColumns {
		args = append(args, rec.Detailed[c.bucket].Cents)
	}
	args = append(args, rec.EntryCount, string(report.Status),
		joinBuckets(report.MissingCategories), string(report.Balance.Status))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRowContext(ctx, upsertPnLQuery, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert pnl aggregate %s: %w", rec.Key, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pnl_subcategory_breakdown (aggregate_id, subcategory, bucket, amount_cents)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (aggregate_id, subcategory) DO UPDATE SET
			bucket = excluded.bucket,
			amount_cents = excluded.amount_cents`)
	if err != nil {
		return 0, fmt.Errorf("prepare breakdown upsert: %w", err)
	}
	defer stmt.Close()

	keep := make([]any, 0, len(rec.Breakdown)+1)
	keep = append(keep, id)
	for _, b := range rec.Breakdown {
		if _, err := stmt.ExecContext(ctx, id, b.Subcategory, b.Bucket, b.Amount.Cents); err != nil {
			return 0, fmt.Errorf("upsert breakdown %q: %w", b.Subcategory, err)
		}
		keep = append(keep, b.Subcategory)
	}

	del := "DELETE FROM pnl_subcategory_breakdown WHERE aggregate_id = ?"
	if len(rec.Breakdown) > 0 {
		del += " AND subcategory NOT IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(rec.Breakdown)), ", ") + ")"
	}
	if _, err := tx.ExecContext(ctx, del, keep...); err != nil {
		return 0, fmt.Errorf("prune breakdown: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit pnl aggregate: %w", err)
	}
	return id, nil
}

// GetPnL loads a stored record and its breakdown. Returns sql.ErrNoRows
// wrapped when the key has never been written.
func (r *SQLiteRepository) GetPnL(ctx context.Context, key core.PnLKey) (StoredPnL, error) {
	var (
		out     StoredPnL
		status  string
		missing string
		balance string
	)
	rec := &out.Record
	rec.Detailed = make(map[core.DetailedBucket]core.Money, len(detailedColumns))
	detailed := make([]int64, len(detailedColumns))

	dest := []any{&out.ID, &rec.Key.LocationID, &rec.Key.Year, &rec.Key.Month}
	for _, c := range summaryColumns {
		dest = append(dest, &c.ptr(rec).Cents)
	}
	for i := range detailedColumns {
		dest = append(dest, &detailed[i])
	}
	dest = append(dest, &rec.EntryCount, &status, &missing, &balance)

	err := r.db.QueryRowContext(ctx, selectPnLQuery, key.LocationID, key.Year, key.Month).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredPnL{}, fmt.Errorf("pnl aggregate %s: %w", key, err)
	}
	if err != nil {
		return StoredPnL{}, fmt.Errorf("get pnl aggregate %s: %w", key, err)
	}
	for i, c := range detailedColumns {
		rec.Detailed[c.bucket] = core.Money{Cents: detailed[i]}
	}
	out.ValidationStatus = core.ValidationStatus(status)
	out.MissingCategories = splitBuckets(missing)
	out.BalanceStatus = core.BalanceStatus(balance)

	rows, err := r.db.QueryContext(ctx, `
		SELECT subcategory, bucket, amount_cents FROM pnl_subcategory_breakdown
		WHERE aggregate_id = ? ORDER BY subcategory`, out.ID)
	if err != nil {
		return StoredPnL{}, fmt.Errorf("query breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b core.SubcategoryAmount
		if err := rows.Scan(&b.Subcategory, &b.Bucket, &b.Amount.Cents); err != nil {
			return StoredPnL{}, fmt.Errorf("scan breakdown: %w", err)
		}
		rec.Breakdown = append(rec.Breakdown, b)
	}
	if err := rows.Err(); err != nil {
		return StoredPnL{}, fmt.Errorf("iterate breakdown: %w", err)
	}
	return out, nil
}

func joinBuckets(bs []core.DetailedBucket) string {
	parts := make([]string, len(bs))
	for i, b := range bs {
		parts[i] = string(b)
	}
	return strings.Join(parts, ",")
}

func splitBuckets(s string) []core.DetailedBucket {
	if s == "" {
		return nil
	}
	var out []core.DetailedBucket
	for _, p := range strings.Split(s, ",") {
		out = append(out, core.DetailedBucket(p))
	}
	return out
}
