package storage

import (
	"context"
	"fmt"

	"horeca/internal/core"
)

// UpsertLaborAggregate overwrites the bucket identified by its key.
func (r *SQLiteRepository) UpsertLaborAggregate(ctx context.Context, a core.LaborAggregate) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO labor_aggregates (
			date, location_id, team_id, total_hours, planned_hours, total_break_minutes,
			total_cost_cents, employee_count, shift_count, avg_hours_per_employee, avg_hourly_rate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (date, location_id, team_id) DO UPDATE SET
			total_hours = excluded.total_hours,
			planned_hours = excluded.planned_hours,
			total_break_minutes = excluded.total_break_minutes,
			total_cost_cents = excluded.total_cost_cents,
			employee_count = excluded.employee_count,
			shift_count = excluded.shift_count,
			avg_hours_per_employee = excluded.avg_hours_per_employee,
			avg_hourly_rate = excluded.avg_hourly_rate`,
		a.Key.Date, a.Key.LocationID, a.Key.TeamID, a.TotalHours, a.PlannedHours, a.TotalBreakMinutes,
		a.TotalCost.Cents, a.EmployeeCount, a.ShiftCount, a.AvgHoursPerEmployee, a.AvgHourlyRate,
	)
	if err != nil {
		return fmt.Errorf("upsert labor aggregate %s: %w", a.Key, err)
	}
	return nil
}

// UpsertRevenueAggregate overwrites the (date, location) bucket.
func (r *SQLiteRepository) UpsertRevenueAggregate(ctx context.Context, a core.RevenueAggregate) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revenue_aggregates (
			date, location_id, total_revenue_cents, transaction_count, record_count, avg_revenue_per_transaction
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (date, location_id) DO UPDATE SET
			total_revenue_cents = excluded.total_revenue_cents,
			transaction_count = excluded.transaction_count,
			record_count = excluded.record_count,
			avg_revenue_per_transaction = excluded.avg_revenue_per_transaction`,
		a.Key.Date, a.Key.LocationID, a.TotalRevenue.Cents, a.TransactionCount, a.RecordCount, a.AvgRevenuePerTransaction,
	)
	if err != nil {
		return fmt.Errorf("upsert revenue aggregate %s: %w", a.Key, err)
	}
	return nil
}

// DeleteLaborAggregatesExcept removes labor buckets in rng that match f and
// are not listed in keep.
func (r *SQLiteRepository) DeleteLaborAggregatesExcept(ctx context.Context, rng core.DateRange, f core.Filter, keep []core.BucketKey) (int, error) {
	n, err := r.pruneBuckets(ctx, "labor_aggregates", true, rng, f, keep)
	if err != nil {
		return 0, fmt.Errorf("prune labor aggregates: %w", err)
	}
	return n, nil
}

// DeleteRevenueAggregatesExcept removes revenue buckets in rng that match
// f's location and are not listed in keep.
func (r *SQLiteRepository) DeleteRevenueAggregatesExcept(ctx context.Context, rng core.DateRange, f core.Filter, keep []core.BucketKey) (int, error) {
	f.TeamID = ""
	n, err := r.pruneBuckets(ctx, "revenue_aggregates", false, rng, f, keep)
	if err != nil {
		return 0, fmt.Errorf("prune revenue aggregates: %w", err)
	}
	return n, nil
}

// pruneBuckets lists the stored keys owned by a run and deletes the ones it
// did not write, in one transaction.
func (r *SQLiteRepository) pruneBuckets(ctx context.Context, table string, withTeam bool, rng core.DateRange, f core.Filter, keep []core.BucketKey) (int, error) {
	kept := make(map[core.BucketKey]struct{}, len(keep))
	for _, k := range keep {
		if !withTeam {
			k.TeamID = ""
		}
		kept[k] = struct{}{}
	}

	teamCol := "''"
	if withTeam {
		teamCol = "team_id"
	}
	query := fmt.Sprintf(`SELECT date, location_id, %s FROM %s WHERE date BETWEEN ? AND ?`, teamCol, table)
	args := []any{rng.From, rng.To}
	if f.LocationID != "" {
		query += " AND location_id = ?"
		args = append(args, f.LocationID)
	}
	if withTeam && f.TeamID != "" {
		query += " AND team_id = ?"
		args = append(args, f.TeamID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("query stored keys: %w", err)
	}
	var stale []core.BucketKey
	for rows.Next() {
		var k core.BucketKey
		if err := rows.Scan(&k.Date, &k.LocationID, &k.TeamID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan stored key: %w", err)
		}
		if _, ok := kept[k]; !ok {
			stale = append(stale, k)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate stored keys: %w", err)
	}
	rows.Close()

	if len(stale) == 0 {
		return 0, nil
	}

	del := fmt.Sprintf(`DELETE FROM %s WHERE date = ? AND location_id = ?`, table)
	if withTeam {
		del += " AND team_id = ?"
	}
	stmt, err := tx.PrepareContext(ctx, del)
	if err != nil {
		return 0, fmt.Errorf("prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, k := range stale {
		args := []any{k.Date, k.LocationID}
		if withTeam {
			args = append(args, k.TeamID)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("delete %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(stale), nil
}

func (r *SQLiteRepository) ListLaborAggregates(ctx context.Context, rng core.DateRange) ([]core.LaborAggregate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, location_id, team_id, total_hours, planned_hours, total_break_minutes,
			total_cost_cents, employee_count, shift_count, avg_hours_per_employee, avg_hourly_rate
		FROM labor_aggregates
		WHERE date BETWEEN ? AND ?
		ORDER BY date, location_id, team_id`, rng.From, rng.To)
	if err != nil {
		return nil, fmt.Errorf("query labor aggregates: %w", err)
	}
	defer rows.Close()

	var out []core.LaborAggregate
	for rows.Next() {
		var a core.LaborAggregate
		if err := rows.Scan(&a.Key.Date, &a.Key.LocationID, &a.Key.TeamID, &a.TotalHours, &a.PlannedHours,
			&a.TotalBreakMinutes, &a.TotalCost.Cents, &a.EmployeeCount, &a.ShiftCount,
			&a.AvgHoursPerEmployee, &a.AvgHourlyRate); err != nil {
			return nil, fmt.Errorf("scan labor aggregate: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labor aggregates: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListRevenueAggregates(ctx context.Context, rng core.DateRange) ([]core.RevenueAggregate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, location_id, total_revenue_cents, transaction_count, record_count, avg_revenue_per_transaction
		FROM revenue_aggregates
		WHERE date BETWEEN ? AND ?
		ORDER BY date, location_id`, rng.From, rng.To)
	if err != nil {
		return nil, fmt.Errorf("query revenue aggregates: %w", err)
	}
	defer rows.Close()

	var out []core.RevenueAggregate
	for rows.Next() {
		var a core.RevenueAggregate
		if err := rows.Scan(&a.Key.Date, &a.Key.LocationID, &a.TotalRevenue.Cents, &a.TransactionCount,
			&a.RecordCount, &a.AvgRevenuePerTransaction); err != nil {
			return nil, fmt.Errorf("scan revenue aggregate: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revenue aggregates: %w", err)
	}
	return out, nil
}
