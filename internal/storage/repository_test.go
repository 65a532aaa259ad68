package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"horeca/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "horeca.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRawRecordsRoundTripAndFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	records := []core.RawRecord{
		{Source: "shiftbase", Kind: core.KindShift, Date: "2024-03-01", ExternalID: "s1", LocationID: "L1", TeamID: "T1",
			Payload: core.Payload{"hours": 8, "user": map[string]any{"id": 12345678901}}},
		{Source: "shiftbase", Kind: core.KindShift, Date: "2024-03-02", ExternalID: "s2", LocationID: "L2", TeamID: "T1",
			Payload: core.Payload{"hours": 4}},
		{Source: "shiftbase", Kind: core.KindShift, Date: "2024-03-02", ExternalID: "s3",
			Payload: core.Payload{"location_id": "L1"}},
		{Source: "shiftbase", Kind: core.KindRevenueDay, Date: "2024-03-01", ExternalID: "r1", LocationID: "L1",
			Payload: core.Payload{"revenue": 100}},
		{Source: "shiftbase", Kind: core.KindShift, Date: "2024-04-01", ExternalID: "s4", LocationID: "L1"},
	}
	for _, rec := range records {
		if _, err := repo.InsertRawRecord(ctx, rec); err != nil {
			t.Fatalf("InsertRawRecord(%s): %v", rec.ExternalID, err)
		}
	}

	rng := core.DateRange{From: "2024-03-01", To: "2024-03-31"}
	got, err := repo.ListRawRecords(ctx, []core.RecordKind{core.KindShift}, rng, core.Filter{LocationID: "L1"})
	if err != nil {
		t.Fatalf("ListRawRecords: %v", err)
	}
	var ids []string
	for _, r := range got {
		ids = append(ids, r.ExternalID)
	}
	if want := []string{"s1", "s3"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}

	user, ok := got[0].Payload["user"].(map[string]any)
	if !ok {
		t.Fatalf("user payload = %#v", got[0].Payload["user"])
	}
	if id := user["id"]; id == nil || id.(interface{ String() string }).String() != "12345678901" {
		t.Errorf("user id = %v, want exact 12345678901", id)
	}
}

func TestInsertRawRecordReplacesDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := core.RawRecord{Source: "shiftbase", Kind: core.KindShift, Date: "2024-03-01", ExternalID: "s1", LocationID: "L1",
		Payload: core.Payload{"hours": 8}}
	first, err := repo.InsertRawRecord(ctx, rec)
	if err != nil {
		t.Fatalf("InsertRawRecord: %v", err)
	}
	rec.Payload = core.Payload{"hours": 6}
	second, err := repo.InsertRawRecord(ctx, rec)
	if err != nil {
		t.Fatalf("InsertRawRecord: %v", err)
	}
	if first != second {
		t.Errorf("ids differ: %d vs %d", first, second)
	}

	got, err := repo.ListRawRecords(ctx, []core.RecordKind{core.KindShift}, core.DateRange{From: "2024-03-01", To: "2024-03-01"}, core.Filter{})
	if err != nil {
		t.Fatalf("ListRawRecords: %v", err)
	}
	if len(got) != 1 || got[0].Payload["hours"].(interface{ String() string }).String() != "6" {
		t.Fatalf("got %+v, want a single record with hours 6", got)
	}
}

func TestLedgerEntriesAndLocations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entries := []core.LedgerEntry{
		{LocationID: "L2", Year: 2024, Month: 3, Subcategory: "Omzet keuken", Amount: core.Money{Cents: 100000}},
		{LocationID: "L1", Year: 2024, Month: 3, Subcategory: "Inkoop keuken", Amount: core.Money{Cents: -30000}},
		{LocationID: "L1", Year: 2024, Month: 4, Subcategory: "Omzet keuken", Amount: core.Money{Cents: 5000}},
	}
	if err := repo.InsertLedgerEntries(ctx, entries); err != nil {
		t.Fatalf("InsertLedgerEntries: %v", err)
	}

	locs, err := repo.ListLedgerLocations(ctx, 2024, 3)
	if err != nil {
		t.Fatalf("ListLedgerLocations: %v", err)
	}
	if want := []string{"L1", "L2"}; !reflect.DeepEqual(locs, want) {
		t.Errorf("locations = %v, want %v", locs, want)
	}

	got, err := repo.ListLedgerEntries(ctx, "L1", 2024, 3)
	if err != nil {
		t.Fatalf("ListLedgerEntries: %v", err)
	}
	if len(got) != 1 || got[0].Amount.Cents != -30000 {
		t.Errorf("entries = %+v", got)
	}
}

func TestAggregateUpsertIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	labor := core.LaborAggregate{
		Key:        core.BucketKey{Date: "2024-03-01", LocationID: "L1", TeamID: "T1"},
		TotalHours: 16, TotalCost: core.FromEuros(320), EmployeeCount: 2, ShiftCount: 2,
		AvgHoursPerEmployee: 8, AvgHourlyRate: 20,
	}
	revenue := core.RevenueAggregate{
		Key:          core.BucketKey{Date: "2024-03-01", LocationID: "L1"},
		TotalRevenue: core.FromEuros(1500), TransactionCount: 30, RecordCount: 1, AvgRevenuePerTransaction: 50,
	}

	rng := core.DateRange{From: "2024-03-01", To: "2024-03-31"}
	var firstLabor []core.LaborAggregate
	var firstRevenue []core.RevenueAggregate
	for run := 0; run < 2; run++ {
		if err := repo.UpsertLaborAggregate(ctx, labor); err != nil {
			t.Fatalf("UpsertLaborAggregate: %v", err)
		}
		if err := repo.UpsertRevenueAggregate(ctx, revenue); err != nil {
			t.Fatalf("UpsertRevenueAggregate: %v", err)
		}
		l, err := repo.ListLaborAggregates(ctx, rng)
		if err != nil {
			t.Fatalf("ListLaborAggregates: %v", err)
		}
		rv, err := repo.ListRevenueAggregates(ctx, rng)
		if err != nil {
			t.Fatalf("ListRevenueAggregates: %v", err)
		}
		if run == 0 {
			firstLabor, firstRevenue = l, rv
			continue
		}
		if !reflect.DeepEqual(l, firstLabor) || !reflect.DeepEqual(rv, firstRevenue) {
			t.Errorf("second run changed stored rows:\n%+v\n%+v", l, rv)
		}
	}
	if len(firstLabor) != 1 || !reflect.DeepEqual(firstLabor[0], labor) {
		t.Errorf("labor = %+v, want %+v", firstLabor, labor)
	}
	if len(firstRevenue) != 1 || !reflect.DeepEqual(firstRevenue[0], revenue) {
		t.Errorf("revenue = %+v, want %+v", firstRevenue, revenue)
	}
}

func TestDeleteAggregatesExcept(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	laborKeys := []core.BucketKey{
		{Date: "2024-02-29", LocationID: "L1", TeamID: "T1"},
		{Date: "2024-03-01", LocationID: "L1", TeamID: "T1"},
		{Date: "2024-03-01", LocationID: "L1", TeamID: "T2"},
		{Date: "2024-03-01", LocationID: "L2", TeamID: "T1"},
	}
	for _, k := range laborKeys {
		if err := repo.UpsertLaborAggregate(ctx, core.LaborAggregate{Key: k, TotalHours: 8}); err != nil {
			t.Fatalf("UpsertLaborAggregate: %v", err)
		}
	}
	for _, loc := range []string{"L1", "L2", "L3"} {
		if err := repo.UpsertRevenueAggregate(ctx, core.RevenueAggregate{Key: core.BucketKey{Date: "2024-03-01", LocationID: loc}}); err != nil {
			t.Fatalf("UpsertRevenueAggregate: %v", err)
		}
	}

	march := core.DateRange{From: "2024-03-01", To: "2024-03-31"}
	n, err := repo.DeleteLaborAggregatesExcept(ctx, march, core.Filter{LocationID: "L1"}, laborKeys[1:2])
	if err != nil {
		t.Fatalf("DeleteLaborAggregatesExcept: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d labor rows, want 1", n)
	}
	rows, err := repo.ListLaborAggregates(ctx, core.DateRange{From: "2024-01-01", To: "2024-12-31"})
	if err != nil {
		t.Fatalf("ListLaborAggregates: %v", err)
	}
	var got []core.BucketKey
	for _, r := range rows {
		got = append(got, r.Key)
	}
	want := []core.BucketKey{laborKeys[0], laborKeys[1], laborKeys[3]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("labor keys = %v, want %v", got, want)
	}

	n, err = repo.DeleteRevenueAggregatesExcept(ctx, march, core.Filter{}, []core.BucketKey{{Date: "2024-03-01", LocationID: "L2"}})
	if err != nil {
		t.Fatalf("DeleteRevenueAggregatesExcept: %v", err)
	}
	revenue, err := repo.ListRevenueAggregates(ctx, march)
	if err != nil {
		t.Fatalf("ListRevenueAggregates: %v", err)
	}
	if n != 2 || len(revenue) != 1 || revenue[0].Key.LocationID != "L2" {
		t.Errorf("deleted %d, revenue = %+v", n, revenue)
	}
}

func TestUpsertPnLOverwritesBreakdown(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	key := core.PnLKey{LocationID: "L1", Year: 2024, Month: 3}

	rec := core.PnLRecord{
		Key:          key,
		RevenueFood:  core.FromEuros(20000),
		RevenueTotal: core.FromEuros(20000),
		Detailed: map[core.DetailedBucket]core.Money{
			core.CostOfGoods: core.FromEuros(-3000),
			core.Wages:       core.FromEuros(-1500),
		},
		TotalRevenue: core.FromEuros(20000),
		Resultaat:    core.FromEuros(15500),
		EntryCount:   3,
		Breakdown: []core.SubcategoryAmount{
			{Subcategory: "Inkoop keuken", Bucket: "cost_of_goods", Amount: core.FromEuros(-3000)},
			{Subcategory: "Lonen", Bucket: "wages", Amount: core.FromEuros(-1500)},
		},
	}
	report := core.ValidationReport{
		Status:            core.StatusFail,
		MissingCategories: []core.DetailedBucket{core.Housing},
		Balance:           core.BalanceCheck{Status: core.BalanceSkipped},
	}

	id, err := repo.UpsertPnL(ctx, rec, report)
	if err != nil {
		t.Fatalf("UpsertPnL: %v", err)
	}

	rec.Breakdown = rec.Breakdown[:1]
	again, err := repo.UpsertPnL(ctx, rec, report)
	if err != nil {
		t.Fatalf("UpsertPnL again: %v", err)
	}
	if again != id {
		t.Errorf("id changed on re-run: %d vs %d", again, id)
	}

	stored, err := repo.GetPnL(ctx, key)
	if err != nil {
		t.Fatalf("GetPnL: %v", err)
	}
	if stored.Record.Resultaat != core.FromEuros(15500) {
		t.Errorf("resultaat = %v", stored.Record.Resultaat)
	}
	if stored.Record.Detailed[core.CostOfGoods] != core.FromEuros(-3000) || stored.Record.Detailed[core.Housing] != (core.Money{}) {
		t.Errorf("detailed = %v", stored.Record.Detailed)
	}
	if !reflect.DeepEqual(stored.Record.Breakdown, rec.Breakdown) {
		t.Errorf("breakdown = %+v, want %+v", stored.Record.Breakdown, rec.Breakdown)
	}
	if stored.ValidationStatus != core.StatusFail || stored.BalanceStatus != core.BalanceSkipped {
		t.Errorf("statuses = %q/%q", stored.ValidationStatus, stored.BalanceStatus)
	}
	if !reflect.DeepEqual(stored.MissingCategories, []core.DetailedBucket{core.Housing}) {
		t.Errorf("missing = %v", stored.MissingCategories)
	}
}

func TestGetPnLNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetPnL(context.Background(), core.PnLKey{LocationID: "nope", Year: 2024, Month: 1})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}
