package aggregate

import (
	"testing"

	"horeca/internal/core"
)

func revenueDay(id int64, date, loc string, p core.Payload) core.RawRecord {
	return core.RawRecord{ID: id, Kind: core.KindRevenueDay, Date: date, LocationID: loc, Payload: p}
}

func TestReduceRevenue(t *testing.T) {
	records := []core.RawRecord{
		revenueDay(1, "2024-05-01", "10", core.Payload{"revenue": 1200.50, "transactions": 40}),
		revenueDay(2, "2024-05-01", "10", core.Payload{"totals": map[string]any{"revenue": "799,50", "transactions": 10}}),
		revenueDay(3, "2024-05-01", "11", core.Payload{"turnover": 100.0}),
		revenueDay(4, "2024-05-01", "", core.Payload{"environment": map[string]any{"id": 12, "name": nil}, "amount": 5.0}),
	}
	res := ReduceRevenue(records, core.Filter{})
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(res.Rows))
	}

	byLoc := map[string]core.RevenueAggregate{}
	for _, r := range res.Rows {
		byLoc[r.Key.LocationID] = r
	}
	loc10 := byLoc["10"]
	if loc10.TotalRevenue.Cents != 200000 || loc10.TransactionCount != 50 || loc10.RecordCount != 2 {
		t.Errorf("unexpected location 10 row: %+v", loc10)
	}
	if loc10.AvgRevenuePerTransaction != 40 {
		t.Errorf("AvgRevenuePerTransaction = %v, want 40", loc10.AvgRevenuePerTransaction)
	}
	if loc11 := byLoc["11"]; loc11.AvgRevenuePerTransaction != 0 || loc11.TotalRevenue.Cents != 10000 {
		t.Errorf("zero transactions must give zero average: %+v", loc11)
	}
	if _, ok := byLoc["12"]; !ok {
		t.Errorf("location from payload object not resolved: %+v", res.Rows)
	}
}

func TestReduceRevenue_LocationFilter(t *testing.T) {
	records := []core.RawRecord{
		revenueDay(1, "2024-05-01", "10", core.Payload{"revenue": 1.0}),
		revenueDay(2, "2024-05-01", "11", core.Payload{"revenue": 1.0}),
	}
	res := ReduceRevenue(records, core.Filter{LocationID: "11"})
	if res.Processed != 1 || len(res.Rows) != 1 || res.Rows[0].Key.LocationID != "11" {
		t.Fatalf("unexpected filtered result: %+v", res)
	}
}
