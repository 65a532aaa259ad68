package aggregate

import (
	"fmt"

	"horeca/internal/core"
	"horeca/internal/normalize"
)

// RevenueReducer reduces revenue-day records per (date, location).
type RevenueReducer struct {
	Filter core.Filter
}

type revenueAcc struct {
	key          core.BucketKey
	revenue      core.Money
	transactions int
	records      int
}

var _ Reducer[core.BucketKey, *revenueAcc, core.RevenueAggregate] = RevenueReducer{}

// ReduceRevenue groups revenue-day records into revenue aggregates.
func ReduceRevenue(records []core.RawRecord, filter core.Filter) Result[core.BucketKey, core.RevenueAggregate] {
	return Reduce[core.BucketKey, *revenueAcc, core.RevenueAggregate](records, RevenueReducer{Filter: filter}, ByKey)
}

func (RevenueReducer) Key(r core.RawRecord) (core.BucketKey, error) {
	if r.Kind != core.KindRevenueDay {
		return core.BucketKey{}, fmt.Errorf("unexpected record kind %q", r.Kind)
	}
	return envelopeKey(r, false)
}

func (rr RevenueReducer) Include(key core.BucketKey) bool {
	return rr.Filter.Matches(key.LocationID, "")
}

func (RevenueReducer) New(key core.BucketKey) *revenueAcc {
	return &revenueAcc{key: key}
}

func (RevenueReducer) Add(acc *revenueAcc, r core.RawRecord) error {
	transactions := normalize.Int(r.Payload, normalize.TransactionCountPaths, 0)
	if transactions < 0 {
		return fmt.Errorf("negative transaction count %d", transactions)
	}
	revenue := normalize.FloatOr(r.Payload, normalize.RevenuePaths, 0)
	acc.revenue = acc.revenue.Add(core.FromEuros(revenue))
	acc.transactions += transactions
	acc.records++
	return nil
}

func (RevenueReducer) Finish(acc *revenueAcc) (core.RevenueAggregate, error) {
	row := core.RevenueAggregate{
		Key:              acc.key,
		TotalRevenue:     acc.revenue,
		TransactionCount: acc.transactions,
		RecordCount:      acc.records,
	}
	if acc.transactions > 0 {
		row.AvgRevenuePerTransaction = normalize.Round2(acc.revenue.Euros() / float64(acc.transactions))
	}
	return row, nil
}
