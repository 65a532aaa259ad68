package core

import "time"

// LaborAggregate is the reduced shift summary for one (date, location, team).
// Averages are derived when the bucket is finished, never accumulated.
type LaborAggregate struct {
	Key                 BucketKey
	TotalHours          float64
	PlannedHours        float64
	TotalBreakMinutes   float64
	TotalCost           Money
	EmployeeCount       int
	ShiftCount          int
	AvgHoursPerEmployee float64
	AvgHourlyRate       float64
}

// RevenueAggregate is the reduced revenue summary for one (date, location).
type RevenueAggregate struct {
	Key                      BucketKey
	TotalRevenue             Money
	TransactionCount         int
	RecordCount              int
	AvgRevenuePerTransaction float64
}

// ProcessResult summarizes one aggregation run over a date range.
type ProcessResult struct {
	RunID             string
	RecordsProcessed  int
	RecordsAggregated int
	BucketsDeleted    int
	Errors            []string
	ProcessingTime    time.Duration
}
