package aggregate

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"horeca/internal/core"
	"horeca/internal/normalize"
)

// LaborReducer reduces shift and planned-shift records per (date, location, team).
type LaborReducer struct {
	Filter core.Filter
}

type laborAcc struct {
	key          core.BucketKey
	hours        float64
	planned      float64
	breakMinutes float64
	cost         core.Money
	participants map[string]struct{}
	shifts       int
}

var _ Reducer[core.BucketKey, *laborAcc, core.LaborAggregate] = LaborReducer{}

// ReduceLabor groups shift records into labor aggregates.
func ReduceLabor(records []core.RawRecord, filter core.Filter) Result[core.BucketKey, core.LaborAggregate] {
	return Reduce[core.BucketKey, *laborAcc, core.LaborAggregate](records, LaborReducer{Filter: filter}, ByKey)
}

func (LaborReducer) Key(r core.RawRecord) (core.BucketKey, error) {
	if r.Kind != core.KindShift && r.Kind != core.KindPlannedShift {
		return core.BucketKey{}, fmt.Errorf("unexpected record kind %q", r.Kind)
	}
	return envelopeKey(r, true)
}

func (lr LaborReducer) Include(key core.BucketKey) bool {
	return lr.Filter.Matches(key.LocationID, key.TeamID)
}

func (LaborReducer) New(key core.BucketKey) *laborAcc {
	return &laborAcc{key: key, participants: make(map[string]struct{})}
}

func (LaborReducer) Add(acc *laborAcc, r core.RawRecord) error {
	p := r.Payload
	if r.Kind == core.KindPlannedShift {
		hours, _ := recordHours(r, normalize.PlannedHoursPaths)
		if hours < 0 {
			return fmt.Errorf("negative planned hours %v", hours)
		}
		acc.planned += hours
		return nil
	}

	hours, breakMinutes := recordHours(r, normalize.HoursPaths)
	if hours < 0 {
		return fmt.Errorf("negative hours %v", hours)
	}
	if breakMinutes < 0 {
		return fmt.Errorf("negative break minutes %v", breakMinutes)
	}

	cost, ok := normalize.Float(p, normalize.CostPaths)
	if !ok {
		cost = normalize.FloatOr(p, normalize.HourlyRatePaths, 0) * hours
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return errors.New("non-finite labor cost")
	}

	acc.hours += hours
	acc.breakMinutes += breakMinutes
	acc.cost = acc.cost.Add(core.FromEuros(cost))
	acc.shifts++

	participant := r.ParticipantID
	if participant == "" {
		participant = normalize.String(p, normalize.ParticipantPaths, "")
	}
	if participant != "" {
		acc.participants[participant] = struct{}{}
	}
	return nil
}

func (LaborReducer) Finish(acc *laborAcc) (core.LaborAggregate, error) {
	row := core.LaborAggregate{
		Key:               acc.key,
		TotalHours:        normalize.Round2(acc.hours),
		PlannedHours:      normalize.Round2(acc.planned),
		TotalBreakMinutes: normalize.Round2(acc.breakMinutes),
		TotalCost:         acc.cost,
		EmployeeCount:     len(acc.participants),
		ShiftCount:        acc.shifts,
	}
	if row.EmployeeCount > 0 {
		row.AvgHoursPerEmployee = normalize.Round2(acc.hours / float64(row.EmployeeCount))
	}
	if acc.hours > 0 {
		row.AvgHourlyRate = normalize.Round2(acc.cost.Euros() / acc.hours)
	}
	return row, nil
}

// recordHours returns worked hours and break minutes for a record: the
// explicit hours field when present, else the span between start and end.
func recordHours(r core.RawRecord, hoursPaths []string) (float64, float64) {
	p := r.Payload
	breakMinutes := normalize.FloatOr(p, normalize.BreakMinutesPaths, 0)
	if h, ok := normalize.Float(p, hoursPaths); ok {
		return h, breakMinutes
	}
	start := normalize.String(p, normalize.StartPaths, "")
	end := normalize.String(p, normalize.EndPaths, "")
	h, ok := normalize.ShiftHours(start, end, breakMinutes)
	if !ok {
		slog.Warn("No hours derivable for shift, counting zero",
			"record_id", r.ID,
			"external_id", r.ExternalID,
			"date", r.Date)
	}
	return h, breakMinutes
}

// envelopeKey builds the bucket key from the record envelope, falling back
// to the payload for location and team.
func envelopeKey(r core.RawRecord, withTeam bool) (core.BucketKey, error) {
	if r.Date == "" {
		return core.BucketKey{}, errors.New("record has no date")
	}
	key := core.BucketKey{Date: r.Date, LocationID: r.LocationID}
	if key.LocationID == "" {
		key.LocationID = normalize.String(r.Payload, normalize.LocationPaths, "")
	}
	if key.LocationID == "" {
		return core.BucketKey{}, errors.New("record has no location")
	}
	if withTeam {
		key.TeamID = r.TeamID
		if key.TeamID == "" {
			key.TeamID = normalize.String(r.Payload, normalize.TeamPaths, "")
		}
	}
	return key, nil
}
