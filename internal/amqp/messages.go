package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"horeca/internal/core"
	"horeca/internal/sources"
)

const (
	KindLabor   = "labor"
	KindRevenue = "revenue"
	KindPnL     = "pnl"
)

// AggregationRequest asks the worker to run one aggregation. Labor and
// revenue requests carry a date range; P&L requests carry a period and an
// optional location (empty means every location with ledger data).
type AggregationRequest struct {
	Kind       string    `json:"kind"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	LocationID string    `json:"location_id,omitempty"`
	TeamID     string    `json:"team_id,omitempty"`
	Year       int       `json:"year,omitempty"`
	Month      int       `json:"month,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewRangeRequest(kind string, rng core.DateRange, f core.Filter) *AggregationRequest {
	return &AggregationRequest{
		Kind:       kind,
		From:       rng.From,
		To:         rng.To,
		LocationID: f.LocationID,
		TeamID:     f.TeamID,
		Timestamp:  time.Now(),
	}
}

func NewPnLRequest(locationID string, year, month int) *AggregationRequest {
	return &AggregationRequest{
		Kind:       KindPnL,
		LocationID: locationID,
		Year:       year,
		Month:      month,
		Timestamp:  time.Now(),
	}
}

// Validate checks that the fields required by Kind are present.
func (r *AggregationRequest) Validate() error {
	switch r.Kind {
	case KindLabor, KindRevenue:
		if _, err := core.NewDateRange(r.From, r.To); err != nil {
			return err
		}
		if r.Kind == KindRevenue && r.TeamID != "" {
			return fmt.Errorf("revenue requests cannot filter by team")
		}
		return nil
	case KindPnL:
		return core.ValidatePeriod(r.Year, r.Month)
	}
	return fmt.Errorf("unknown aggregation kind %q", r.Kind)
}

func (r *AggregationRequest) Range() core.DateRange {
	return core.DateRange{From: r.From, To: r.To}
}

func (r *AggregationRequest) Filter() core.Filter {
	return core.Filter{LocationID: r.LocationID, TeamID: r.TeamID}
}

func (r *AggregationRequest) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

func AggregationRequestFromJSON(data []byte) (*AggregationRequest, error) {
	var msg AggregationRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AggregationCompleted is published after every run, successful or not.
type AggregationCompleted struct {
	RunID             string    `json:"run_id"`
	Kind              string    `json:"kind"`
	Status            string    `json:"status"`
	From              string    `json:"from,omitempty"`
	To                string    `json:"to,omitempty"`
	LocationID        string    `json:"location_id,omitempty"`
	TeamID            string    `json:"team_id,omitempty"`
	Year              int       `json:"year,omitempty"`
	Month             int       `json:"month,omitempty"`
	RecordsProcessed  int       `json:"records_processed"`
	RecordsAggregated int       `json:"records_aggregated"`
	Errors            []string  `json:"errors,omitempty"`
	DurationMS        int64     `json:"duration_ms"`
	CompletedAt       time.Time `json:"completed_at"`
}

func NewAggregationCompleted(ev sources.CompletionEvent) *AggregationCompleted {
	return &AggregationCompleted{
		RunID:             ev.RunID,
		Kind:              ev.Kind,
		Status:            ev.Status,
		From:              ev.From,
		To:                ev.To,
		LocationID:        ev.LocationID,
		TeamID:            ev.TeamID,
		Year:              ev.Year,
		Month:             ev.Month,
		RecordsProcessed:  ev.RecordsProcessed,
		RecordsAggregated: ev.RecordsAggregated,
		Errors:            ev.Errors,
		DurationMS:        ev.ProcessingTime.Milliseconds(),
		CompletedAt:       ev.CompletedAt,
	}
}

func (m *AggregationCompleted) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
