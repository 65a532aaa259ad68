package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date format used in keys and storage.
const DateLayout = "2006-01-02"

const (
	KindShift        RecordKind = "shift"
	KindPlannedShift RecordKind = "planned_shift"
	KindRevenueDay   RecordKind = "revenue_day"
)

type (
	RecordKind string

	// Payload is the opaque, semi-structured body of an external observation.
	Payload map[string]any

	// RawRecord is one observation from an external source: a normalized
	// envelope plus the original payload. The core only reads it.
	RawRecord struct {
		ID            int64
		Source        string
		Kind          RecordKind
		Date          string // YYYY-MM-DD
		ExternalID    string
		LocationID    string
		TeamID        string
		ParticipantID string
		Payload       Payload
	}

	// DateRange is an inclusive range of calendar dates.
	DateRange struct {
		From string
		To   string
	}

	// Filter narrows a run to a location and/or team. Empty means any.
	Filter struct {
		LocationID string
		TeamID     string
	}

	// BucketKey is the composite natural key of an aggregate bucket.
	BucketKey struct {
		Date       string
		LocationID string
		TeamID     string
	}
)

var (
	ErrInvalidRange  = errors.New("invalid date range")
	ErrInvalidPeriod = errors.New("invalid period")
	ErrNoData        = errors.New("no data")
)

// NewDateRange parses and validates an inclusive range.
func NewDateRange(from, to string) (DateRange, error) {
	r := DateRange{From: strings.TrimSpace(from), To: strings.TrimSpace(to)}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

func (r DateRange) Validate() error {
	from, err := time.Parse(DateLayout, r.From)
	if err != nil {
		return fmt.Errorf("%w: from %q", ErrInvalidRange, r.From)
	}
	to, err := time.Parse(DateLayout, r.To)
	if err != nil {
		return fmt.Errorf("%w: to %q", ErrInvalidRange, r.To)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: %s is before %s", ErrInvalidRange, r.To, r.From)
	}
	return nil
}

// Contains reports whether date (YYYY-MM-DD) lies within the range.
func (r DateRange) Contains(date string) bool {
	return date >= r.From && date <= r.To
}

func (f Filter) Matches(locationID, teamID string) bool {
	if f.LocationID != "" && f.LocationID != locationID {
		return false
	}
	if f.TeamID != "" && f.TeamID != teamID {
		return false
	}
	return true
}

// String renders the key with each component quoted, so separators inside
// identifiers can never make two different keys render the same.
func (k BucketKey) String() string {
	return strconv.Quote(k.Date) + "|" + strconv.Quote(k.LocationID) + "|" + strconv.Quote(k.TeamID)
}

// Less orders keys by date, then location, then team.
func (k BucketKey) Less(o BucketKey) bool {
	if k.Date != o.Date {
		return k.Date < o.Date
	}
	if k.LocationID != o.LocationID {
		return k.LocationID < o.LocationID
	}
	return k.TeamID < o.TeamID
}

// ValidatePeriod checks a (year, month) pair.
func ValidatePeriod(year, month int) error {
	if year < 1900 || year > 3000 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, month)
	}
	return nil
}
