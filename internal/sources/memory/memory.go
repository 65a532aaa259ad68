// Package memory is an in-process implementation of every source and writer
// port, used by the memory backend and by tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"horeca/internal/core"
	"horeca/internal/sources"
)

type Store struct {
	mu       sync.Mutex
	raw      []core.RawRecord
	ledger   []core.LedgerEntry
	labor    map[core.BucketKey]core.LaborAggregate
	revenue  map[core.BucketKey]core.RevenueAggregate
	pnl      map[core.PnLKey]StoredPnL
	expected map[core.PnLKey]core.Money
	nextID   int64
	events   []sources.CompletionEvent
}

// StoredPnL is a written P&L record with its validation report.
type StoredPnL struct {
	ID     int64
	Record core.PnLRecord
	Report core.ValidationReport
}

var (
	_ sources.RawRecordReader        = (*Store)(nil)
	_ sources.LedgerReader           = (*Store)(nil)
	_ sources.LedgerLocationLister   = (*Store)(nil)
	_ sources.LaborAggregateWriter   = (*Store)(nil)
	_ sources.RevenueAggregateWriter = (*Store)(nil)
	_ sources.PnLWriter              = (*Store)(nil)
	_ sources.ExpectedResultSource   = (*Store)(nil)
	_ sources.CompletionPublisher    = (*Store)(nil)
)

func New() *Store {
	return &Store{
		labor:    make(map[core.BucketKey]core.LaborAggregate),
		revenue:  make(map[core.BucketKey]core.RevenueAggregate),
		pnl:      make(map[core.PnLKey]StoredPnL),
		expected: make(map[core.PnLKey]core.Money),
	}
}

// AddRawRecords appends records, assigning ids to those without one.
func (s *Store) AddRawRecords(recs ...core.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		if r.ID == 0 {
			s.nextID++
			r.ID = s.nextID
		}
		s.raw = append(s.raw, r)
	}
}

func (s *Store) AddLedgerEntries(entries ...core.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = append(s.ledger, entries...)
}

// SetExpectedResult records an externally stated result for key.
func (s *Store) SetExpectedResult(key core.PnLKey, m core.Money) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expected[key] = m
}

// ListRawRecords implements sources.RawRecordReader with the same loose
// filter semantics as the SQL store.
func (s *Store) ListRawRecords(_ context.Context, kinds []core.RecordKind, rng core.DateRange, f core.Filter) ([]core.RawRecord, error) {
	want := make(map[core.RecordKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RawRecord
	for _, r := range s.raw {
		if !want[r.Kind] || !rng.Contains(r.Date) {
			continue
		}
		if f.LocationID != "" && r.LocationID != "" && r.LocationID != f.LocationID {
			continue
		}
		if f.TeamID != "" && r.TeamID != "" && r.TeamID != f.TeamID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, locationID string, year, month int) ([]core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.LedgerEntry
	for _, e := range s.ledger {
		if e.LocationID == locationID && e.Year == year && e.Month == month {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ListLedgerLocations(_ context.Context, year, month int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, e := range s.ledger {
		if e.Year == year && e.Month == month && !seen[e.LocationID] {
			seen[e.LocationID] = true
			out = append(out, e.LocationID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) UpsertLaborAggregate(_ context.Context, a core.LaborAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labor[a.Key] = a
	return nil
}

func (s *Store) UpsertRevenueAggregate(_ context.Context, a core.RevenueAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revenue[a.Key] = a
	return nil
}

func (s *Store) DeleteLaborAggregatesExcept(_ context.Context, rng core.DateRange, f core.Filter, keep []core.BucketKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pruneBuckets(s.labor, rng, f, keep), nil
}

func (s *Store) DeleteRevenueAggregatesExcept(_ context.Context, rng core.DateRange, f core.Filter, keep []core.BucketKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.TeamID = ""
	return pruneBuckets(s.revenue, rng, f, keep), nil
}

func pruneBuckets[A any](rows map[core.BucketKey]A, rng core.DateRange, f core.Filter, keep []core.BucketKey) int {
	kept := make(map[core.BucketKey]struct{}, len(keep))
	for _, k := range keep {
		kept[k] = struct{}{}
	}
	n := 0
	for key := range rows {
		if !rng.Contains(key.Date) || !f.Matches(key.LocationID, key.TeamID) {
			continue
		}
		if _, ok := kept[key]; ok {
			continue
		}
		delete(rows, key)
		n++
	}
	return n
}

// UpsertPnL keeps the first id assigned to a key, like the SQL store.
func (s *Store) UpsertPnL(_ context.Context, rec core.PnLRecord, report core.ValidationReport) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.pnl[rec.Key]
	id := prev.ID
	if !ok {
		s.nextID++
		id = s.nextID
	}
	rec.Breakdown = append([]core.SubcategoryAmount(nil), rec.Breakdown...)
	s.pnl[rec.Key] = StoredPnL{ID: id, Record: rec, Report: report}
	return id, nil
}

func (s *Store) ExpectedResult(_ context.Context, key core.PnLKey) (core.Money, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.expected[key]
	return m, ok, nil
}

func (s *Store) Name() string {
	return "memory"
}

// PublishCompletion records the event so tests can inspect it.
func (s *Store) PublishCompletion(_ context.Context, ev sources.CompletionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// LaborAggregates returns stored labor rows sorted by key.
func (s *Store) LaborAggregates() []core.LaborAggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.LaborAggregate, 0, len(s.labor))
	for _, a := range s.labor {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

// RevenueAggregates returns stored revenue rows sorted by key.
func (s *Store) RevenueAggregates() []core.RevenueAggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.RevenueAggregate, 0, len(s.revenue))
	for _, a := range s.revenue {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

func (s *Store) PnL(key core.PnLKey) (StoredPnL, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pnl[key]
	return p, ok
}

func (s *Store) Events() []sources.CompletionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sources.CompletionEvent(nil), s.events...)
}
