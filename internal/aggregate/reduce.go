// Package aggregate groups raw records into composite-key buckets and
// reduces each bucket to one aggregate row.
package aggregate

import (
	"fmt"
	"sort"

	"horeca/internal/core"
)

// Reducer describes how one kind of raw record is bucketed and reduced.
// A is the per-bucket accumulator and O the finished row.
type Reducer[K comparable, A any, O any] interface {
	// Key returns the bucket key of a record.
	Key(r core.RawRecord) (K, error)
	// Include reports whether a bucket is in scope for this run.
	Include(key K) bool
	New(key K) A
	Add(acc A, r core.RawRecord) error
	Finish(acc A) (O, error)
}

// Result is the outcome of reducing one batch of records. Skipped holds the
// keys of buckets left out of Rows because they failed.
type Result[K comparable, O any] struct {
	Rows      []O
	Skipped   []K
	Processed int
	Errors    []string
}

// Reduce visits every record once and folds it into exactly one bucket.
// A failing bucket is reported in Errors and left out of Rows; the other
// buckets are unaffected. Rows are ordered by less.
func Reduce[K comparable, A any, O any](records []core.RawRecord, red Reducer[K, A, O], less func(a, b K) bool) Result[K, O] {
	var res Result[K, O]
	buckets := make(map[K]A)
	failed := make(map[K]string)
	keys := make([]K, 0)

	for _, r := range records {
		key, err := red.Key(r)
		if err != nil {
			res.Processed++
			res.Errors = append(res.Errors, fmt.Sprintf("record %d (%s): %v", r.ID, r.ExternalID, err))
			continue
		}
		if !red.Include(key) {
			continue
		}
		res.Processed++

		acc, ok := buckets[key]
		if !ok {
			acc = red.New(key)
			buckets[key] = acc
			keys = append(keys, key)
		}
		if _, bad := failed[key]; bad {
			continue
		}
		if err := red.Add(acc, r); err != nil {
			failed[key] = fmt.Sprintf("bucket %v: record %d (%s): %v", key, r.ID, r.ExternalID, err)
		}
	}

	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })

	for _, key := range keys {
		if msg, bad := failed[key]; bad {
			res.Errors = append(res.Errors, msg)
			res.Skipped = append(res.Skipped, key)
			continue
		}
		row, err := red.Finish(buckets[key])
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("bucket %v: %v", key, err))
			res.Skipped = append(res.Skipped, key)
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

// ByKey orders bucket keys by date, location and team.
func ByKey(a, b core.BucketKey) bool {
	return a.Less(b)
}
