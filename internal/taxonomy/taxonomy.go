// Package taxonomy maps ledger subcategory labels to summary and detailed
// P&L buckets.
//
// The tables are configuration data: the default set is embedded from
// default.yaml and alternate sets can be loaded from any reader, so the
// rollup and reconciliation code never depends on a package-level table.
package taxonomy

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"horeca/internal/core"
)

//go:embed default.yaml
var defaultYAML []byte

// Definition is the on-disk shape of a taxonomy file.
type Definition struct {
	Version  string                `yaml:"version"`
	Summary  map[string]BucketDef `yaml:"summary"`
	Detailed map[string]BucketDef `yaml:"detailed"`
}

// BucketDef lists the member labels of one bucket. Expected marks detailed
// buckets that should see activity in every period with data.
type BucketDef struct {
	Expected bool     `yaml:"expected"`
	Labels   []string `yaml:"labels"`
}

// Taxonomy is an immutable, validated pair of summary and detailed tables.
type Taxonomy struct {
	version  string
	summary  map[core.SummaryBucket][]string
	detailed map[core.DetailedBucket][]string
	expected map[core.DetailedBucket]bool

	summaryIndex  map[string]core.SummaryBucket
	detailedIndex map[string]core.DetailedBucket
}

// Default returns the embedded taxonomy.
func Default() (*Taxonomy, error) {
	return Load(bytes.NewReader(defaultYAML))
}

// LoadFile reads a taxonomy from a YAML file.
func LoadFile(path string) (*Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a taxonomy from YAML.
func Load(r io.Reader) (*Taxonomy, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}
	return New(def)
}

// New validates def and builds the lookup indexes. Every bucket key must be
// known and a label may belong to at most one bucket per table.
func New(def Definition) (*Taxonomy, error) {
	t := &Taxonomy{
		version:       def.Version,
		summary:       make(map[core.SummaryBucket][]string),
		detailed:      make(map[core.DetailedBucket][]string),
		expected:      make(map[core.DetailedBucket]bool),
		summaryIndex:  make(map[string]core.SummaryBucket),
		detailedIndex: make(map[string]core.DetailedBucket),
	}

	var problems []string
	for key, b := range def.Summary {
		bucket := core.SummaryBucket(key)
		if !bucket.Valid() {
			problems = append(problems, fmt.Sprintf("unknown summary bucket %q", key))
			continue
		}
		for _, label := range b.Labels {
			label = strings.TrimSpace(label)
			if label == "" {
				problems = append(problems, fmt.Sprintf("empty label in summary bucket %q", key))
				continue
			}
			if prev, dup := t.summaryIndex[label]; dup {
				problems = append(problems, fmt.Sprintf("label %q in summary buckets %q and %q", label, prev, key))
				continue
			}
			t.summaryIndex[label] = bucket
			t.summary[bucket] = append(t.summary[bucket], label)
		}
	}
	for key, b := range def.Detailed {
		bucket := core.DetailedBucket(key)
		if !bucket.Valid() {
			problems = append(problems, fmt.Sprintf("unknown detailed bucket %q", key))
			continue
		}
		t.expected[bucket] = b.Expected
		for _, label := range b.Labels {
			label = strings.TrimSpace(label)
			if label == "" {
				problems = append(problems, fmt.Sprintf("empty label in detailed bucket %q", key))
				continue
			}
			if prev, dup := t.detailedIndex[label]; dup {
				problems = append(problems, fmt.Sprintf("label %q in detailed buckets %q and %q", label, prev, key))
				continue
			}
			t.detailedIndex[label] = bucket
			t.detailed[bucket] = append(t.detailed[bucket], label)
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid taxonomy %q:\n- %s", def.Version, strings.Join(problems, "\n- "))
	}
	return t, nil
}

func (t *Taxonomy) Version() string {
	return t.version
}

// SummaryLabels returns the member labels of a summary bucket.
func (t *Taxonomy) SummaryLabels(b core.SummaryBucket) []string {
	return append([]string(nil), t.summary[b]...)
}

// DetailedLabels returns the member labels of a detailed bucket.
func (t *Taxonomy) DetailedLabels(b core.DetailedBucket) []string {
	return append([]string(nil), t.detailed[b]...)
}

// Expected reports whether a detailed bucket should see activity every period.
func (t *Taxonomy) Expected(b core.DetailedBucket) bool {
	return t.expected[b]
}

func (t *Taxonomy) SummaryBucketOf(label string) (core.SummaryBucket, bool) {
	b, ok := t.summaryIndex[label]
	return b, ok
}

func (t *Taxonomy) DetailedBucketOf(label string) (core.DetailedBucket, bool) {
	b, ok := t.detailedIndex[label]
	return b, ok
}

// Covers reports whether label belongs to any bucket of either table.
func (t *Taxonomy) Covers(label string) bool {
	if _, ok := t.summaryIndex[label]; ok {
		return true
	}
	_, ok := t.detailedIndex[label]
	return ok
}

// SumBySubcategories sums the amounts of entries whose subcategory is one of
// labels. It is the single aggregation primitive behind every bucket total.
func SumBySubcategories(entries []core.LedgerEntry, labels []string) core.Money {
	if len(labels) == 0 {
		return core.Money{}
	}
	members := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		members[l] = struct{}{}
	}
	var total core.Money
	for _, e := range entries {
		if _, ok := members[e.Subcategory]; ok {
			total = total.Add(e.Amount)
		}
	}
	return total
}
