// Package google reads the ledger export and stated monthly results from a
// Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"horeca/internal/cache"
	"horeca/internal/core"
	"horeca/internal/log"
	"horeca/internal/sources"
)

const (
	DefaultLedgerSheet = "Ledger"
	DefaultResultSheet = "Results"
	defaultCacheSize   = 32
)

// Options configures a Client.
type Options struct {
	SpreadsheetID string
	LedgerSheet   string
	// ResultSheet holds stated results per period. Empty disables
	// ExpectedResult lookups.
	ResultSheet string
	CacheTTL    time.Duration
}

// valuesReader fetches a raw value matrix for an A1 range.
type valuesReader interface {
	Values(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
}

type serviceReader struct {
	svc *gsheet.Service
}

func (r serviceReader) Values(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

type Client struct {
	reader        valuesReader
	spreadsheetID string
	ledgerSheet   string
	resultSheet   string
	rows          *cache.LRU[string, [][]any]
}

var (
	_ sources.LedgerReader         = (*Client)(nil)
	_ sources.LedgerLocationLister = (*Client)(nil)
	_ sources.ExpectedResultSource = (*Client)(nil)
)

// New creates a client authenticated with service account credentials from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(serviceReader{svc: svc}, opts), nil
}

// ValuesFunc fetches the value matrix of an A1 range.
type ValuesFunc func(ctx context.Context, spreadsheetID, rng string) ([][]any, error)

func (f ValuesFunc) Values(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	return f(ctx, spreadsheetID, rng)
}

// NewWithReader creates a client over an arbitrary range reader.
func NewWithReader(fn ValuesFunc, opts Options) *Client {
	return newClient(fn, opts)
}

func newClient(r valuesReader, opts Options) *Client {
	if opts.LedgerSheet == "" {
		opts.LedgerSheet = DefaultLedgerSheet
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &Client{
		reader:        r,
		spreadsheetID: opts.SpreadsheetID,
		ledgerSheet:   opts.LedgerSheet,
		resultSheet:   opts.ResultSheet,
		rows:          cache.NewLRU[string, [][]any](defaultCacheSize, opts.CacheTTL),
	}
}

// Cache exposes the row cache so callers can register it for cleanup.
func (c *Client) Cache() *cache.LRU[string, [][]any] {
	return c.rows
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentials []byte
	switch {
	case inline != "":
		credentials = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", log.FieldComponent, log.ComponentSheets)
	return svc, nil
}

// readRange returns the cached matrix for rng, fetching it on a miss.
func (c *Client) readRange(ctx context.Context, rng string) ([][]any, error) {
	if v, ok := c.rows.Get(rng); ok {
		return v, nil
	}
	values, err := c.reader.Values(ctx, c.spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	c.rows.Set(rng, values)
	return values, nil
}

func (c *Client) ledger(ctx context.Context) ([]core.LedgerEntry, error) {
	rng := fmt.Sprintf("%s!A:Z", c.ledgerSheet)
	values, err := c.readRange(ctx, rng)
	if err != nil {
		return nil, err
	}
	entries, warnings, err := parseLedger(values)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rng, err)
	}
	for _, w := range warnings {
		slog.WarnContext(ctx, "Skipping ledger row", log.FieldComponent, log.ComponentSheets, "range", rng, "reason", w)
	}
	return entries, nil
}

// ListLedgerEntries implements sources.LedgerReader
func (c *Client) ListLedgerEntries(ctx context.Context, locationID string, year, month int) ([]core.LedgerEntry, error) {
	all, err := c.ledger(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.LedgerEntry
	for _, e := range all {
		if e.LocationID == locationID && e.Year == year && e.Month == month {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListLedgerLocations implements sources.LedgerLocationLister
func (c *Client) ListLedgerLocations(ctx context.Context, year, month int) ([]string, error) {
	all, err := c.ledger(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, e := range all {
		if e.Year != year || e.Month != month {
			continue
		}
		if _, ok := seen[e.LocationID]; ok {
			continue
		}
		seen[e.LocationID] = struct{}{}
		out = append(out, e.LocationID)
	}
	sort.Strings(out)
	return out, nil
}

// ExpectedResult implements sources.ExpectedResultSource
func (c *Client) ExpectedResult(ctx context.Context, key core.PnLKey) (core.Money, bool, error) {
	if c.resultSheet == "" {
		return core.Money{}, false, nil
	}
	rng := fmt.Sprintf("%s!A:Z", c.resultSheet)
	values, err := c.readRange(ctx, rng)
	if err != nil {
		return core.Money{}, false, err
	}
	results, err := parseStatedResults(values)
	if err != nil {
		return core.Money{}, false, fmt.Errorf("parse %s: %w", rng, err)
	}
	m, ok := results[key]
	return m, ok, nil
}

func (c *Client) Name() string {
	return "sheets:" + c.resultSheet
}
