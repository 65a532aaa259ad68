package google

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"horeca/internal/core"
)

// Accepted header names per ledger column, matched case-insensitively.
var ledgerHeaders = map[string][]string{
	"location":    {"Location", "Location ID", "Vestiging"},
	"year":        {"Year", "Jaar"},
	"month":       {"Month", "Maand"},
	"category":    {"Category", "Categorie"},
	"subcategory": {"Subcategory", "Subcategorie"},
	"gl_account":  {"GL Account", "Grootboekrekening"},
	"amount":      {"Amount", "Bedrag"},
}

var resultHeaders = map[string][]string{
	"location": ledgerHeaders["location"],
	"year":     ledgerHeaders["year"],
	"month":    ledgerHeaders["month"],
	"result":   {"Result", "Resultaat", "Net Result"},
}

// columnIndex maps each logical column to its position in headers. Columns
// listed in required must be present.
func columnIndex(headers []string, names map[string][]string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for col, aliases := range names {
		idx[col] = -1
		for _, a := range aliases {
			if i := indexOf(headers, a); i >= 0 {
				idx[col] = i
				break
			}
		}
	}
	var missing []string
	for _, col := range required {
		if idx[col] < 0 {
			missing = append(missing, names[col][0])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected sheet header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}
	return idx, nil
}

// parseLedger converts a values matrix with a header row into ledger
// entries. Rows whose year, month or amount cannot be read are skipped and
// described in the returned warnings.
func parseLedger(values [][]any) ([]core.LedgerEntry, []string, error) {
	if len(values) == 0 {
		return nil, nil, nil
	}
	idx, err := columnIndex(toStrings(values[0]), ledgerHeaders, "location", "year", "month", "subcategory", "amount")
	if err != nil {
		return nil, nil, err
	}

	var (
		out      []core.LedgerEntry
		warnings []string
	)
	for i, raw := range values[1:] {
		row := toStrings(raw)
		loc := safeGet(row, idx["location"])
		if loc == "" && strings.Join(row, "") == "" {
			continue
		}
		year, yerr := strconv.Atoi(safeGet(row, idx["year"]))
		month, merr := strconv.Atoi(safeGet(row, idx["month"]))
		if yerr != nil || merr != nil || core.ValidatePeriod(year, month) != nil {
			warnings = append(warnings, fmt.Sprintf("row %d: invalid period %q/%q", i+2, safeGet(row, idx["year"]), safeGet(row, idx["month"])))
			continue
		}
		amount, ok := cellCents(raw, idx["amount"])
		if !ok {
			warnings = append(warnings, fmt.Sprintf("row %d: invalid amount %q", i+2, safeGet(row, idx["amount"])))
			continue
		}
		out = append(out, core.LedgerEntry{
			LocationID:  loc,
			Year:        year,
			Month:       month,
			Category:    safeGet(row, idx["category"]),
			Subcategory: safeGet(row, idx["subcategory"]),
			GLAccount:   safeGet(row, idx["gl_account"]),
			Amount:      core.Money{Cents: amount},
		})
	}
	return out, warnings, nil
}

// parseStatedResults reads the stated net result per (location, year, month).
// Later rows win over earlier ones for the same key.
func parseStatedResults(values [][]any) (map[core.PnLKey]core.Money, error) {
	out := make(map[core.PnLKey]core.Money)
	if len(values) == 0 {
		return out, nil
	}
	idx, err := columnIndex(toStrings(values[0]), resultHeaders, "location", "year", "month", "result")
	if err != nil {
		return nil, err
	}
	for _, raw := range values[1:] {
		row := toStrings(raw)
		year, yerr := strconv.Atoi(safeGet(row, idx["year"]))
		month, merr := strconv.Atoi(safeGet(row, idx["month"]))
		loc := safeGet(row, idx["location"])
		if loc == "" || yerr != nil || merr != nil {
			continue
		}
		cents, ok := cellCents(raw, idx["result"])
		if !ok {
			continue
		}
		out[core.PnLKey{LocationID: loc, Year: year, Month: month}] = core.Money{Cents: cents}
	}
	return out, nil
}

// cellCents reads a monetary cell. Unformatted numeric cells arrive as
// float64; formatted ones as strings such as "€ -1.234,56".
func cellCents(row []any, i int) (int64, bool) {
	if i < 0 || i >= len(row) {
		return 0, false
	}
	switch v := row[i].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return core.FromEuros(v).Cents, true
	case int:
		return int64(v) * 100, true
	}
	cents, err := core.ParseSignedDecimalToCents(strings.TrimSpace(fmt.Sprint(row[i])))
	if err != nil {
		return 0, false
	}
	return cents, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
