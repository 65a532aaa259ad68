package google

import (
	"strings"
	"testing"

	"horeca/internal/core"
)

func TestParseLedger(t *testing.T) {
	values := [][]any{
		{"Vestiging", "Jaar", "Maand", "Categorie", "Subcategorie", "Grootboekrekening", "Bedrag"},
		{"L1", 2024.0, 3.0, "Omzet", "Omzet keuken", "8000", 1234.56},
		{"L1", "2024", "3", "Kosten", "Inkoop keuken", "7000", "€ -1.234,56"},
		{"L1", "2024", "3", "Kosten", "Huur", "4000", "(500,00)"},
		{"L2", "2024", "13", "Kosten", "Huur", "4000", "-10"},
		{"L2", "2024", "3", "Kosten", "Huur", "4000", "n/a"},
		{},
		{"L2", "2024", "3"},
	}

	entries, warnings, err := parseLedger(values)
	if err != nil {
		t.Fatalf("parseLedger: %v", err)
	}
	want := []core.LedgerEntry{
		{LocationID: "L1", Year: 2024, Month: 3, Category: "Omzet", Subcategory: "Omzet keuken", GLAccount: "8000", Amount: core.Money{Cents: 123456}},
		{LocationID: "L1", Year: 2024, Month: 3, Category: "Kosten", Subcategory: "Inkoop keuken", GLAccount: "7000", Amount: core.Money{Cents: -123456}},
		{LocationID: "L1", Year: 2024, Month: 3, Category: "Kosten", Subcategory: "Huur", GLAccount: "4000", Amount: core.Money{Cents: -50000}},
	}
	if len(entries) != len(want) {
		t.Fatalf("entries = %+v", entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
	if len(warnings) != 3 {
		t.Errorf("warnings = %v, want 3", warnings)
	}
	if len(warnings) > 0 && !strings.Contains(warnings[0], "row 5") {
		t.Errorf("first warning %q should point at row 5", warnings[0])
	}
}

func TestParseLedgerMissingHeader(t *testing.T) {
	_, _, err := parseLedger([][]any{{"Location", "Year", "Month", "Subcategory"}})
	if err == nil || !strings.Contains(err.Error(), "Amount") {
		t.Fatalf("err = %v, want missing Amount", err)
	}
}

func TestParseLedgerEmpty(t *testing.T) {
	entries, warnings, err := parseLedger(nil)
	if err != nil || entries != nil || warnings != nil {
		t.Fatalf("got %v %v %v", entries, warnings, err)
	}
}

func TestParseStatedResults(t *testing.T) {
	values := [][]any{
		{"Location", "Year", "Month", "Resultaat"},
		{"L1", 2024.0, 3.0, 15500.0},
		{"L2", "2024", "3", "-1.250,00"},
		{"L2", "2024", "3", "-1.300,00"},
		{"", "2024", "3", "1"},
		{"L3", "2024", "3", "?"},
	}
	got, err := parseStatedResults(values)
	if err != nil {
		t.Fatalf("parseStatedResults: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %v", got)
	}
	if m := got[core.PnLKey{LocationID: "L1", Year: 2024, Month: 3}]; m != core.FromEuros(15500) {
		t.Errorf("L1 = %v", m)
	}
	if m := got[core.PnLKey{LocationID: "L2", Year: 2024, Month: 3}]; m != core.FromEuros(-1300) {
		t.Errorf("L2 = %v, want the later row", m)
	}
}
