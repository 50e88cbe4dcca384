package dataset

import (
	"testing"
	"time"
)

func TestTableCell(t *testing.T) {
	tab := &Table{
		Name:    "products",
		Columns: []string{"id", "name"},
		Rows:    [][]string{{"1", "  Bread  "}, {"2"}},
	}

	if got := tab.Cell(tab.Rows[0], "name"); got != "Bread" {
		t.Fatalf("Cell = %q, want trimmed Bread", got)
	}
	if got := tab.Cell(tab.Rows[1], "name"); got != "" {
		t.Fatalf("short row Cell = %q, want empty", got)
	}
	if got := tab.Cell(tab.Rows[0], "missing"); got != "" {
		t.Fatalf("missing column Cell = %q, want empty", got)
	}
}

func TestTableNilSafety(t *testing.T) {
	var tab *Table
	if tab.Len() != 0 {
		t.Fatalf("nil Len = %d", tab.Len())
	}
	if tab.Index("id") != -1 {
		t.Fatalf("nil Index = %d", tab.Index("id"))
	}
}

func TestFactRowMonth(t *testing.T) {
	f := FactRow{Date: time.Date(2025, 1, 31, 23, 0, 0, 0, time.UTC)}
	if got := f.Month(); got != "2025-01" {
		t.Fatalf("Month = %q", got)
	}
}
