// Package dataset defines the table shapes moving through the pipeline.
//
// Two layers exist on purpose:
//
//   - Table is the raw, untyped form produced by the parsers: named columns
//     and string cells. The schema validator and referential checker operate
//     here, before any coercion has happened.
//   - The typed records (Product, Customer, Sale, SaleLine, FactRow) are what
//     the cleaner produces and every later stage consumes. Monetary and
//     quantity fields use float64 as the single canonical numeric type;
//     coercion from strings happens exactly once, in the cleaner.
//
// Stages never mutate their input; each returns new values.
package dataset

import (
	"strings"
	"time"
)

// Table is a raw tabular dataset: an ordered header plus rows of string
// cells aligned to it. Empty cells are empty strings.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Index returns the position of column name in the header, or -1.
// Column names are matched exactly; parsers normalize headers on read.
// Safe on a nil table.
func (t *Table) Index(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed value of column col in row, or "" when the column
// is absent or the row is short.
func (t *Table) Cell(row []string, col string) string {
	i := t.Index(col)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool { return t.Index(name) >= 0 }

// Len returns the number of data rows. Safe on a nil table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Tables bundles the four raw inputs of one run.
type Tables struct {
	Products  *Table
	Customers *Table
	Sales     *Table
	SaleLines *Table
}

// Product is a cleaned product record.
type Product struct {
	ID        string
	Name      string
	Category  string
	UnitPrice float64
}

// Customer is a cleaned customer record.
type Customer struct {
	ID         string
	Name       string
	Email      string
	City       string
	SignupDate time.Time
}

// Sale is a cleaned sale header.
type Sale struct {
	ID            string
	Date          time.Time
	CustomerID    string
	PaymentMethod string
	Channel       string
}

// SaleLine is a cleaned sale line item. ProductName is the optional
// denormalized name carried by the source file; it may be empty.
type SaleLine struct {
	SaleID      string
	ProductID   string
	ProductName string
	Quantity    float64
	UnitPrice   float64
	Amount      float64
}

// FactRow is one sold line enriched with its sale and product attributes.
// It is rebuilt on every run and is the sole input to the metrics engine.
type FactRow struct {
	SaleID string

	// Line is the 1-based position of the line within its sale, assigned by
	// the integrator. The same product can appear on several lines of one
	// sale; (SaleID, ProductID, Line) identifies a fact row.
	Line int

	Date          time.Time
	CustomerID    string
	PaymentMethod string
	Channel       string
	ProductID     string
	ProductName   string
	Category      string
	Quantity      float64
	UnitPrice     float64
	Amount        float64
}

// Month returns the fact's calendar month truncated to year-month ("2006-01").
func (f FactRow) Month() string { return f.Date.Format("2006-01") }
