// Package integrity performs the advisory referential check across the four
// raw input tables. It counts orphaned foreign keys but never aborts a run;
// the caller decides what to do with the result.
package integrity

import (
	"strings"

	"aurelion/internal/dataset"
)

// Stats counts orphaned rows per foreign-key relationship.
type Stats struct {
	// LinesMissingSale counts sale lines whose sale_id has no sale.
	LinesMissingSale int
	// LinesMissingProduct counts sale lines whose product_id has no product.
	LinesMissingProduct int
	// SalesMissingCustomer counts sales whose customer_id has no customer.
	SalesMissingCustomer int
}

// Orphans returns the total orphan count across all relationships.
func (s Stats) Orphans() int {
	return s.LinesMissingSale + s.LinesMissingProduct + s.SalesMissingCustomer
}

// Check verifies foreign-key consistency across the raw tables.
//
// Keys are compared as trimmed strings; no coercion has happened yet at this
// point in the pipeline. Blank keys count as orphans: a reference that names
// nothing cannot resolve to a row. An empty table on either side of a
// relationship contributes zero orphans.
func Check(t dataset.Tables) (ok bool, stats Stats) {
	products := keySet(t.Products, "id")
	customers := keySet(t.Customers, "id")
	sales := keySet(t.Sales, "id")

	if t.SaleLines != nil && t.SaleLines.Len() > 0 {
		saleIx := t.SaleLines.Index("sale_id")
		prodIx := t.SaleLines.Index("product_id")
		for _, row := range t.SaleLines.Rows {
			if t.Sales.Len() > 0 && !inSet(sales, cell(row, saleIx)) {
				stats.LinesMissingSale++
			}
			if t.Products.Len() > 0 && !inSet(products, cell(row, prodIx)) {
				stats.LinesMissingProduct++
			}
		}
	}

	if t.Sales != nil && t.Sales.Len() > 0 && t.Customers.Len() > 0 {
		custIx := t.Sales.Index("customer_id")
		for _, row := range t.Sales.Rows {
			if !inSet(customers, cell(row, custIx)) {
				stats.SalesMissingCustomer++
			}
		}
	}

	return stats.Orphans() == 0, stats
}

func keySet(t *dataset.Table, col string) map[string]struct{} {
	if t == nil {
		return nil
	}
	ix := t.Index(col)
	if ix < 0 {
		return nil
	}
	out := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		k := cell(row, ix)
		if k == "" {
			continue
		}
		out[k] = struct{}{}
	}
	return out
}

func inSet(set map[string]struct{}, k string) bool {
	if k == "" {
		return false
	}
	_, ok := set[k]
	return ok
}

func cell(row []string, ix int) string {
	if ix < 0 || ix >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[ix])
}
