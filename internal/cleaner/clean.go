// Package cleaner turns raw tables into typed, deduplicated records.
//
// Each Clean* function is independent of the others, takes a raw table, and
// returns new values plus before/after row counts. Bad rows are dropped and
// counted, never raised; the only errors are structural (identifier column
// missing entirely, which the schema validator should have caught upstream).
package cleaner

import (
	"fmt"
	"strings"

	"aurelion/internal/dataset"
)

// Stats reports row counts for one cleaned table.
type Stats struct {
	// Initial is the raw row count, Final the count after cleaning.
	Initial int
	Final   int

	// Deviations counts kept sale-line rows whose stored amount differs from
	// quantity x unit_price beyond tolerance. Zero for other tables.
	Deviations int
}

// Discarded returns the number of rows dropped during cleaning.
func (s Stats) Discarded() int { return s.Initial - s.Final }

// DiscardPct returns the discard rate as a percentage of the input.
func (s Stats) DiscardPct() float64 {
	if s.Initial == 0 {
		return 0
	}
	return float64(s.Discarded()) * 100 / float64(s.Initial)
}

// amountTolerance is the accepted absolute gap between the stored line amount
// and quantity x unit_price before the row counts as a deviation.
const amountTolerance = 0.01

// CleanProducts cleans the products table.
//
// Rules: first occurrence wins on duplicate ids; unit price must coerce to a
// number and be >= 0; category is enum-like and lowercased; the id keeps its
// original case.
func CleanProducts(t *dataset.Table) ([]dataset.Product, Stats, error) {
	if !t.HasColumn("id") {
		return nil, Stats{}, fmt.Errorf("products: identifier column missing")
	}
	stats := Stats{Initial: t.Len()}

	seen := make(map[string]struct{}, t.Len())
	out := make([]dataset.Product, 0, t.Len())
	for _, row := range t.Rows {
		id := t.Cell(row, "id")
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}

		price, ok := parseNumber(t.Cell(row, "unit_price"))
		if !ok || price < 0 {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, dataset.Product{
			ID:        id,
			Name:      t.Cell(row, "name"),
			Category:  strings.ToLower(t.Cell(row, "category")),
			UnitPrice: price,
		})
	}
	stats.Final = len(out)
	return out, stats, nil
}

// CleanCustomers cleans the customers table.
//
// Rows with an unparseable signup date are dropped. Email and city are
// trimmed but keep their case.
func CleanCustomers(t *dataset.Table) ([]dataset.Customer, Stats, error) {
	if !t.HasColumn("id") {
		return nil, Stats{}, fmt.Errorf("customers: identifier column missing")
	}
	stats := Stats{Initial: t.Len()}

	seen := make(map[string]struct{}, t.Len())
	out := make([]dataset.Customer, 0, t.Len())
	for _, row := range t.Rows {
		id := t.Cell(row, "id")
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}

		signup, ok := parseDate(t.Cell(row, "signup_date"))
		if !ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, dataset.Customer{
			ID:         id,
			Name:       t.Cell(row, "name"),
			Email:      t.Cell(row, "email"),
			City:       t.Cell(row, "city"),
			SignupDate: signup,
		})
	}
	stats.Final = len(out)
	return out, stats, nil
}

// CleanSales cleans the sales table.
//
// Rows with an unparseable date are dropped. Payment method and channel are
// enum-like and lowercased. A blank customer_id is kept: it is a referential
// problem, already counted by the integrity checker, not a cleaning one.
func CleanSales(t *dataset.Table) ([]dataset.Sale, Stats, error) {
	if !t.HasColumn("id") {
		return nil, Stats{}, fmt.Errorf("sales: identifier column missing")
	}
	stats := Stats{Initial: t.Len()}

	seen := make(map[string]struct{}, t.Len())
	out := make([]dataset.Sale, 0, t.Len())
	for _, row := range t.Rows {
		id := t.Cell(row, "id")
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}

		date, ok := parseDate(t.Cell(row, "date"))
		if !ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, dataset.Sale{
			ID:            id,
			Date:          date,
			CustomerID:    t.Cell(row, "customer_id"),
			PaymentMethod: strings.ToLower(t.Cell(row, "payment_method")),
			Channel:       strings.ToLower(t.Cell(row, "channel")),
		})
	}
	stats.Final = len(out)
	return out, stats, nil
}

// CleanSaleLines cleans the sale-lines table.
//
// Rules: quantity must coerce and be > 0, unit price must coerce and be >= 0,
// and sale_id/product_id must be present (a line that names no sale or no
// product can never join). A missing amount is recomputed as
// quantity x unit_price; a present amount is kept as stored, with rows beyond
// amountTolerance counted in Stats.Deviations. Sale lines are intentionally
// not deduplicated: the same product can legitimately appear twice in a sale.
func CleanSaleLines(t *dataset.Table) ([]dataset.SaleLine, Stats, error) {
	if !t.HasColumn("sale_id") || !t.HasColumn("product_id") {
		return nil, Stats{}, fmt.Errorf("sale_lines: identifier columns missing")
	}
	stats := Stats{Initial: t.Len()}

	hasName := t.HasColumn("product_name")
	out := make([]dataset.SaleLine, 0, t.Len())
	for _, row := range t.Rows {
		saleID := t.Cell(row, "sale_id")
		productID := t.Cell(row, "product_id")
		if saleID == "" || productID == "" {
			continue
		}

		qty, ok := parseNumber(t.Cell(row, "quantity"))
		if !ok || qty <= 0 {
			continue
		}
		price, ok := parseNumber(t.Cell(row, "unit_price"))
		if !ok || price < 0 {
			continue
		}

		amount, ok := parseNumber(t.Cell(row, "amount"))
		if !ok {
			amount = qty * price
		} else if diff := amount - qty*price; diff > amountTolerance || diff < -amountTolerance {
			stats.Deviations++
		}

		line := dataset.SaleLine{
			SaleID:    saleID,
			ProductID: productID,
			Quantity:  qty,
			UnitPrice: price,
			Amount:    amount,
		}
		if hasName {
			line.ProductName = t.Cell(row, "product_name")
		}
		out = append(out, line)
	}
	stats.Final = len(out)
	return out, stats, nil
}
