// Package integrator joins cleaned sale lines with their sale and product
// into the denormalized fact table consumed by the metrics engine.
package integrator

import (
	"aurelion/internal/dataset"
)

// Integrate builds one FactRow per sale line via equi-joins:
// lines on sale_id against sales, the result on product_id against products.
//
// Both joins are inner for row inclusion: a line whose sale or product cannot
// be resolved is excluded (it is a referential violation, already counted by
// the integrity checker), so every emitted fact satisfies referential closure
// against the cleaned tables. Name enrichment is left-preferring: the line's
// own denormalized product name wins when present, otherwise the product
// table's name fills it in.
//
// Inputs are never mutated; output order follows input line order. Each fact
// carries a 1-based line ordinal within its sale, so repeated products in one
// sale stay distinguishable downstream.
func Integrate(lines []dataset.SaleLine, sales []dataset.Sale, products []dataset.Product) []dataset.FactRow {
	salesByID := make(map[string]dataset.Sale, len(sales))
	for _, s := range sales {
		salesByID[s.ID] = s
	}
	productsByID := make(map[string]dataset.Product, len(products))
	for _, p := range products {
		productsByID[p.ID] = p
	}

	lineSeq := make(map[string]int, len(sales))

	out := make([]dataset.FactRow, 0, len(lines))
	for _, l := range lines {
		sale, ok := salesByID[l.SaleID]
		if !ok {
			continue
		}
		product, ok := productsByID[l.ProductID]
		if !ok {
			continue
		}

		name := l.ProductName
		if name == "" {
			name = product.Name
		}

		lineSeq[sale.ID]++
		out = append(out, dataset.FactRow{
			SaleID:        sale.ID,
			Line:          lineSeq[sale.ID],
			Date:          sale.Date,
			CustomerID:    sale.CustomerID,
			PaymentMethod: sale.PaymentMethod,
			Channel:       sale.Channel,
			ProductID:     product.ID,
			ProductName:   name,
			Category:      product.Category,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			Amount:        l.Amount,
		})
	}
	return out
}
