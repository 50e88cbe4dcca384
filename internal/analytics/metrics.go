// Package analytics derives the business metrics bundle from the fact table.
//
// Every derivation is pure: inputs are never mutated, results are freshly
// allocated, and empty input yields an empty result rather than an error.
// Ordering is deterministic everywhere, with identifier ascending as the
// tie-break so equal totals never reorder between runs.
package analytics

import (
	"fmt"
	"sort"

	"aurelion/internal/dataset"
)

// TopN is the ranking depth for the top-products metric.
const TopN = 5

// ABC classification cumulative-share cutoffs, in percent.
const (
	ClassACutoff = 80.0
	ClassBCutoff = 95.0
)

// MonthPoint is one month of the average-ticket series.
type MonthPoint struct {
	// Month is the calendar month in "2006-01" form.
	Month string
	// AverageTicket is the mean total amount per sale in that month.
	AverageTicket float64
}

// EntityRevenue is an entity (product or customer) with its summed revenue.
type EntityRevenue struct {
	ID      string
	Name    string
	Revenue float64
}

// Share is one payment method's percentage of total revenue.
type Share struct {
	Method string
	// Pct is in 0..100.
	Pct float64
}

// ABCEntry is one classified entity of an ABC (Pareto) breakdown.
type ABCEntry struct {
	ID      string
	Name    string
	Revenue float64
	// CumulativePct is the cumulative revenue share, in percent, with this
	// entity included.
	CumulativePct float64
	// Class is "A", "B" or "C".
	Class string
}

// Bundle is the full metrics output of one run, consumed by the export and
// reporting collaborators together with the fact table it derives from.
type Bundle struct {
	MonthlyTicket []MonthPoint
	TopProducts   []EntityRevenue
	PaymentShare  []Share
	ABCProducts   []ABCEntry
	ABCCustomers  []ABCEntry

	Facts []dataset.FactRow
}

// Compute derives the complete bundle from the fact table.
//
// An error here means the fact table violates an invariant the integrator is
// supposed to guarantee; it is fatal to the run.
func Compute(facts []dataset.FactRow) (*Bundle, error) {
	for i, f := range facts {
		if f.SaleID == "" || f.ProductID == "" {
			return nil, fmt.Errorf("metrics: fact row %d has a blank key (sale_id=%q product_id=%q)", i, f.SaleID, f.ProductID)
		}
	}

	return &Bundle{
		MonthlyTicket: MonthlyAverageTicket(facts),
		TopProducts:   TopProducts(facts, TopN),
		PaymentShare:  PaymentMethodShare(facts),
		ABCProducts:   ClassifyABC(RevenueByProduct(facts)),
		ABCCustomers:  ClassifyABC(RevenueByCustomer(facts)),
		Facts:         facts,
	}, nil
}

// MonthlyAverageTicket groups facts by sale to obtain one ticket total per
// sale, buckets tickets by calendar month, and returns the mean ticket per
// month in chronological order.
func MonthlyAverageTicket(facts []dataset.FactRow) []MonthPoint {
	type ticket struct {
		month string
		total float64
	}
	tickets := make(map[string]*ticket, len(facts))
	for _, f := range facts {
		tk := tickets[f.SaleID]
		if tk == nil {
			tk = &ticket{month: f.Month()}
			tickets[f.SaleID] = tk
		}
		tk.total += f.Amount
	}

	sums := map[string]float64{}
	counts := map[string]int{}
	for _, tk := range tickets {
		sums[tk.month] += tk.total
		counts[tk.month]++
	}

	out := make([]MonthPoint, 0, len(sums))
	for month, sum := range sums {
		out = append(out, MonthPoint{Month: month, AverageTicket: sum / float64(counts[month])})
	}
	// "2006-01" sorts chronologically as a string.
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// RevenueByProduct sums line amounts per product, ordered by revenue
// descending with product id ascending as tie-break.
func RevenueByProduct(facts []dataset.FactRow) []EntityRevenue {
	sums := make(map[string]*EntityRevenue, len(facts))
	for _, f := range facts {
		e := sums[f.ProductID]
		if e == nil {
			e = &EntityRevenue{ID: f.ProductID, Name: f.ProductName}
			sums[f.ProductID] = e
		}
		e.Revenue += f.Amount
	}
	return sortedByRevenue(sums)
}

// RevenueByCustomer sums line amounts per customer, ordered like
// RevenueByProduct. Facts from sales with a blank customer reference are
// skipped; they cannot be attributed.
func RevenueByCustomer(facts []dataset.FactRow) []EntityRevenue {
	sums := make(map[string]*EntityRevenue, len(facts))
	for _, f := range facts {
		if f.CustomerID == "" {
			continue
		}
		e := sums[f.CustomerID]
		if e == nil {
			e = &EntityRevenue{ID: f.CustomerID}
			sums[f.CustomerID] = e
		}
		e.Revenue += f.Amount
	}
	return sortedByRevenue(sums)
}

// TopProducts returns the first n products by summed amount. Fewer than n
// distinct products returns all of them.
func TopProducts(facts []dataset.FactRow, n int) []EntityRevenue {
	ranked := RevenueByProduct(facts)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// PaymentMethodShare returns each payment method's percentage of the grand
// total amount, ordered by share descending with method ascending as
// tie-break. A zero grand total yields an empty distribution.
func PaymentMethodShare(facts []dataset.FactRow) []Share {
	sums := map[string]float64{}
	var total float64
	for _, f := range facts {
		sums[f.PaymentMethod] += f.Amount
		total += f.Amount
	}
	if total == 0 {
		return nil
	}

	out := make([]Share, 0, len(sums))
	for method, sum := range sums {
		out = append(out, Share{Method: method, Pct: sum * 100 / total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pct != out[j].Pct {
			return out[i].Pct > out[j].Pct
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// ClassifyABC assigns Pareto classes over entities by cumulative revenue
// share: "A" while the running share stays within ClassACutoff, "B" within
// ClassBCutoff, "C" beyond. The top entity is always "A", so a single
// dominant entity (or a single-entity input) classifies as "A" rather than
// falling straight through both cutoffs.
//
// The input slice is not mutated; entities are re-sorted by revenue
// descending, id ascending.
func ClassifyABC(entities []EntityRevenue) []ABCEntry {
	if len(entities) == 0 {
		return nil
	}

	ranked := append([]EntityRevenue(nil), entities...)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Revenue != ranked[j].Revenue {
			return ranked[i].Revenue > ranked[j].Revenue
		}
		return ranked[i].ID < ranked[j].ID
	})

	var total float64
	for _, e := range ranked {
		total += e.Revenue
	}

	out := make([]ABCEntry, 0, len(ranked))
	var cum float64
	for i, e := range ranked {
		cum += e.Revenue

		pct := 100.0
		if total != 0 {
			pct = cum * 100 / total
		}

		class := "C"
		switch {
		case i == 0 || pct <= ClassACutoff:
			class = "A"
		case pct <= ClassBCutoff:
			class = "B"
		}

		out = append(out, ABCEntry{
			ID:            e.ID,
			Name:          e.Name,
			Revenue:       e.Revenue,
			CumulativePct: pct,
			Class:         class,
		})
	}
	return out
}

// CountByClass tallies entries per ABC class, for reporting.
func CountByClass(entries []ABCEntry) map[string]int {
	out := map[string]int{}
	for _, e := range entries {
		out[e.Class]++
	}
	return out
}

func sortedByRevenue(sums map[string]*EntityRevenue) []EntityRevenue {
	out := make([]EntityRevenue, 0, len(sums))
	for _, e := range sums {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].ID < out[j].ID
	})
	return out
}
