// Package export writes the metrics bundle to disk: one CSV per metric plus
// a markdown executive summary. Formatting here is presentation, not
// contract; the numbers come from the analytics package untouched.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"aurelion/internal/analytics"
)

// CSV file names written by WriteCSVReports, relative to the export dir.
const (
	FileMonthlyTicket = "monthly_average_ticket.csv"
	FileTopProducts   = "top_products.csv"
	FilePaymentShare  = "payment_method_share.csv"
	FileABCProducts   = "abc_products.csv"
	FileABCCustomers  = "abc_customers.csv"
	FileFacts         = "facts.csv"
)

// WriteCSVReports writes every metric of the bundle, and the fact table
// itself, as CSV files under dir. The directory is created if missing.
func WriteCSVReports(dir string, b *analytics.Bundle) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: create dir %s: %w", dir, err)
	}

	if err := writeCSV(filepath.Join(dir, FileMonthlyTicket), monthlyTicketRecords(b)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, FileTopProducts), entityRecords(b.TopProducts)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, FilePaymentShare), paymentShareRecords(b)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, FileABCProducts), abcRecords(b.ABCProducts)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(dir, FileABCCustomers), abcRecords(b.ABCCustomers)); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, FileFacts), factRecords(b))
}

func monthlyTicketRecords(b *analytics.Bundle) [][]string {
	out := [][]string{{"month", "average_ticket"}}
	for _, p := range b.MonthlyTicket {
		out = append(out, []string{p.Month, formatFloat(p.AverageTicket)})
	}
	return out
}

func entityRecords(entities []analytics.EntityRevenue) [][]string {
	out := [][]string{{"id", "name", "revenue"}}
	for _, e := range entities {
		out = append(out, []string{e.ID, e.Name, formatFloat(e.Revenue)})
	}
	return out
}

func paymentShareRecords(b *analytics.Bundle) [][]string {
	out := [][]string{{"payment_method", "pct"}}
	for _, s := range b.PaymentShare {
		out = append(out, []string{s.Method, formatFloat(s.Pct)})
	}
	return out
}

func abcRecords(entries []analytics.ABCEntry) [][]string {
	out := [][]string{{"id", "name", "revenue", "cumulative_pct", "class"}}
	for _, e := range entries {
		out = append(out, []string{e.ID, e.Name, formatFloat(e.Revenue), formatFloat(e.CumulativePct), e.Class})
	}
	return out
}

func factRecords(b *analytics.Bundle) [][]string {
	out := [][]string{{
		"sale_id", "line_no", "sale_date", "customer_id", "payment_method", "channel",
		"product_id", "product_name", "category", "quantity", "unit_price", "amount",
	}}
	for _, f := range b.Facts {
		out = append(out, []string{
			f.SaleID,
			strconv.Itoa(f.Line),
			f.Date.Format(time.RFC3339),
			f.CustomerID,
			f.PaymentMethod,
			f.Channel,
			f.ProductID,
			f.ProductName,
			f.Category,
			formatFloat(f.Quantity),
			formatFloat(f.UnitPrice),
			formatFloat(f.Amount),
		})
	}
	return out
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", path, err)
	}
	return nil
}

// formatFloat renders values without trailing zero noise ("6" not "6.000000").
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
