// Package datagen generates demo retail datasets for the seed command.
//
// Output is deliberately imperfect: a small fraction of rows carry the
// defects the pipeline exists to handle (duplicate ids, negative prices,
// unparseable dates, orphaned references, amount deviations), so a seeded
// run exercises every stage and the summary shows non-zero quality counters.
package datagen

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"aurelion/internal/config"
)

var paymentMethods = []string{"cash", "card", "pix", "transfer"}

var channels = []string{"store", "online", "marketplace"}

// defect rates per dataset, as fractions of row count
const (
	dirtyProductRate  = 0.03
	dirtyCustomerRate = 0.03
	dirtySaleRate     = 0.02
	orphanLineRate    = 0.02
	deviationRate     = 0.03
)

// Seed writes the four demo CSVs into cfg.Dir. A non-zero RandSeed makes the
// output reproducible.
func Seed(cfg config.SeedConfig) error {
	if cfg.Products <= 0 || cfg.Customers <= 0 || cfg.Sales <= 0 {
		return fmt.Errorf("datagen: products, customers and sales counts must be positive")
	}
	maxLines := cfg.MaxLines
	if maxLines <= 0 {
		maxLines = 5
	}

	seed := cfg.RandSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	f := gofakeit.New(seed)

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("datagen: create dir %s: %w", cfg.Dir, err)
	}

	products := genProducts(f, cfg.Products)
	customers := genCustomers(f, cfg.Customers)
	sales := genSales(f, cfg.Sales, cfg.Customers)
	lines := genSaleLines(f, sales, products, maxLines)

	files := map[string][][]string{
		"products.csv":   products,
		"customers.csv":  customers,
		"sales.csv":      sales,
		"sale_lines.csv": lines,
	}
	for name, records := range files {
		if err := writeCSV(filepath.Join(cfg.Dir, name), records); err != nil {
			return err
		}
	}
	return nil
}

func genProducts(f *gofakeit.Faker, n int) [][]string {
	out := [][]string{{"id", "name", "category", "unit_price"}}
	for i := 1; i <= n; i++ {
		row := []string{
			fmt.Sprintf("P%04d", i),
			f.ProductName(),
			f.ProductCategory(),
			formatPrice(f.Price(1, 200)),
		}
		out = append(out, row)

		switch {
		case f.Float64Range(0, 1) < dirtyProductRate:
			// Duplicate id with a different price; the cleaner keeps the first.
			dup := append([]string(nil), row...)
			dup[3] = formatPrice(f.Price(1, 200))
			out = append(out, dup)
		case f.Float64Range(0, 1) < dirtyProductRate:
			out = append(out, []string{
				fmt.Sprintf("P%04d-bad", i),
				f.ProductName(),
				f.ProductCategory(),
				"-" + formatPrice(f.Price(1, 50)),
			})
		}
	}
	return out
}

func genCustomers(f *gofakeit.Faker, n int) [][]string {
	out := [][]string{{"id", "name", "email", "city", "signup_date"}}
	for i := 1; i <= n; i++ {
		signup := f.DateRange(
			time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		).Format("2006-01-02")
		if f.Float64Range(0, 1) < dirtyCustomerRate {
			signup = "not-a-date"
		}
		out = append(out, []string{
			fmt.Sprintf("C%04d", i),
			f.Name(),
			f.Email(),
			f.City(),
			signup,
		})
	}
	return out
}

func genSales(f *gofakeit.Faker, n, customers int) [][]string {
	out := [][]string{{"id", "date", "customer_id", "payment_method", "channel"}}
	for i := 1; i <= n; i++ {
		customerID := fmt.Sprintf("C%04d", f.IntRange(1, customers))
		if f.Float64Range(0, 1) < dirtySaleRate {
			// Reference to a customer the customers file never contains.
			customerID = fmt.Sprintf("C%04d", customers+f.IntRange(1, 50))
		}
		out = append(out, []string{
			fmt.Sprintf("S%05d", i),
			f.DateRange(
				time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
			).Format("2006-01-02"),
			customerID,
			randomElement(f, paymentMethods),
			randomElement(f, channels),
		})
	}
	return out
}

func genSaleLines(f *gofakeit.Faker, sales, products [][]string, maxLines int) [][]string {
	out := [][]string{{"sale_id", "product_id", "product_name", "quantity", "unit_price", "amount"}}

	// skip header rows
	for _, sale := range sales[1:] {
		saleID := sale[0]
		for l := f.IntRange(1, maxLines); l > 0; l-- {
			product := products[f.IntRange(1, len(products)-1)]
			productID, productName := product[0], product[1]
			if f.Float64Range(0, 1) < orphanLineRate {
				productID = fmt.Sprintf("P%04d", 9000+f.IntRange(1, 99))
			}

			qty := float64(f.IntRange(1, 8))
			price, _ := strconv.ParseFloat(product[3], 64)
			amount := qty * price
			if f.Float64Range(0, 1) < deviationRate {
				amount += f.Price(1, 10)
			}

			out = append(out, []string{
				saleID,
				productID,
				productName,
				strconv.FormatFloat(qty, 'f', -1, 64),
				formatPrice(price),
				formatPrice(amount),
			})
		}
	}
	return out
}

func randomElement(f *gofakeit.Faker, items []string) string {
	return items[f.IntRange(0, len(items)-1)]
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeCSV(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("datagen: create %s: %w", path, err)
	}

	w := csv.NewWriter(file)
	if err := w.WriteAll(records); err != nil {
		_ = file.Close()
		return fmt.Errorf("datagen: write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("datagen: close %s: %w", path, err)
	}
	return nil
}
