package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aurelion/internal/config"
	"aurelion/internal/export"
	"aurelion/internal/schema"
	"aurelion/internal/storage"
)

type logLine struct {
	format string
	args   []any
}

type fakeLogger struct {
	lines []logLine
}

func (l *fakeLogger) Printf(format string, v ...any) {
	l.lines = append(l.lines, logLine{format: format, args: v})
}

type fakeRepo struct {
	ensured  []storage.TableSpec
	inserted [][]any
	columns  []string
	dedupe   []string
	insErr   error
}

func (r *fakeRepo) Close() {}

func (r *fakeRepo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	r.ensured = append(r.ensured, tables...)
	return nil
}

func (r *fakeRepo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, dedupeColumns []string) (int64, error) {
	if r.insErr != nil {
		return 0, r.insErr
	}
	r.columns = columns
	r.dedupe = dedupeColumns
	r.inserted = append(r.inserted, rows...)
	return int64(len(rows)), nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// testConfig writes the four datasets into a temp dir and returns a config
// pointing at them.
func testConfig(t *testing.T, products, customers, sales, lines string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "products.csv"), products)
	writeFile(t, filepath.Join(dir, "customers.csv"), customers)
	writeFile(t, filepath.Join(dir, "sales.csv"), sales)
	writeFile(t, filepath.Join(dir, "sale_lines.csv"), lines)

	cfg := config.DefaultConfig()
	for name, file := range map[string]string{
		config.TableProducts:  "products.csv",
		config.TableCustomers: "customers.csv",
		config.TableSales:     "sales.csv",
		config.TableSaleLines: "sale_lines.csv",
	} {
		cfg.Datasets[name] = config.Dataset{Path: filepath.Join(dir, file)}
	}
	cfg.Export.Dir = filepath.Join(dir, "export")
	cfg.Export.DocsDir = filepath.Join(dir, "docs")
	return cfg
}

const (
	breadProducts  = "id,name,category,unit_price\n1,Bread,bakery,3.00\n"
	anaCustomers   = "id,name,email,city,signup_date\n1,Ana,ana@example.com,Lisbon,2024-03-01\n"
	cashSales      = "id,date,customer_id,payment_method,channel\n1,2025-01-10,1,cash,store\n"
	breadSaleLines = "sale_id,product_id,product_name,quantity,unit_price,amount\n1,1,Bread,2,3.00,6.00\n"
)

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t, breadProducts, anaCustomers, cashSales, breadSaleLines)
	log := &fakeLogger{}

	p, err := New(Options{Config: cfg, Log: log})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	b := res.Bundle
	if len(b.Facts) != 1 {
		t.Fatalf("facts = %d, want 1", len(b.Facts))
	}
	f := b.Facts[0]
	if f.SaleID != "1" || f.CustomerID != "1" || f.ProductName != "Bread" || f.Amount != 6 {
		t.Fatalf("fact = %+v", f)
	}

	if len(b.MonthlyTicket) != 1 || b.MonthlyTicket[0].Month != "2025-01" || b.MonthlyTicket[0].AverageTicket != 6 {
		t.Fatalf("monthly ticket = %+v", b.MonthlyTicket)
	}
	if len(b.TopProducts) != 1 || b.TopProducts[0].Name != "Bread" {
		t.Fatalf("top products = %+v", b.TopProducts)
	}
	if len(b.PaymentShare) != 1 || b.PaymentShare[0].Method != "cash" || b.PaymentShare[0].Pct != 100 {
		t.Fatalf("payment share = %+v", b.PaymentShare)
	}
	if len(b.ABCCustomers) != 1 || b.ABCCustomers[0].ID != "1" || b.ABCCustomers[0].Class != "A" {
		t.Fatalf("abc customers = %+v", b.ABCCustomers)
	}

	if res.Integrity.Orphans() != 0 {
		t.Fatalf("integrity = %+v", res.Integrity)
	}
	if got := res.Cleaning[config.TableSaleLines]; got.Initial != 1 || got.Final != 1 {
		t.Fatalf("cleaning stats = %+v", got)
	}

	// Export artifacts on disk.
	if _, err := os.Stat(filepath.Join(cfg.Export.Dir, export.FileTopProducts)); err != nil {
		t.Fatalf("csv report missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Export.DocsDir, export.SummaryFile)); err != nil {
		t.Fatalf("summary missing: %v", err)
	}

	if len(log.lines) == 0 {
		t.Fatalf("no log lines emitted")
	}
}

func TestRunExcludesOrphanLineFromFacts(t *testing.T) {
	lines := breadSaleLines + "1,99,Ghost,1,1.00,1.00\n"
	cfg := testConfig(t, breadProducts, anaCustomers, cashSales, lines)

	p, err := New(Options{Config: cfg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Integrity.LinesMissingProduct != 1 {
		t.Fatalf("integrity = %+v, want one orphan line", res.Integrity)
	}
	if len(res.Bundle.Facts) != 1 {
		t.Fatalf("facts = %d, want orphan excluded", len(res.Bundle.Facts))
	}
}

func TestRunSchemaFailureIsFatalAndAggregated(t *testing.T) {
	products := "id,name\n1,Bread\n" // missing category and unit_price
	sales := "id,customer_id\n1,1\n" // missing date, payment_method, channel
	cfg := testConfig(t, products, anaCustomers, sales, breadSaleLines)

	p, err := New(Options{Config: cfg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Run(context.Background())
	if err == nil {
		t.Fatalf("expected schema failure")
	}

	var se *StageError
	if !errors.As(err, &se) || se.Stage != "validate" {
		t.Fatalf("err = %v, want validate StageError", err)
	}
	var sce *schema.SchemaError
	if !errors.As(err, &sce) {
		t.Fatalf("err chain lacks SchemaError: %v", err)
	}
	// Both broken tables are reported in one error.
	msg := err.Error()
	if !strings.Contains(msg, "products") || !strings.Contains(msg, "sales") {
		t.Fatalf("error does not aggregate all tables: %v", msg)
	}
}

func TestRunReportsMissingOptionalColumn(t *testing.T) {
	lines := "sale_id,product_id,quantity,unit_price,amount\n1,1,2,3.00,6.00\n"
	cfg := testConfig(t, breadProducts, anaCustomers, cashSales, lines)

	p, err := New(Options{Config: cfg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := res.MissingOptional[config.TableSaleLines]
	if len(got) != 1 || got[0] != "product_name" {
		t.Fatalf("missing optional = %v", got)
	}
	// The fact still enriches the name from the product table.
	if res.Bundle.Facts[0].ProductName != "Bread" {
		t.Fatalf("fact name = %q", res.Bundle.Facts[0].ProductName)
	}
}

func TestRunPersistsFacts(t *testing.T) {
	cfg := testConfig(t, breadProducts, anaCustomers, cashSales, breadSaleLines)
	repo := &fakeRepo{}

	p, err := New(Options{Config: cfg, Repo: repo})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(repo.ensured) != 1 || repo.ensured[0].Name != "facts" {
		t.Fatalf("ensured = %+v", repo.ensured)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("inserted = %d rows", len(repo.inserted))
	}
	if len(repo.dedupe) != 3 {
		t.Fatalf("dedupe = %v", repo.dedupe)
	}
	if repo.inserted[0][0] != "1" {
		t.Fatalf("row = %v", repo.inserted[0])
	}
}

func TestRunPersistFailureIsStageError(t *testing.T) {
	cfg := testConfig(t, breadProducts, anaCustomers, cashSales, breadSaleLines)
	repo := &fakeRepo{insErr: fmt.Errorf("connection lost")}

	p, err := New(Options{Config: cfg, Repo: repo})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Run(context.Background())

	var se *StageError
	if !errors.As(err, &se) || se.Stage != "persist" {
		t.Fatalf("err = %v, want persist StageError", err)
	}
}

func TestRunMissingDatasetFile(t *testing.T) {
	cfg := testConfig(t, breadProducts, anaCustomers, cashSales, breadSaleLines)
	cfg.Datasets[config.TableSales] = config.Dataset{Path: "/nonexistent/sales.csv"}

	p, err := New(Options{Config: cfg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Run(context.Background())

	var se *StageError
	if !errors.As(err, &se) || se.Stage != "load" {
		t.Fatalf("err = %v, want load StageError", err)
	}
}

func TestCheckStopsAfterIntegrity(t *testing.T) {
	lines := breadSaleLines + "1,99,Ghost,1,1.00,1.00\n"
	cfg := testConfig(t, breadProducts, anaCustomers, cashSales, lines)

	p, err := New(Options{Config: cfg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Check()
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if res.Bundle != nil {
		t.Fatalf("Check computed a bundle; want none")
	}
	if res.Integrity.LinesMissingProduct != 1 {
		t.Fatalf("integrity = %+v", res.Integrity)
	}
	// Nothing exported.
	if _, err := os.Stat(cfg.Export.Dir); !os.IsNotExist(err) {
		t.Fatalf("export dir exists after Check")
	}
}

func TestRunJSONDataset(t *testing.T) {
	cfg := testConfig(t, breadProducts, anaCustomers, cashSales, breadSaleLines)

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "products.json")
	writeFile(t, jsonPath, `[{"id": "1", "name": "Bread", "category": "bakery", "unit_price": 3.0}]`)
	cfg.Datasets[config.TableProducts] = config.Dataset{Path: jsonPath, Format: "json"}

	p, err := New(Options{Config: cfg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Bundle.Facts) != 1 || res.Bundle.Facts[0].Category != "bakery" {
		t.Fatalf("facts = %+v", res.Bundle.Facts)
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
