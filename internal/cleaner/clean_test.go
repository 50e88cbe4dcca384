package cleaner

import (
	"testing"
	"time"

	"aurelion/internal/dataset"
)

func table(name string, columns []string, rows ...[]string) *dataset.Table {
	return &dataset.Table{Name: name, Columns: columns, Rows: rows}
}

func TestCleanProductsDedupeAndCoercion(t *testing.T) {
	in := table("products",
		[]string{"id", "name", "category", "unit_price"},
		[]string{"1", "Bread", "Bakery", "3.00"},
		[]string{"1", "Bread again", "Bakery", "9.99"}, // duplicate id, dropped
		[]string{"2", "Milk", "DAIRY", "2,50"},         // decimal comma, category lowercased
		[]string{"3", "Broken", "misc", "abc"},         // unparseable price
		[]string{"4", "Negative", "misc", "-1"},        // negative price
		[]string{"", "NoID", "misc", "1"},              // blank id
	)

	got, stats, err := CleanProducts(in)
	if err != nil {
		t.Fatalf("CleanProducts: %v", err)
	}
	if stats.Initial != 6 || stats.Final != 2 {
		t.Fatalf("stats = %+v, want Initial=6 Final=2", stats)
	}
	if len(got) != 2 {
		t.Fatalf("got %d products, want 2", len(got))
	}
	if got[0].ID != "1" || got[0].UnitPrice != 3.0 {
		t.Fatalf("first product = %+v, want id 1 price 3 (first occurrence wins)", got[0])
	}
	if got[1].Category != "dairy" || got[1].UnitPrice != 2.5 {
		t.Fatalf("second product = %+v, want lowercased category and 2.5", got[1])
	}
}

func TestCleanProductsMissingIDColumn(t *testing.T) {
	in := table("products", []string{"name", "unit_price"}, []string{"Bread", "3"})
	if _, _, err := CleanProducts(in); err == nil {
		t.Fatalf("expected structural error for missing id column")
	}
}

func TestCleanCustomersDropsBadDates(t *testing.T) {
	in := table("customers",
		[]string{"id", "name", "email", "city", "signup_date"},
		[]string{"1", "Ana", "ana@example.com", "Lisbon", "2024-03-01"},
		[]string{"2", "Bob", "bob@example.com", "Porto", "01/02/2024"}, // day-first accepted
		[]string{"3", "Eve", "eve@example.com", "Faro", "not-a-date"},
	)

	got, stats, err := CleanCustomers(in)
	if err != nil {
		t.Fatalf("CleanCustomers: %v", err)
	}
	if stats.Initial != 3 || stats.Final != 2 {
		t.Fatalf("stats = %+v, want Initial=3 Final=2", stats)
	}
	want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if !got[1].SignupDate.Equal(want) {
		t.Fatalf("day-first signup = %v, want %v", got[1].SignupDate, want)
	}
}

func TestCleanSalesKeepsBlankCustomer(t *testing.T) {
	in := table("sales",
		[]string{"id", "date", "customer_id", "payment_method", "channel"},
		[]string{"1", "2025-01-10", "9", "CASH", "Store"},
		[]string{"2", "2025-01-11", "", "card", "online"}, // blank customer kept
		[]string{"3", "garbage", "9", "cash", "store"},    // bad date dropped
		[]string{"1", "2025-01-12", "9", "cash", "store"}, // duplicate id dropped
	)

	got, stats, err := CleanSales(in)
	if err != nil {
		t.Fatalf("CleanSales: %v", err)
	}
	if stats.Initial != 4 || stats.Final != 2 {
		t.Fatalf("stats = %+v, want Initial=4 Final=2", stats)
	}
	if got[0].PaymentMethod != "cash" || got[0].Channel != "store" {
		t.Fatalf("enum fields = %+v, want lowercased", got[0])
	}
	if got[1].CustomerID != "" {
		t.Fatalf("blank customer_id was altered: %+v", got[1])
	}
}

func TestCleanSaleLinesRules(t *testing.T) {
	in := table("sale_lines",
		[]string{"sale_id", "product_id", "product_name", "quantity", "unit_price", "amount"},
		[]string{"1", "1", "Bread", "2", "3.00", "6.00"},
		[]string{"1", "2", "Milk", "1", "2.50", ""},      // missing amount recomputed
		[]string{"1", "3", "Eggs", "0", "4.00", "0"},     // quantity <= 0 dropped
		[]string{"1", "4", "Ham", "1", "-2", "-2"},       // negative price dropped
		[]string{"1", "", "NoProd", "1", "1", "1"},       // blank product dropped
		[]string{"", "5", "NoSale", "1", "1", "1"},       // blank sale dropped
		[]string{"1", "6", "Wine", "2", "10.00", "25.0"}, // deviation, kept as stored
		[]string{"1", "1", "Bread", "2", "3.00", "6.00"}, // duplicate line kept
	)

	got, stats, err := CleanSaleLines(in)
	if err != nil {
		t.Fatalf("CleanSaleLines: %v", err)
	}
	if stats.Initial != 8 || stats.Final != 4 {
		t.Fatalf("stats = %+v, want Initial=8 Final=4", stats)
	}
	if stats.Deviations != 1 {
		t.Fatalf("deviations = %d, want 1", stats.Deviations)
	}
	if got[1].Amount != 2.5 {
		t.Fatalf("recomputed amount = %v, want 2.5", got[1].Amount)
	}
	if got[2].Amount != 25.0 {
		t.Fatalf("stored amount = %v, want 25 (kept as ledger of record)", got[2].Amount)
	}
	if got[3].SaleID != "1" || got[3].ProductID != "1" {
		t.Fatalf("duplicate line was deduplicated: %+v", got)
	}
}

func TestCleanSaleLinesWithoutNameColumn(t *testing.T) {
	in := table("sale_lines",
		[]string{"sale_id", "product_id", "quantity", "unit_price", "amount"},
		[]string{"1", "1", "2", "3.00", "6.00"},
	)

	got, _, err := CleanSaleLines(in)
	if err != nil {
		t.Fatalf("CleanSaleLines: %v", err)
	}
	if got[0].ProductName != "" {
		t.Fatalf("product name = %q, want empty without the optional column", got[0].ProductName)
	}
}

func TestStatsDiscardPct(t *testing.T) {
	s := Stats{Initial: 10, Final: 7}
	if s.Discarded() != 3 {
		t.Fatalf("Discarded = %d, want 3", s.Discarded())
	}
	if pct := s.DiscardPct(); pct != 30 {
		t.Fatalf("DiscardPct = %v, want 30", pct)
	}
	if pct := (Stats{}).DiscardPct(); pct != 0 {
		t.Fatalf("empty DiscardPct = %v, want 0", pct)
	}
}
