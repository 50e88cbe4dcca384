package storage

import (
	"aurelion/internal/dataset"
)

// TableSpec describes a destination table in backend-neutral terms. Column
// types use the portable names below; each backend maps them to its own DDL.
type TableSpec struct {
	Name    string
	Columns []ColumnSpec

	// Unique lists column sets that get a UNIQUE constraint. The first set,
	// if any, is also the default dedupe key for inserts.
	Unique [][]string
}

// ColumnSpec is one column of a TableSpec.
//
// Type is one of "text", "int", "double", "date". Backends translate these;
// there is no passthrough of raw backend-specific DDL.
type ColumnSpec struct {
	Name     string
	Type     string
	Nullable bool
}

// DedupeColumns returns the default dedupe key for inserts into t, which is
// its first unique column set (nil when the table has none).
func (t TableSpec) DedupeColumns() []string {
	if len(t.Unique) == 0 {
		return nil
	}
	return t.Unique[0]
}

// ColumnNames returns the insert column list for t, in declaration order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, c.Name)
	}
	return out
}

// FactTable is the denormalized fact table the pipeline persists.
func FactTable() TableSpec {
	return TableSpec{
		Name: "facts",
		Columns: []ColumnSpec{
			{Name: "sale_id", Type: "text"},
			{Name: "sale_date", Type: "date"},
			{Name: "customer_id", Type: "text", Nullable: true},
			{Name: "payment_method", Type: "text"},
			{Name: "channel", Type: "text", Nullable: true},
			{Name: "product_id", Type: "text"},
			{Name: "product_name", Type: "text", Nullable: true},
			{Name: "category", Type: "text", Nullable: true},
			{Name: "quantity", Type: "double"},
			{Name: "unit_price", Type: "double"},
			{Name: "amount", Type: "double"},
			{Name: "line_no", Type: "int"},
		},
		// The same product can appear on several lines of one sale, so the
		// line ordinal is part of the identity; reruns still dedupe because
		// the integrator assigns ordinals deterministically.
		Unique: [][]string{{"sale_id", "product_id", "line_no"}},
	}
}

// FactRowValues converts a fact row into the value tuple matching
// FactTable().ColumnNames() order. Blank optional fields persist as NULL.
func FactRowValues(f dataset.FactRow) []any {
	return []any{
		f.SaleID,
		f.Date,
		nullable(f.CustomerID),
		f.PaymentMethod,
		nullable(f.Channel),
		f.ProductID,
		nullable(f.ProductName),
		nullable(f.Category),
		f.Quantity,
		f.UnitPrice,
		f.Amount,
		int64(f.Line),
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
