package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"aurelion/internal/analytics"
	"aurelion/internal/cleaner"
	"aurelion/internal/integrity"
)

// SummaryFile is the markdown report name written under the docs dir.
const SummaryFile = "summary.md"

// RunInfo carries the per-run context the summary reports alongside the
// metrics: when the run happened and what cleaning/integrity found.
type RunInfo struct {
	GeneratedAt time.Time
	Cleaning    map[string]cleaner.Stats
	Integrity   integrity.Stats
}

// WriteSummary renders the executive summary markdown under dir.
func WriteSummary(dir string, b *analytics.Bundle, info RunInfo) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: create dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, SummaryFile)
	if err := os.WriteFile(path, []byte(renderSummary(b, info)), 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}

func renderSummary(b *analytics.Bundle, info RunInfo) string {
	var sb strings.Builder

	sb.WriteString("# Commercial analytics summary\n\n")
	if !info.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "Generated %s\n\n", info.GeneratedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "Fact rows: %d\n\n", len(b.Facts))

	sb.WriteString("## Data quality\n\n")
	sb.WriteString("| table | initial | final | discarded | discard % |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, table := range sortedTables(info.Cleaning) {
		s := info.Cleaning[table]
		fmt.Fprintf(&sb, "| %s | %d | %d | %d | %.1f |\n", table, s.Initial, s.Final, s.Discarded(), s.DiscardPct())
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Referential orphans: %d (lines without sale: %d, lines without product: %d, sales without customer: %d)\n\n",
		info.Integrity.Orphans(),
		info.Integrity.LinesMissingSale,
		info.Integrity.LinesMissingProduct,
		info.Integrity.SalesMissingCustomer,
	)

	sb.WriteString("## Monthly average ticket\n\n")
	sb.WriteString("| month | average ticket |\n|---|---|\n")
	for _, p := range b.MonthlyTicket {
		fmt.Fprintf(&sb, "| %s | %.2f |\n", p.Month, p.AverageTicket)
	}
	sb.WriteString("\n")

	sb.WriteString("## Top products by revenue\n\n")
	sb.WriteString("| # | product | revenue |\n|---|---|---|\n")
	for i, e := range b.TopProducts {
		fmt.Fprintf(&sb, "| %d | %s | %.2f |\n", i+1, displayName(e.ID, e.Name), e.Revenue)
	}
	sb.WriteString("\n")

	sb.WriteString("## Payment method share\n\n")
	sb.WriteString("| method | share % |\n|---|---|\n")
	for _, s := range b.PaymentShare {
		fmt.Fprintf(&sb, "| %s | %.1f |\n", s.Method, s.Pct)
	}
	sb.WriteString("\n")

	sb.WriteString("## ABC classification\n\n")
	writeABCCounts(&sb, "Products", b.ABCProducts)
	writeABCCounts(&sb, "Customers", b.ABCCustomers)

	return sb.String()
}

func writeABCCounts(sb *strings.Builder, label string, entries []analytics.ABCEntry) {
	counts := analytics.CountByClass(entries)
	fmt.Fprintf(sb, "%s: %d class A, %d class B, %d class C\n\n", label, counts["A"], counts["B"], counts["C"])
}

func displayName(id, name string) string {
	if name != "" {
		return name
	}
	return id
}

func sortedTables(m map[string]cleaner.Stats) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
