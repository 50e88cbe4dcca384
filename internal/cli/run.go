package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"aurelion/internal/analytics"
	"aurelion/internal/logging"
	"aurelion/internal/metrics"
	"aurelion/internal/metrics/datadog"
	"aurelion/internal/pipeline"
	"aurelion/internal/storage"
	_ "aurelion/internal/storage/all"
)

var (
	runExportDir      string
	runDocsDir        string
	runStorageKind    string
	runStorageDSN     string
	runMetricsBackend string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full analytics pipeline",
	Long: `Run the full pipeline: load the configured datasets, validate schemas,
check referential integrity, clean, integrate into the fact table, compute
metrics, and write the CSV reports and markdown summary.

Example:
  aurelion run
  aurelion run --storage-kind sqlite --storage-dsn file:results.db
  aurelion run --export-dir out --docs-dir out/docs`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runExportDir, "export-dir", "",
		"directory for CSV reports")
	runCmd.Flags().StringVar(&runDocsDir, "docs-dir", "",
		"directory for the markdown summary")
	runCmd.Flags().StringVar(&runStorageKind, "storage-kind", "",
		"results database backend: sqlite, postgres or mssql")
	runCmd.Flags().StringVar(&runStorageDSN, "storage-dsn", "",
		"results database DSN")
	runCmd.Flags().StringVar(&runMetricsBackend, "metrics-backend", "",
		"metrics backend: datadog or none")
}

func runRun(cmd *cobra.Command, args []string) error {
	applyRunFlags()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()

	closeMetrics, err := setupMetrics(ctx)
	if err != nil {
		return err
	}
	defer closeMetrics()

	var repo storage.Repository
	if cfg.Storage.Kind != "" {
		repo, err = storage.New(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN})
		if err != nil {
			return fmt.Errorf("connect results store: %w", err)
		}
		defer repo.Close()
	}

	p, err := pipeline.New(pipeline.Options{Config: cfg, Log: pipelineLogger{}, Repo: repo})
	if err != nil {
		return err
	}

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	printRunSummary(cmd, res)
	return nil
}

func applyRunFlags() {
	if runExportDir != "" {
		cfg.Export.Dir = runExportDir
	}
	if runDocsDir != "" {
		cfg.Export.DocsDir = runDocsDir
	}
	if runStorageKind != "" {
		cfg.Storage.Kind = runStorageKind
	}
	if runStorageDSN != "" {
		cfg.Storage.DSN = runStorageDSN
	}
	if runMetricsBackend != "" {
		cfg.Metrics.Backend = runMetricsBackend
	}
}

// setupMetrics installs the configured metrics backend and returns its
// shutdown function.
func setupMetrics(ctx context.Context) (func(), error) {
	switch cfg.Metrics.Backend {
	case "", "none":
		return func() {}, nil
	case "datadog":
		backend, err := datadog.NewBackend(ctx, datadog.Options{
			Tags:       datadog.ParseTagsCSV(cfg.Metrics.Tags),
			FlushEvery: time.Duration(cfg.Metrics.FlushSeconds) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("datadog backend: %w", err)
		}
		metrics.SetBackend(backend)
		return func() {
			if err := backend.Close(); err != nil {
				logging.Warn().Err(err).Msg("metrics flush failed")
			}
			metrics.SetBackend(nil)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported metrics.backend=%q", cfg.Metrics.Backend)
	}
}

func printRunSummary(cmd *cobra.Command, res *pipeline.Result) {
	b := res.Bundle

	cmd.Printf("Fact rows: %d\n", len(b.Facts))
	cmd.Printf("Referential orphans: %d\n", res.Integrity.Orphans())
	cmd.Println()

	cmd.Println("Monthly average ticket:")
	for _, p := range b.MonthlyTicket {
		cmd.Printf("  %s  %.2f\n", p.Month, p.AverageTicket)
	}
	cmd.Println()

	cmd.Println("Top products by revenue:")
	for i, e := range b.TopProducts {
		cmd.Printf("  %d. %s  %.2f\n", i+1, entityLabel(e), e.Revenue)
	}
	cmd.Println()

	cmd.Println("Payment method share:")
	for _, s := range b.PaymentShare {
		cmd.Printf("  %-12s %5.1f%%\n", s.Method, s.Pct)
	}
	cmd.Println()

	pc := analytics.CountByClass(b.ABCProducts)
	cc := analytics.CountByClass(b.ABCCustomers)
	cmd.Printf("ABC products:  A=%d B=%d C=%d\n", pc["A"], pc["B"], pc["C"])
	cmd.Printf("ABC customers: A=%d B=%d C=%d\n", cc["A"], cc["B"], cc["C"])
}

func entityLabel(e analytics.EntityRevenue) string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}
