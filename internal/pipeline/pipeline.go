// Package pipeline orchestrates one analytics run: read the four datasets,
// validate their schemas, check referential integrity, clean, integrate into
// the fact table, compute metrics, export, and optionally persist.
//
// Stages run sequentially; the whole run is restartable because no stage
// mutates its input. Schema violations are fatal; integrity findings and
// dropped rows are advisory and end up in the result, the logs, and the
// metrics backend.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"aurelion/internal/analytics"
	"aurelion/internal/cleaner"
	"aurelion/internal/config"
	"aurelion/internal/dataset"
	"aurelion/internal/export"
	"aurelion/internal/integrator"
	"aurelion/internal/integrity"
	"aurelion/internal/metrics"
	csvparser "aurelion/internal/parser/csv"
	jsonparser "aurelion/internal/parser/json"
	"aurelion/internal/schema"
	"aurelion/internal/storage"
)

// Logger is the logging seam. Anything with Printf works, including
// log.Default() and test fakes.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// StageError wraps a stage failure with the stage name.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Options configures a Pipeline.
type Options struct {
	Config *config.Config

	// Log receives progress lines. Nil discards them.
	Log Logger

	// Repo, when non-nil, receives the fact table after a successful run.
	Repo storage.Repository

	// now is a test seam for stage timing.
	now func() time.Time
}

// Pipeline executes analytics runs for one configuration.
type Pipeline struct {
	cfg  *config.Config
	log  Logger
	repo storage.Repository
	now  func() time.Time
}

// Result is everything one run produced.
type Result struct {
	// Raw holds the parsed tables before cleaning.
	Raw dataset.Tables

	// MissingOptional maps table name -> optional columns absent from the
	// input. Advisory.
	MissingOptional map[string][]string

	// Integrity counts orphaned references found in the raw tables.
	Integrity integrity.Stats

	// Cleaning maps table name -> before/after cleaning stats.
	Cleaning map[string]cleaner.Stats

	// Bundle is the computed metrics, including the fact table.
	Bundle *analytics.Bundle
}

// New constructs a Pipeline. The configuration must already be validated.
func New(opts Options) (*Pipeline, error) {
	if opts.Config == nil {
		return nil, errors.New("pipeline: nil config")
	}
	log := opts.Log
	if log == nil {
		log = nopLogger{}
	}
	now := opts.now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{cfg: opts.Config, log: log, repo: opts.Repo, now: now}, nil
}

// Run executes the full pipeline and writes the export artifacts.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		MissingOptional: map[string][]string{},
		Cleaning:        map[string]cleaner.Stats{},
	}

	if err := p.runStage("load", func() error { return p.load(res) }); err != nil {
		return nil, err
	}
	if err := p.runStage("validate", func() error { return p.validate(res) }); err != nil {
		return nil, err
	}
	if err := p.runStage("integrity", func() error { return p.checkIntegrity(res) }); err != nil {
		return nil, err
	}

	var (
		products []dataset.Product
		sales    []dataset.Sale
		lines    []dataset.SaleLine
	)
	if err := p.runStage("clean", func() error {
		var err error
		products, sales, lines, err = p.clean(res)
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.runStage("integrate", func() error {
		facts := integrator.Integrate(lines, sales, products)
		p.log.Printf("stage=integrate facts=%d lines=%d", len(facts), len(lines))
		metrics.IncCounter(metrics.RowsTotal, float64(len(facts)), metrics.Labels{"table": "facts"})

		bundle, err := analytics.Compute(facts)
		if err != nil {
			return err
		}
		res.Bundle = bundle
		return nil
	}); err != nil {
		return nil, err
	}

	if err := p.runStage("export", func() error { return p.export(res) }); err != nil {
		return nil, err
	}

	if p.repo != nil {
		if err := p.runStage("persist", func() error { return p.persist(ctx, res) }); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// Check runs only the load, schema-validation and integrity stages. It is
// the dry-run entry point: nothing is cleaned, computed or written.
func (p *Pipeline) Check() (*Result, error) {
	res := &Result{
		MissingOptional: map[string][]string{},
		Cleaning:        map[string]cleaner.Stats{},
	}

	if err := p.runStage("load", func() error { return p.load(res) }); err != nil {
		return nil, err
	}
	if err := p.runStage("validate", func() error { return p.validate(res) }); err != nil {
		return nil, err
	}
	if err := p.runStage("integrity", func() error { return p.checkIntegrity(res) }); err != nil {
		return nil, err
	}
	return res, nil
}

// runStage runs one stage with timing and counters around it.
func (p *Pipeline) runStage(name string, fn func() error) error {
	start := p.now()
	err := fn()
	elapsed := p.now().Sub(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.IncCounter(metrics.StageTotal, 1, metrics.Labels{"stage": name, "status": status})
	metrics.ObserveHistogram(metrics.StageDurationSeconds, elapsed.Seconds(), metrics.Labels{"stage": name})

	if err != nil {
		return &StageError{Stage: name, Err: err}
	}
	p.log.Printf("stage=%s status=ok elapsed=%s", name, elapsed)
	return nil
}

func (p *Pipeline) load(res *Result) error {
	for _, name := range []string{
		config.TableProducts,
		config.TableCustomers,
		config.TableSales,
		config.TableSaleLines,
	} {
		t, err := p.readDataset(name)
		if err != nil {
			return err
		}
		p.log.Printf("stage=load table=%s rows=%d", name, t.Len())
		metrics.IncCounter(metrics.RowsTotal, float64(t.Len()), metrics.Labels{"table": name})

		switch name {
		case config.TableProducts:
			res.Raw.Products = t
		case config.TableCustomers:
			res.Raw.Customers = t
		case config.TableSales:
			res.Raw.Sales = t
		case config.TableSaleLines:
			res.Raw.SaleLines = t
		}
	}
	return nil
}

func (p *Pipeline) readDataset(name string) (*dataset.Table, error) {
	ds := p.cfg.Datasets[name]

	f, err := os.Open(ds.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s dataset: %w", name, err)
	}
	defer f.Close()

	switch ds.Format {
	case "", "csv":
		onErr := func(line int, err error) {
			p.log.Printf("stage=load table=%s line=%d skipped: %v", name, line, err)
		}
		return csvparser.ReadTable(name, f, ds.Options, onErr)
	case "json":
		return jsonparser.ReadTable(name, f, ds.Options)
	default:
		return nil, fmt.Errorf("dataset %s: unsupported format %q", name, ds.Format)
	}
}

// validate checks every table against its contract and aggregates all
// failures, so one run reports every schema problem at once.
func (p *Pipeline) validate(res *Result) error {
	tables := map[string]*dataset.Table{
		config.TableProducts:  res.Raw.Products,
		config.TableCustomers: res.Raw.Customers,
		config.TableSales:     res.Raw.Sales,
		config.TableSaleLines: res.Raw.SaleLines,
	}

	var errs []error
	for _, name := range []string{
		config.TableProducts,
		config.TableCustomers,
		config.TableSales,
		config.TableSaleLines,
	} {
		contract := schema.FromConfig(name, p.cfg.Contracts[name])
		missingOptional, err := schema.Validate(tables[name], contract)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(missingOptional) > 0 {
			res.MissingOptional[name] = missingOptional
			p.log.Printf("stage=validate table=%s missing_optional=%v", name, missingOptional)
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) checkIntegrity(res *Result) error {
	ok, stats := integrity.Check(res.Raw)
	res.Integrity = stats
	if !ok {
		p.log.Printf("stage=integrity orphans=%d lines_missing_sale=%d lines_missing_product=%d sales_missing_customer=%d",
			stats.Orphans(), stats.LinesMissingSale, stats.LinesMissingProduct, stats.SalesMissingCustomer)
		metrics.IncCounter(metrics.OrphansTotal, float64(stats.Orphans()), nil)
	}
	return nil
}

func (p *Pipeline) clean(res *Result) ([]dataset.Product, []dataset.Sale, []dataset.SaleLine, error) {
	products, stats, err := cleaner.CleanProducts(res.Raw.Products)
	if err != nil {
		return nil, nil, nil, err
	}
	p.recordClean(res, config.TableProducts, stats)

	_, custStats, err := cleaner.CleanCustomers(res.Raw.Customers)
	if err != nil {
		return nil, nil, nil, err
	}
	p.recordClean(res, config.TableCustomers, custStats)

	sales, saleStats, err := cleaner.CleanSales(res.Raw.Sales)
	if err != nil {
		return nil, nil, nil, err
	}
	p.recordClean(res, config.TableSales, saleStats)

	lines, lineStats, err := cleaner.CleanSaleLines(res.Raw.SaleLines)
	if err != nil {
		return nil, nil, nil, err
	}
	p.recordClean(res, config.TableSaleLines, lineStats)

	return products, sales, lines, nil
}

func (p *Pipeline) recordClean(res *Result, table string, stats cleaner.Stats) {
	res.Cleaning[table] = stats
	p.log.Printf("stage=clean table=%s initial=%d final=%d discarded=%d deviations=%d",
		table, stats.Initial, stats.Final, stats.Discarded(), stats.Deviations)
}

func (p *Pipeline) export(res *Result) error {
	if err := export.WriteCSVReports(p.cfg.Export.Dir, res.Bundle); err != nil {
		return err
	}
	return export.WriteSummary(p.cfg.Export.DocsDir, res.Bundle, export.RunInfo{
		GeneratedAt: p.now(),
		Cleaning:    res.Cleaning,
		Integrity:   res.Integrity,
	})
}

func (p *Pipeline) persist(ctx context.Context, res *Result) error {
	spec := storage.FactTable()
	if err := p.repo.EnsureTables(ctx, []storage.TableSpec{spec}); err != nil {
		return err
	}

	rows := make([][]any, 0, len(res.Bundle.Facts))
	for _, f := range res.Bundle.Facts {
		rows = append(rows, storage.FactRowValues(f))
	}

	n, err := p.repo.InsertRows(ctx, spec.Name, spec.ColumnNames(), rows, spec.DedupeColumns())
	if err != nil {
		return err
	}
	p.log.Printf("stage=persist table=%s inserted=%d of=%d", spec.Name, n, len(rows))
	return nil
}
