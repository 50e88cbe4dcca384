// Package config handles configuration for the aurelion analytics job.
// Configuration is loaded from a YAML file and overridden by CLI flags;
// flags take precedence over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Dataset names used as keys in Datasets and Contracts.
const (
	TableProducts  = "products"
	TableCustomers = "customers"
	TableSales     = "sales"
	TableSaleLines = "sale_lines"
)

// Config holds all configuration for an analytics run.
type Config struct {
	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Datasets maps table name -> input source.
	Datasets map[string]Dataset `mapstructure:"datasets"`

	// Contracts maps table name -> expected/optional columns.
	// This is the schema-validation input; the validator owns its semantics.
	Contracts map[string]Contract `mapstructure:"contracts"`

	// Export holds output locations for CSV files and the summary report.
	Export ExportConfig `mapstructure:"export"`

	// Storage optionally persists the fact table and metric tables to a DB.
	Storage StorageConfig `mapstructure:"storage"`

	// Metrics selects the observability backend.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Seed configures demo dataset generation.
	Seed SeedConfig `mapstructure:"seed"`
}

// Dataset describes one input table source.
type Dataset struct {
	Path string `mapstructure:"path"`

	// Format is "csv" or "json". Empty defaults to csv.
	Format string `mapstructure:"format"`

	// Options are parser options (comma, header_map, encoding, ...).
	Options Options `mapstructure:"options"`
}

// Contract lists the required and optional columns of one input table.
type Contract struct {
	Required []string `mapstructure:"required"`
	Optional []string `mapstructure:"optional"`
}

// ExportConfig holds output directories.
type ExportConfig struct {
	Dir     string `mapstructure:"dir"`
	DocsDir string `mapstructure:"docs_dir"`
}

// StorageConfig selects an optional results database.
type StorageConfig struct {
	// Kind: "sqlite" | "postgres" | "mssql". Empty disables DB export.
	Kind string `mapstructure:"kind"`
	DSN  string `mapstructure:"dsn"`
}

// MetricsConfig selects the metrics backend.
type MetricsConfig struct {
	// Backend: "datadog" | "none".
	Backend string `mapstructure:"backend"`

	// Tags are extra backend tags, e.g. "env:prod,service:aurelion".
	Tags string `mapstructure:"tags"`

	// FlushSeconds controls how often buffered metrics are submitted.
	FlushSeconds int `mapstructure:"flush_seconds"`
}

// SeedConfig controls the seed subcommand.
type SeedConfig struct {
	Dir       string `mapstructure:"dir"`
	Products  int    `mapstructure:"products"`
	Customers int    `mapstructure:"customers"`
	Sales     int    `mapstructure:"sales"`
	MaxLines  int    `mapstructure:"max_lines"`
	RandSeed  uint64 `mapstructure:"rand_seed"`
}

// DefaultConfig returns a Config with default values.
//
// The default contracts mirror the canonical dataset layout; deployments with
// renamed columns override them in the config file (or remap via header_map).
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Datasets: map[string]Dataset{
			TableProducts:  {Path: "datasets/products.csv"},
			TableCustomers: {Path: "datasets/customers.csv"},
			TableSales:     {Path: "datasets/sales.csv"},
			TableSaleLines: {Path: "datasets/sale_lines.csv"},
		},
		Contracts: map[string]Contract{
			TableProducts:  {Required: []string{"id", "name", "category", "unit_price"}},
			TableCustomers: {Required: []string{"id", "name", "email", "city", "signup_date"}},
			TableSales:     {Required: []string{"id", "date", "customer_id", "payment_method", "channel"}},
			TableSaleLines: {
				Required: []string{"sale_id", "product_id", "quantity", "unit_price", "amount"},
				Optional: []string{"product_name"},
			},
		},
		Export: ExportConfig{
			Dir:     "export",
			DocsDir: "docs",
		},
		Metrics: MetricsConfig{
			Backend:      "none",
			FlushSeconds: 60,
		},
		Seed: SeedConfig{
			Dir:       "datasets",
			Products:  40,
			Customers: 120,
			Sales:     600,
			MaxLines:  5,
		},
	}
}

// Load reads configuration from a YAML file.
// Config file locations (in order of precedence):
//  1. Path specified by configFile parameter
//  2. ./aurelion.yaml
//  3. ~/.config/aurelion/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("aurelion")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "aurelion"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	for _, name := range []string{TableProducts, TableCustomers, TableSales, TableSaleLines} {
		ds, ok := c.Datasets[name]
		if !ok || ds.Path == "" {
			return fmt.Errorf("datasets.%s.path is required", name)
		}
		switch ds.Format {
		case "", "csv", "json":
		default:
			return fmt.Errorf("datasets.%s.format must be csv or json, got %q", name, ds.Format)
		}
		if _, ok := c.Contracts[name]; !ok {
			return fmt.Errorf("contracts.%s is required", name)
		}
	}
	if c.Storage.Kind != "" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required when storage.kind is set")
	}
	return nil
}
