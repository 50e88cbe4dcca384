// Package storage defines the backend-agnostic persistence surface for the
// pipeline's output tables, plus the registry backends install themselves
// into. Concrete backends (sqlite, postgres, mssql) live in subpackages and
// register via init().
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config selects and configures a storage backend.
//
// Kind must match a registered backend kind; DSN is passed through to the
// backend factory and validated there.
type Config struct {
	Kind string
	DSN  string
}

// Repository is the minimal persistence interface the pipeline needs.
//
// Each backend implements idempotent insert semantics its own way (Postgres
// ON CONFLICT, SQLite OR IGNORE, SQL Server NOT EXISTS), so re-running the
// pipeline over the same input never fails on unique constraints.
type Repository interface {
	// Close releases backend resources. Call once at shutdown.
	Close()

	// EnsureTables creates the given tables if they do not exist.
	// Safe to run on every invocation.
	EnsureTables(ctx context.Context, tables []TableSpec) error

	// InsertRows bulk-inserts rows into table. When dedupeColumns is
	// non-empty, rows whose dedupe key already exists are skipped and the
	// returned count excludes them.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any, dedupeColumns []string) (int64, error)
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register installs a backend factory under a kind (e.g. "sqlite").
//
// Call from an init() in the backend package. Registering the same kind
// twice panics; failing fast beats ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository for the configured backend kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing storage.kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
