package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"aurelion/internal/storage"
)

// Repo implements storage.Repository for SQLite.
//
// SQLite notes:
//   - Dates are stored as RFC3339 TEXT; modernc.org/sqlite has no dedicated
//     date type and TEXT round-trips reliably.
//   - Idempotent inserts use INSERT OR IGNORE, which relies on the UNIQUE
//     constraints EnsureTables declares.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureTables creates tables with CREATE TABLE IF NOT EXISTS, so startup is
// idempotent across runs.
func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		ddl, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("sqlite: create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// InsertRows bulk-inserts rows. With dedupeColumns set it switches to
// INSERT OR IGNORE; the dedupe columns themselves are not referenced in the
// SQL, the matching UNIQUE constraint does the work.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, dedupeColumns []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	q, args := buildInsertSQL(table, columns, rows, len(dedupeColumns) > 0)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// buildInsertSQL constructs one multi-row INSERT and its args. Pure, so the
// placeholder layout is unit-testable without a database.
func buildInsertSQL(table string, columns []string, rows [][]any, orIgnore bool) (string, []any) {
	var b strings.Builder
	if orIgnore {
		b.WriteString("INSERT OR IGNORE INTO ")
	} else {
		b.WriteString("INSERT INTO ")
	}
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
	}
	b.WriteString(") VALUES ")

	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		for _, v := range row {
			args = append(args, bindValue(v))
		}
	}
	b.WriteString(";")
	return b.String(), args
}

// bindValue normalizes Go values into shapes SQLite stores predictably.
func bindValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return v
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("sqlite: table name is empty")
	}

	parts := make([]string, 0, len(t.Columns)+len(t.Unique))
	for _, c := range t.Columns {
		ct, err := columnType(c.Type)
		if err != nil {
			return "", fmt.Errorf("sqlite: table %s column %s: %w", t.Name, c.Name, err)
		}
		col := sqlIdent(c.Name) + " " + ct
		if !c.Nullable {
			col += " NOT NULL"
		}
		parts = append(parts, col)
	}

	for _, cols := range t.Unique {
		quoted := make([]string, 0, len(cols))
		for _, c := range cols {
			quoted = append(quoted, sqlIdent(c))
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", strings.Join(quoted, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", sqlIdent(t.Name), strings.Join(parts, ",\n  ")), nil
}

func columnType(portable string) (string, error) {
	switch portable {
	case "text":
		return "TEXT", nil
	case "int":
		return "INTEGER", nil
	case "double":
		return "REAL", nil
	case "date":
		return "TEXT", nil
	default:
		return "", fmt.Errorf("unsupported column type %q", portable)
	}
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
