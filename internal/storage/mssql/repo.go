package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"aurelion/internal/storage"
)

// Repo implements storage.Repository for Microsoft SQL Server.
//
// SQL Server has no INSERT ... ON CONFLICT, so idempotent inserts use a
// per-row "INSERT ... WHERE NOT EXISTS" pattern keyed on the dedupe columns.
// That is slower than the set-based paths in the other backends but keeps
// reprocessing semantics identical.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}

	// Conservative defaults for bursty batch loads.
	db.SetMaxOpenConns(64)
	db.SetMaxIdleConns(64)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) EnsureTables(ctx context.Context, tables []storage.TableSpec) error {
	for _, t := range tables {
		ddl, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("mssql: create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, dedupeColumns []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if len(dedupeColumns) == 0 {
		return r.insertPlain(ctx, table, columns, rows)
	}
	return r.insertDedupe(ctx, table, columns, rows, dedupeColumns)
}

func (r *Repo) insertPlain(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	q, args := buildInsertSQL(table, columns, rows)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// insertDedupe inserts row-by-row inside one transaction, skipping rows whose
// dedupe key already exists.
func (r *Repo) insertDedupe(ctx context.Context, table string, columns []string, rows [][]any, dedupeColumns []string) (int64, error) {
	q, keyIdx, err := buildDedupeInsertSQL(table, columns, dedupeColumns)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var affected int64
	for _, row := range rows {
		args := make([]any, 0, len(row)+len(keyIdx))
		args = append(args, row...)
		for _, i := range keyIdx {
			args = append(args, row[i])
		}

		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return affected, err
		}
		n, _ := res.RowsAffected()
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return affected, err
	}
	return affected, nil
}

// buildInsertSQL constructs one multi-row INSERT with @pN placeholders.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(msIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	b.WriteString(";")
	return b.String(), args
}

// buildDedupeInsertSQL constructs a single-row conditional insert:
//
//	INSERT INTO t (cols...) SELECT @p1..@pN
//	WHERE NOT EXISTS (SELECT 1 FROM t WHERE k1 = @pN+1 AND ...)
//
// It returns the positions of the dedupe columns within columns, so the
// caller can append the key values after the row values.
func buildDedupeInsertSQL(table string, columns []string, dedupeColumns []string) (string, []int, error) {
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}

	keyIdx := make([]int, 0, len(dedupeColumns))
	for _, k := range dedupeColumns {
		i, ok := pos[k]
		if !ok {
			return "", nil, fmt.Errorf("mssql: dedupe column %q not in insert columns", k)
		}
		keyIdx = append(keyIdx, i)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(msIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(c))
	}
	b.WriteString(") SELECT ")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "@p%d", i+1)
	}
	b.WriteString(" WHERE NOT EXISTS (SELECT 1 FROM ")
	b.WriteString(msIdent(table))
	b.WriteString(" WHERE ")
	for i, c := range dedupeColumns {
		if i > 0 {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s = @p%d", msIdent(c), len(columns)+i+1)
	}
	b.WriteString(");")
	return b.String(), keyIdx, nil
}

func buildCreateTableSQL(t storage.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("mssql: table name is empty")
	}

	parts := make([]string, 0, len(t.Columns)+len(t.Unique))
	for _, c := range t.Columns {
		ct, err := columnType(c.Type)
		if err != nil {
			return "", fmt.Errorf("mssql: table %s column %s: %w", t.Name, c.Name, err)
		}
		col := msIdent(c.Name) + " " + ct
		if !c.Nullable {
			col += " NOT NULL"
		}
		parts = append(parts, col)
	}

	for _, cols := range t.Unique {
		quoted := make([]string, 0, len(cols))
		for _, c := range cols {
			quoted = append(quoted, msIdent(c))
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", strings.Join(quoted, ", ")))
	}

	// No CREATE TABLE IF NOT EXISTS in T-SQL; guard on sys.objects instead.
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (\n  %s\n);",
		strings.ReplaceAll(t.Name, "'", "''"),
		msIdent(t.Name),
		strings.Join(parts, ",\n  "),
	), nil
}

func columnType(portable string) (string, error) {
	switch portable {
	case "text":
		return "NVARCHAR(400)", nil
	case "int":
		return "BIGINT", nil
	case "double":
		return "FLOAT", nil
	case "date":
		return "DATETIMEOFFSET", nil
	default:
		return "", fmt.Errorf("unsupported column type %q", portable)
	}
}

func msIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
