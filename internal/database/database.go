// Package database provides read-only access to the local SQLite sample
// database: query execution and the schema introspection that feeds the
// generator prompt.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	// sqlite driver for the sample database.
	_ "modernc.org/sqlite"
)

// QueryError wraps an error the database returned for a vetted statement.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// DB is a read-only handle on the sample database.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens the SQLite database at path in read-only mode. The file must
// already exist; the connection never creates or modifies it. Read-only mode
// at the driver level backs up the safety gate in case a write ever reaches
// the executor.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database file not found: %s", path)
	}

	conn, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Ping verifies the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// Result holds the rows produced by a single query. Rows preserve column
// order; byte slices are converted to strings for display and JSON encoding.
type Result struct {
	Columns []string
	Rows    [][]any
}

// RowCount returns the number of rows in the result.
func (r *Result) RowCount() int {
	return len(r.Rows)
}

// Preview returns up to n rows, for feeding back to the explainer and the
// follow-up prompt context.
func (r *Result) Preview(n int) [][]any {
	if len(r.Rows) <= n {
		return r.Rows
	}
	return r.Rows[:n]
}

// Query executes a single statement and collects the full result set.
// Database-side failures are wrapped as *QueryError.
func (d *DB) Query(ctx context.Context, query string) (*Result, error) {
	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, &QueryError{SQL: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{SQL: query, Err: err}
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, &QueryError{SQL: query, Err: err}
		}

		for i, val := range values {
			if b, ok := val.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, &QueryError{SQL: query, Err: err}
	}

	return result, nil
}

// Column describes one column of a table.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// Table describes a table and its columns.
type Table struct {
	Name    string
	Columns []Column
}

// Tables lists user table names, ordered by name.
func (d *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Columns returns column metadata for a table.
func (d *DB) Columns(ctx context.Context, table string) ([]Column, error) {
	rows, err := d.conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}

		columns = append(columns, Column{
			Name:       name,
			Type:       colType,
			NotNull:    notNull == 1,
			PrimaryKey: pk > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table '%s' not found", table)
	}
	return columns, nil
}

// Schema returns all user tables with their columns.
func (d *DB) Schema(ctx context.Context) ([]Table, error) {
	names, err := d.Tables(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		cols, err := d.Columns(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, Table{Name: name, Columns: cols})
	}
	return tables, nil
}

// SchemaText renders the schema as the compact listing the generator prompt
// expects, one "- Table(Col TYPE, ...)" line per table.
func (d *DB) SchemaText(ctx context.Context) (string, error) {
	tables, err := d.Schema(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, t := range tables {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(t.Name)
		b.WriteByte('(')
		for j, c := range t.Columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Name)
			if c.Type != "" {
				b.WriteByte(' ')
				b.WriteString(c.Type)
			}
		}
		b.WriteByte(')')
	}
	return b.String(), nil
}
