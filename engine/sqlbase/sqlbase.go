// Package sqlbase implements the parts of engine.Engine that are identical
// across every database/sql-backed dialect (transaction lifecycle,
// template substitution, table-lifecycle helpers), parameterized by a
// small Dialect so that pgengine/myengine/sqliteengine only have to supply
// what's genuinely different: identifier quoting, placeholder style,
// column-type naming and the table-catalog queries.
package sqlbase

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shredb/shredb/ddberr"
	"github.com/shredb/shredb/engine"
)

// Dialect captures everything that varies between backends.
type Dialect struct {
	// Quote wraps a raw identifier the way this backend expects
	// (double quotes for Postgres/SQLite, backticks for MySQL).
	Quote func(name string) string
	// Placeholder returns the bound-value placeholder for the i'th value
	// in a statement (1-based): "?" for MySQL/SQLite, "$1", "$2", ... for
	// Postgres.
	Placeholder func(i int) string
	// ColumnType returns this dialect's column-type keyword for a sample
	// stored scalar.
	ColumnType func(sample any) string
	// IDType returns this dialect's column-type keyword for object ids.
	IDType func() string
	// RegexpOp returns this dialect's regexp-match operator/function.
	RegexpOp func() string
	// NewID allocates a fresh opaque object id.
	NewID func(ctx context.Context) (string, error)
	// TablesListQuery returns every table name in the current
	// schema/database.
	TablesListQuery string
	// TableExistsQuery takes one bound placeholder (the table name) and
	// returns a single row with a single count/boolean-ish column.
	TableExistsQuery string
}

// Base implements the transaction-scoped, template-driven parts of
// engine.Engine on top of database/sql. Concrete adapters embed Base and
// add engine.Engine's dialect-string methods.
type Base struct {
	db      *sql.DB
	tx      *sql.Tx
	dialect Dialect
}

// New wraps an already-opened *sql.DB with the given dialect.
func New(db *sql.DB, dialect Dialect) *Base {
	return &Base{db: db, dialect: dialect}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (b *Base) querier() querier {
	if b.tx != nil {
		return b.tx
	}
	return b.db
}

// Begin starts a transaction. Calling Begin while one is already open is a
// programmer error, mirroring the single-threaded, non-reentrant
// transaction model of spec.md §5.
func (b *Base) Begin(ctx context.Context) error {
	if b.tx != nil {
		return ddberr.NewStructure("engine: transaction already in progress")
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return ddberr.WrapEngine(err)
	}
	b.tx = tx
	return nil
}

// Commit commits the open transaction.
func (b *Base) Commit(ctx context.Context) error {
	if b.tx == nil {
		return ddberr.NewStructure("engine: no transaction in progress")
	}
	err := b.tx.Commit()
	b.tx = nil
	return ddberr.WrapEngine(err)
}

// Rollback rolls back the open transaction.
func (b *Base) Rollback(ctx context.Context) error {
	if b.tx == nil {
		return ddberr.NewStructure("engine: no transaction in progress")
	}
	err := b.tx.Rollback()
	b.tx = nil
	return ddberr.WrapEngine(err)
}

// Close releases the underlying connection pool.
func (b *Base) Close() error {
	return ddberr.WrapEngine(b.db.Close())
}

// SetMaxOpenConns bounds the underlying connection pool, delegating
// straight to database/sql.DB.
func (b *Base) SetMaxOpenConns(n int) {
	b.db.SetMaxOpenConns(n)
}

// NameString quotes a raw identifier per the dialect.
func (b *Base) NameString(raw string) string { return b.dialect.Quote(raw) }

// ColumnType delegates to the dialect.
func (b *Base) ColumnType(sample any) string { return b.dialect.ColumnType(sample) }

// IDType delegates to the dialect.
func (b *Base) IDType() string { return b.dialect.IDType() }

// RegexpOp delegates to the dialect.
func (b *Base) RegexpOp() string { return b.dialect.RegexpOp() }

// NewID delegates to the dialect.
func (b *Base) NewID(ctx context.Context) (string, error) { return b.dialect.NewID(ctx) }

// Execute fills template's "{}" slots with quoted table identifiers (in
// order, from tables) and rebinds its "?" slots to the dialect's
// placeholder style, then runs the resulting statement with args bound
// positionally.
func (b *Base) Execute(ctx context.Context, template string, tables []string, args []any) (engine.Rows, error) {
	query, err := b.render(template, tables)
	if err != nil {
		return nil, err
	}
	rows, err := b.querier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ddberr.WrapEngine(fmt.Errorf("executing %q: %w", query, err))
	}
	return &sqlRows{rows: rows}, nil
}

// render performs the "{}" -> quoted table name and "?" -> dialect
// placeholder substitution described in spec.md §6.
func (b *Base) render(template string, tables []string) (string, error) {
	var out strings.Builder
	tableIdx := 0
	placeholderIdx := 1
	for i := 0; i < len(template); i++ {
		switch {
		case template[i] == '{' && i+1 < len(template) && template[i+1] == '}':
			if tableIdx >= len(tables) {
				return "", ddberr.NewStructure("engine: template references more tables than were provided")
			}
			out.WriteString(b.dialect.Quote(tables[tableIdx]))
			tableIdx++
			i++
		case template[i] == '?':
			out.WriteString(b.dialect.Placeholder(placeholderIdx))
			placeholderIdx++
		default:
			out.WriteByte(template[i])
		}
	}
	return out.String(), nil
}

// TableExists reports whether name exists using the dialect's catalog
// query.
func (b *Base) TableExists(ctx context.Context, name string) (bool, error) {
	row := b.querier().QueryRowContext(ctx, b.rebindOne(b.dialect.TableExistsQuery), name)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, ddberr.WrapEngine(err)
	}
	return count > 0, nil
}

// rebindOne rewrites a single "?" placeholder query for dialects (Postgres)
// whose native placeholder isn't "?".
func (b *Base) rebindOne(query string) string {
	return strings.Replace(query, "?", b.dialect.Placeholder(1), 1)
}

// TableIsEmpty reports whether an existing table has zero rows.
func (b *Base) TableIsEmpty(ctx context.Context, name string) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", b.dialect.Quote(name))
	row := b.querier().QueryRowContext(ctx, query)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, ddberr.WrapEngine(err)
	}
	return count == 0, nil
}

// DeleteTable drops a table.
func (b *Base) DeleteTable(ctx context.Context, name string) error {
	query := fmt.Sprintf("DROP TABLE %s", b.dialect.Quote(name))
	_, err := b.querier().ExecContext(ctx, query)
	return ddberr.WrapEngine(err)
}

// TablesList returns every table name known to the current schema/database.
func (b *Base) TablesList(ctx context.Context) ([]string, error) {
	rows, err := b.querier().QueryContext(ctx, b.dialect.TablesListQuery)
	if err != nil {
		return nil, ddberr.WrapEngine(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, ddberr.WrapEngine(err)
		}
		names = append(names, name)
	}
	return names, ddberr.WrapEngine(rows.Err())
}

// SelectExistingTables filters names down to those that exist, one
// TableExists call at a time; dialect-specific adapters may override this
// with a single IN(...) round trip if they choose to.
func (b *Base) SelectExistingTables(ctx context.Context, names []string) ([]string, error) {
	var existing []string
	for _, n := range names {
		ok, err := b.TableExists(ctx, n)
		if err != nil {
			return nil, err
		}
		if ok {
			existing = append(existing, n)
		}
	}
	return existing, nil
}

// CreateTable issues a CREATE TABLE statement for a per-field table with
// the given id column, value column, and ordered index columns, used by
// the Structure Layer's assureFieldTable. It is not part of engine.Engine
// because its shape (column list) is structure.go's business; adapters
// expose it so the Structure Layer doesn't have to hand-quote DDL itself.
func (b *Base) CreateTable(ctx context.Context, name string, idType string, columns []Column) error {
	var cols strings.Builder
	cols.WriteString("id " + idType)
	for _, c := range columns {
		cols.WriteString(", " + b.dialect.Quote(c.Name) + " " + c.Type)
	}
	query := fmt.Sprintf("CREATE TABLE %s (%s)", b.dialect.Quote(name), cols.String())
	_, err := b.querier().ExecContext(ctx, query)
	return ddberr.WrapEngine(err)
}

// Column is one column of a CREATE TABLE issued by CreateTable.
type Column struct {
	Name string
	Type string
}

type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool             { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error { return ddberr.WrapEngine(r.rows.Scan(dest...)) }
func (r *sqlRows) Close() error           { return ddberr.WrapEngine(r.rows.Close()) }
func (r *sqlRows) Err() error             { return ddberr.WrapEngine(r.rows.Err()) }
