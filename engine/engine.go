// Package engine defines the narrow contract the Structure and Logic
// layers require from a concrete relational backend (spec.md §4.8/§6): a
// transactional execute primitive templated on table identifiers and bound
// values, table-lifecycle queries, and the handful of dialect-specific
// strings (column type names, the id type, the regexp operator, fresh id
// allocation). Concrete adapters live in sibling packages (pgengine,
// myengine, sqliteengine); nothing in structure/ or logic/ imports a SQL
// driver directly.
package engine

import "context"

// Engine is the contract a concrete relational backend must satisfy.
// Implementations are not required to be safe for concurrent use from
// multiple goroutines; the core is single-threaded per spec.md §5.
type Engine interface {
	// Begin starts a transaction. Commit/Rollback end it.
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	// Close releases the underlying connection/pool.
	Close() error

	// Execute runs template, a SQL string using "{}" as positional slots
	// for table identifiers (filled in, quoted, from tables in order) and
	// "?" as positional slots for bound values (filled in, placeholder-
	// rebound per dialect, from args in order).
	Execute(ctx context.Context, template string, tables []string, args []any) (Rows, error)

	// TableExists reports whether a table by this exact name exists.
	TableExists(ctx context.Context, name string) (bool, error)
	// TableIsEmpty reports whether an existing table has zero rows.
	TableIsEmpty(ctx context.Context, name string) (bool, error)
	// DeleteTable drops a table. It is a no-op error if the table is
	// already gone only insofar as the caller is expected to have checked
	// TableExists first; implementations may return an EngineError
	// either way.
	DeleteTable(ctx context.Context, name string) error
	// TablesList returns every table name the engine currently manages
	// for this schema/database, including non-shredb tables; callers
	// filter with field.IsFieldTableName.
	TablesList(ctx context.Context) ([]string, error)
	// SelectExistingTables filters names down to the subset that exist,
	// in a single round trip where the backend supports it.
	SelectExistingTables(ctx context.Context, names []string) ([]string, error)

	// NameString quotes/escapes a raw table or column identifier the way
	// this dialect requires. It does not compute the shredding name_str
	// encoding (that's field.NameStr); it is purely a SQL-identifier
	// quoting primitive used when Execute's "{}" substitution isn't
	// available (e.g. inside DDL the adapter builds directly).
	NameString(raw string) string
	// ColumnType returns the dialect's column-type keyword for a sample
	// stored value's type tag (e.g. "TEXT", "BIGINT", "DOUBLE PRECISION",
	// "BLOB").
	ColumnType(sample any) string
	// IDType returns the dialect's column-type keyword for object ids.
	IDType() string
	// RegexpOp returns the dialect's regexp-match operator/function, used
	// verbatim in a leaf condition's SQL fragment.
	RegexpOp() string
	// NewID allocates a fresh, opaque object id.
	NewID(ctx context.Context) (string, error)
}

// Rows is a minimal row iterator, deliberately narrower than
// database/sql.Rows so non-SQL or mock engines can implement it easily.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}
