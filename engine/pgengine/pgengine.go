// Package pgengine implements engine.Engine over PostgreSQL, using
// jackc/pgx/v5's database/sql driver for the connection and lib/pq only
// for its QuoteIdentifier helper (avoiding a second, redundant Postgres
// wire implementation purely to borrow one quoting function).
package pgengine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/shredb/shredb/engine"
	"github.com/shredb/shredb/engine/sqlbase"
)

// Engine is a PostgreSQL-backed engine.Engine.
type Engine struct {
	*sqlbase.Base
}

// Open connects to PostgreSQL at dsn and returns a ready Engine.
func Open(dsn string) (*Engine, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgengine: opening connection: %w", err)
	}
	return &Engine{Base: sqlbase.New(db, dialect())}, nil
}

func dialect() sqlbase.Dialect {
	return sqlbase.Dialect{
		Quote: pq.QuoteIdentifier,
		Placeholder: func(i int) string {
			return fmt.Sprintf("$%d", i)
		},
		ColumnType: columnType,
		IDType:     func() string { return "UUID" },
		RegexpOp:   func() string { return "~" },
		NewID: func(context.Context) (string, error) {
			return uuid.NewString(), nil
		},
		TablesListQuery: `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema()`,
		TableExistsQuery: `SELECT COUNT(*) FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = ?`,
	}
}

func columnType(sample any) string {
	switch sample.(type) {
	case string:
		return "TEXT"
	case int64, int:
		return "BIGINT"
	case float64:
		return "DOUBLE PRECISION"
	case []byte:
		return "BYTEA"
	default:
		return "TEXT"
	}
}

var _ engine.Engine = (*Engine)(nil)
