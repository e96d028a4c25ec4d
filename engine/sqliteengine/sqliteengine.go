// Package sqliteengine implements engine.Engine over SQLite using
// glebarez/go-sqlite, a CGo-free driver — handy for tests and for embedding
// shredb without a C toolchain.
package sqliteengine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	_ "github.com/glebarez/go-sqlite" // registers the "sqlite" database/sql driver, CGo-free

	"github.com/shredb/shredb/engine"
	"github.com/shredb/shredb/engine/sqlbase"
)

// Engine is a SQLite-backed engine.Engine.
type Engine struct {
	*sqlbase.Base
}

// Open opens (or creates) a SQLite database at dsn (a file path, or
// ":memory:") and returns a ready Engine.
func Open(dsn string) (*Engine, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqliteengine: opening connection: %w", err)
	}
	return &Engine{Base: sqlbase.New(db, dialect())}, nil
}

func dialect() sqlbase.Dialect {
	return sqlbase.Dialect{
		Quote:       quoteDouble,
		Placeholder: func(int) string { return "?" },
		ColumnType:  columnType,
		IDType:      func() string { return "TEXT" },
		RegexpOp:    func() string { return "REGEXP" },
		NewID: func(context.Context) (string, error) {
			return uuid.NewString(), nil
		},
		TablesListQuery:  `SELECT name FROM sqlite_master WHERE type = 'table'`,
		TableExistsQuery: `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
	}
}

func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnType(sample any) string {
	switch sample.(type) {
	case string:
		return "TEXT"
	case int64, int:
		return "INTEGER"
	case float64:
		return "REAL"
	case []byte:
		return "BLOB"
	default:
		return "TEXT"
	}
}

var _ engine.Engine = (*Engine)(nil)
