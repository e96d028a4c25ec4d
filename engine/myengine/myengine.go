// Package myengine implements engine.Engine over MySQL/MariaDB using
// go-sql-driver/mysql.
package myengine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" database/sql driver

	"github.com/shredb/shredb/engine"
	"github.com/shredb/shredb/engine/sqlbase"
)

// Engine is a MySQL/MariaDB-backed engine.Engine.
type Engine struct {
	*sqlbase.Base
}

// Open connects to MySQL at dsn and returns a ready Engine.
func Open(dsn string) (*Engine, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("myengine: opening connection: %w", err)
	}
	return &Engine{Base: sqlbase.New(db, dialect())}, nil
}

func dialect() sqlbase.Dialect {
	return sqlbase.Dialect{
		Quote:       quoteBacktick,
		Placeholder: func(int) string { return "?" },
		ColumnType:  columnType,
		IDType:      func() string { return "CHAR(36)" },
		RegexpOp:    func() string { return "REGEXP" },
		NewID: func(context.Context) (string, error) {
			return uuid.NewString(), nil
		},
		TablesListQuery: `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE()`,
		TableExistsQuery: `SELECT COUNT(*) FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_name = ?`,
	}
}

func quoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func columnType(sample any) string {
	switch sample.(type) {
	case string:
		return "TEXT"
	case int64, int:
		return "BIGINT"
	case float64:
		return "DOUBLE"
	case []byte:
		return "BLOB"
	default:
		return "TEXT"
	}
}

var _ engine.Engine = (*Engine)(nil)
