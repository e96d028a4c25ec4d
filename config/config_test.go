package config_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/shredb/shredb/config"
)

func TestDefaultOptions(t *testing.T) {
	c := qt.New(t)

	opts := config.DefaultOptions(config.DialectSQLite, "file::memory:")

	c.Assert(opts, qt.IsNotNil)
	c.Assert(opts.Dialect, qt.Equals, config.DialectSQLite)
	c.Assert(opts.DSN, qt.Equals, "file::memory:")
	c.Assert(opts.RemoveConflictsDefault, qt.IsFalse)
	c.Assert(opts.MaxOpenConns, qt.IsNil)
}

func TestWithRemoveConflictsDefault(t *testing.T) {
	c := qt.New(t)

	base := config.DefaultOptions(config.DialectPostgres, "dsn")
	updated := base.WithRemoveConflictsDefault(true)

	c.Assert(base.RemoveConflictsDefault, qt.IsFalse, qt.Commentf("base must not mutate"))
	c.Assert(updated.RemoveConflictsDefault, qt.IsTrue)
}

func TestWithMaxOpenConns(t *testing.T) {
	c := qt.New(t)

	base := config.DefaultOptions(config.DialectMySQL, "dsn")
	updated := base.WithMaxOpenConns(10)

	c.Assert(base.MaxOpenConnsOrDefault(5), qt.Equals, 5)
	c.Assert(updated.MaxOpenConnsOrDefault(5), qt.Equals, 10)
}
