// Package config provides configuration options for a shredb Connection.
//
// This package provides a simple, programmatic API for configuring the
// storage engine and the default conflict-resolution policy, following the
// same Options-struct conventions as the rest of this codebase: a
// Default*Options constructor plus copy-on-write With* builders, rather
// than mutating shared state.
package config

import "github.com/go-extras/go-kit/ptr"

// Dialect selects which Engine Adapter a Connection talks to.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// Options contains the configuration needed to open a Connection and to
// govern its default request behavior.
type Options struct {
	// Dialect selects the concrete engine adapter.
	Dialect Dialect
	// DSN is passed to the underlying database/sql driver unmodified.
	DSN string
	// RemoveConflictsDefault is the remove_conflicts value used by modify/
	// insert requests that don't specify one explicitly (spec.md §4.3.1):
	// when true, a conflicting existing subtree (e.g. a map where a list
	// now belongs) is deleted and replaced; when false, a conflict raises
	// a StructureError.
	RemoveConflictsDefault bool
	// MaxOpenConns bounds the underlying connection pool; nil means use
	// the driver's default. A pointer (rather than a 0-meaning-unset int)
	// distinguishes "unset" from "explicitly zero".
	MaxOpenConns *int
}

// DefaultOptions returns sensible defaults: conflicts are rejected rather
// than silently resolved, matching the conservative default in
// brain/connection.py's Connection.modify (remove_conflicts=False).
func DefaultOptions(dialect Dialect, dsn string) *Options {
	return &Options{
		Dialect:                dialect,
		DSN:                    dsn,
		RemoveConflictsDefault: false,
		MaxOpenConns:           nil,
	}
}

// WithRemoveConflictsDefault returns a copy of o with RemoveConflictsDefault set.
func (o *Options) WithRemoveConflictsDefault(v bool) *Options {
	cp := *o
	cp.RemoveConflictsDefault = v
	return &cp
}

// WithMaxOpenConns returns a copy of o with MaxOpenConns set to n.
func (o *Options) WithMaxOpenConns(n int) *Options {
	cp := *o
	cp.MaxOpenConns = ptr.To(n)
	return &cp
}

// MaxOpenConnsOrDefault returns o.MaxOpenConns if set, otherwise fallback.
func (o *Options) MaxOpenConnsOrDefault(fallback int) int {
	if o.MaxOpenConns == nil {
		return fallback
	}
	return *o.MaxOpenConns
}
