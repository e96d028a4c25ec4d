// Package shreddb is the outermost facade (spec.md §4.9): Connection opens
// a concrete Engine Adapter, wraps it in a Logic Layer, and exposes the
// request API (modify, read, insert, delete, search, create, objectExists,
// dump, repair) along with synchronous/asynchronous request batching.
package shreddb

import (
	"context"

	"github.com/shredb/shredb/condition"
	"github.com/shredb/shredb/config"
	"github.com/shredb/shredb/ddberr"
	"github.com/shredb/shredb/engine"
	"github.com/shredb/shredb/engine/myengine"
	"github.com/shredb/shredb/engine/pgengine"
	"github.com/shredb/shredb/engine/sqliteengine"
	"github.com/shredb/shredb/field"
	"github.com/shredb/shredb/logic"
)

// DumpEntry is one (id, document) pair returned by Dump.
type DumpEntry = logic.DumpEntry

// Connection is the main control object: one engine connection plus its
// Logic Layer, with optional request batching across a transaction.
type Connection struct {
	eng   engine.Engine
	logic *logic.Layer
	opts  *config.Options

	transaction bool
	sync        bool
	queue       []queuedRequest
}

// queuedRequest is one pending request, deferred until the surrounding
// asynchronous transaction commits.
type queuedRequest struct {
	run func(ctx context.Context) (any, error)
}

// Open opens a Connection to the backend selected by opts.Dialect.
func Open(opts *config.Options) (*Connection, error) {
	var eng engine.Engine
	var err error
	switch opts.Dialect {
	case config.DialectPostgres:
		eng, err = pgengine.Open(opts.DSN)
	case config.DialectMySQL:
		eng, err = myengine.Open(opts.DSN)
	case config.DialectSQLite:
		eng, err = sqliteengine.Open(opts.DSN)
	default:
		return nil, ddberr.NewFacade("unknown dialect %q", opts.Dialect)
	}
	if err != nil {
		return nil, ddberr.WrapEngine(err)
	}
	if opts.MaxOpenConns != nil {
		if pooled, ok := eng.(interface{ SetMaxOpenConns(int) }); ok {
			pooled.SetMaxOpenConns(*opts.MaxOpenConns)
		}
	}

	c := &Connection{eng: eng, logic: logic.New(eng), opts: opts}
	return c, nil
}

// Close releases the underlying connection. Any uncommitted changes are
// lost.
func (c *Connection) Close() error {
	return c.eng.Close()
}

// BeginSync starts a synchronous transaction: every subsequent request
// runs (and returns its result) immediately, against the single
// underlying database transaction, until Commit or Rollback, or until a
// request fails, which rolls the whole transaction back.
func (c *Connection) BeginSync(ctx context.Context) error {
	return c.begin(ctx, true)
}

// BeginAsync starts an asynchronous transaction: every subsequent request
// is queued and only runs, as a single database transaction, when Commit
// is called.
func (c *Connection) BeginAsync() error {
	return c.begin(context.Background(), false)
}

func (c *Connection) begin(ctx context.Context, sync bool) error {
	if c.transaction {
		return ddberr.NewFacade("transaction already in progress")
	}
	if sync {
		if err := c.eng.Begin(ctx); err != nil {
			return ddberr.WrapEngine(err)
		}
	}
	c.transaction = true
	c.sync = sync
	return nil
}

// Commit ends the current transaction. For an asynchronous transaction, it
// runs every queued request inside one database transaction and returns
// their results in order; the whole batch rolls back together on the
// first error.
func (c *Connection) Commit(ctx context.Context) ([]any, error) {
	if !c.transaction {
		return nil, ddberr.NewFacade("no transaction in progress")
	}
	c.transaction = false
	if c.sync {
		c.sync = false
		if err := c.eng.Commit(ctx); err != nil {
			return nil, ddberr.WrapEngine(err)
		}
		return nil, nil
	}

	queue := c.queue
	c.queue = nil
	if err := c.eng.Begin(ctx); err != nil {
		return nil, ddberr.WrapEngine(err)
	}
	results := make([]any, 0, len(queue))
	for _, q := range queue {
		res, err := q.run(ctx)
		if err != nil {
			_ = c.eng.Rollback(ctx)
			return nil, err
		}
		results = append(results, res)
	}
	if err := c.eng.Commit(ctx); err != nil {
		return nil, ddberr.WrapEngine(err)
	}
	return results, nil
}

// Rollback abandons the current transaction. For a synchronous
// transaction this rolls back the database transaction; for an
// asynchronous one it simply discards the queued requests, which were
// never sent to the database.
func (c *Connection) Rollback(ctx context.Context) error {
	if !c.transaction {
		return ddberr.NewFacade("no transaction in progress")
	}
	c.transaction = false
	if c.sync {
		c.sync = false
		return ddberr.WrapEngine(c.eng.Rollback(ctx))
	}
	c.queue = nil
	return nil
}

// run executes fn immediately (inside the synchronous transaction already
// in progress, or inside a new single-request transaction if none is),
// or, inside an asynchronous transaction, queues it for Commit. A request
// that fails inside a synchronous transaction rolls that transaction back
// and ends it.
func (c *Connection) run(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	if c.transaction {
		if c.sync {
			res, err := fn(ctx)
			if err != nil {
				c.transaction = false
				c.sync = false
				_ = c.eng.Rollback(ctx)
				return nil, err
			}
			return res, nil
		}
		c.queue = append(c.queue, queuedRequest{run: fn})
		return nil, nil
	}

	if err := c.eng.Begin(ctx); err != nil {
		return nil, ddberr.WrapEngine(err)
	}
	res, err := fn(ctx)
	if err != nil {
		_ = c.eng.Rollback(ctx)
		return nil, err
	}
	if err := c.eng.Commit(ctx); err != nil {
		return nil, ddberr.WrapEngine(err)
	}
	return res, nil
}

func (c *Connection) removeConflictsOrDefault(removeConflicts *bool) bool {
	if removeConflicts != nil {
		return *removeConflicts
	}
	return c.opts.RemoveConflictsDefault
}

// Create stores data as a brand-new object and returns its freshly
// allocated id.
func (c *Connection) Create(ctx context.Context, data any) (string, error) {
	res, err := c.run(ctx, func(ctx context.Context) (any, error) {
		return c.logic.ProcessCreateRequest(ctx, data)
	})
	if err != nil || res == nil {
		return "", err
	}
	return res.(string), nil
}

// Modify overwrites the subtree rooted at path (the whole object, if path
// is nil) with data. removeConflicts overrides the connection default when
// non-nil.
func (c *Connection) Modify(ctx context.Context, id string, path field.Path, data any, removeConflicts *bool) error {
	rc := c.removeConflictsOrDefault(removeConflicts)
	_, err := c.run(ctx, func(ctx context.Context) (any, error) {
		return nil, c.logic.ProcessModifyRequest(ctx, id, path, data, rc)
	})
	return err
}

// Insert appends or inserts a single value into the list at path.
func (c *Connection) Insert(ctx context.Context, id string, path field.Path, value any, removeConflicts *bool) error {
	return c.InsertMany(ctx, id, path, []any{value}, removeConflicts)
}

// InsertMany appends or inserts several values into the list at path, in
// order.
func (c *Connection) InsertMany(ctx context.Context, id string, path field.Path, values []any, removeConflicts *bool) error {
	rc := c.removeConflictsOrDefault(removeConflicts)
	_, err := c.run(ctx, func(ctx context.Context) (any, error) {
		return nil, c.logic.ProcessInsertRequest(ctx, id, path, values, rc)
	})
	return err
}

// Read reconstructs the document stored at path (the whole object, if
// path is nil), restricted to masks if given.
func (c *Connection) Read(ctx context.Context, id string, path field.Path, masks []field.Path) (any, error) {
	return c.run(ctx, func(ctx context.Context) (any, error) {
		return c.logic.ProcessReadRequest(ctx, id, path, masks)
	})
}

// ReadByMask reads the whole object, restricted to a single mask.
func (c *Connection) ReadByMask(ctx context.Context, id string, mask field.Path) (any, error) {
	return c.Read(ctx, id, nil, []field.Path{mask})
}

// ReadByMasks reads the whole object, restricted to several masks.
func (c *Connection) ReadByMasks(ctx context.Context, id string, masks []field.Path) (any, error) {
	return c.Read(ctx, id, nil, masks)
}

// Delete removes path from id (the whole object, if path is nil).
func (c *Connection) Delete(ctx context.Context, id string, path *field.Path) error {
	var paths []field.Path
	if path != nil {
		paths = []field.Path{*path}
	}
	return c.DeleteMany(ctx, id, paths)
}

// DeleteMany removes every path in paths from id (the whole object, if
// paths is nil).
func (c *Connection) DeleteMany(ctx context.Context, id string, paths []field.Path) error {
	_, err := c.run(ctx, func(ctx context.Context) (any, error) {
		return nil, c.logic.ProcessDeleteRequest(ctx, id, paths)
	})
	return err
}

// Search returns the ids of every object satisfying cond (every object, if
// cond is nil).
func (c *Connection) Search(ctx context.Context, cond *condition.Condition) ([]string, error) {
	res, err := c.run(ctx, func(ctx context.Context) (any, error) {
		return c.logic.ProcessSearchRequest(ctx, cond)
	})
	if err != nil || res == nil {
		return nil, err
	}
	return res.([]string), nil
}

// ObjectExists reports whether id has any data stored.
func (c *Connection) ObjectExists(ctx context.Context, id string) (bool, error) {
	res, err := c.run(ctx, func(ctx context.Context) (any, error) {
		return c.logic.ProcessObjectExistsRequest(ctx, id)
	})
	if err != nil || res == nil {
		return false, err
	}
	return res.(bool), nil
}

// Dump reads every stored object in full.
func (c *Connection) Dump(ctx context.Context) ([]DumpEntry, error) {
	res, err := c.run(ctx, func(ctx context.Context) (any, error) {
		return c.logic.ProcessDumpRequest(ctx)
	})
	if err != nil || res == nil {
		return nil, err
	}
	return res.([]DumpEntry), nil
}

// Repair rebuilds the specification table from the per-field tables on
// disk.
func (c *Connection) Repair(ctx context.Context) error {
	_, err := c.run(ctx, func(ctx context.Context) (any, error) {
		return nil, c.logic.ProcessRepairRequest(ctx)
	})
	return err
}
