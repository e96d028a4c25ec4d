package shreddb_test

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/shredb/shredb"
	"github.com/shredb/shredb/condition"
	"github.com/shredb/shredb/config"
	"github.com/shredb/shredb/field"
)

func open(c *qt.C) *shreddb.Connection {
	conn, err := shreddb.Open(config.DefaultOptions(config.DialectSQLite, ":memory:"))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { conn.Close() })
	c.Assert(conn.Repair(context.Background()), qt.IsNil)
	return conn
}

func TestCreateReadDeleteOutsideTransaction(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	conn := open(c)

	id, err := conn.Create(ctx, map[string]any{"name": "Bowie"})
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Not(qt.Equals), "")

	got, err := conn.Read(ctx, id, nil, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(got.(map[string]any)["name"], qt.Equals, "Bowie")

	exists, err := conn.ObjectExists(ctx, id)
	c.Assert(err, qt.IsNil)
	c.Assert(exists, qt.IsTrue)

	c.Assert(conn.Delete(ctx, id, nil), qt.IsNil)

	exists, err = conn.ObjectExists(ctx, id)
	c.Assert(err, qt.IsNil)
	c.Assert(exists, qt.IsFalse)
}

func TestAsyncTransactionBatchesAndCommitsTogether(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	conn := open(c)

	c.Assert(conn.BeginAsync(), qt.IsNil)
	_, err := conn.Create(ctx, map[string]any{"name": "Bowie"})
	c.Assert(err, qt.IsNil) // queued: no result yet

	results, err := conn.Commit(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(results, qt.HasLen, 1)
	id, ok := results[0].(string)
	c.Assert(ok, qt.IsTrue)

	exists, err := conn.ObjectExists(ctx, id)
	c.Assert(err, qt.IsNil)
	c.Assert(exists, qt.IsTrue)
}

func TestAsyncTransactionRollbackDiscardsQueue(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	conn := open(c)

	c.Assert(conn.BeginAsync(), qt.IsNil)
	_, err := conn.Create(ctx, map[string]any{"name": "Bowie"})
	c.Assert(err, qt.IsNil)

	c.Assert(conn.Rollback(ctx), qt.IsNil)

	ids, err := conn.Search(ctx, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.HasLen, 0)
}

func TestSyncTransactionRunsImmediately(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	conn := open(c)

	c.Assert(conn.BeginSync(ctx), qt.IsNil)
	id, err := conn.Create(ctx, map[string]any{"name": "Bowie"})
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Not(qt.Equals), "")

	got, err := conn.Read(ctx, id, nil, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(got.(map[string]any)["name"], qt.Equals, "Bowie")

	_, err = conn.Commit(ctx)
	c.Assert(err, qt.IsNil)
}

func TestModifyInsertAndSearch(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	conn := open(c)

	id, err := conn.Create(ctx, map[string]any{
		"title":  "Station to Station",
		"tracks": []any{map[string]any{"title": "Golden Years"}},
	})
	c.Assert(err, qt.IsNil)

	err = conn.Insert(ctx, id, field.Path{field.Key("tracks"), field.Wildcard()}, map[string]any{"title": "Word on a Wing"}, nil)
	c.Assert(err, qt.IsNil)

	got, err := conn.Read(ctx, id, field.Path{field.Key("tracks")}, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(got.([]any), qt.HasLen, 2)

	leaf, err := condition.NewLeaf(field.NewPath(field.Path{field.Key("title")}), condition.Eq, field.Str("Station to Station"))
	c.Assert(err, qt.IsNil)
	ids, err := conn.Search(ctx, leaf)
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.DeepEquals, []string{id})
}

func TestDumpAndRepair(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	conn := open(c)

	id, err := conn.Create(ctx, map[string]any{"name": "Bowie"})
	c.Assert(err, qt.IsNil)

	c.Assert(conn.Repair(ctx), qt.IsNil)

	entries, err := conn.Dump(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 1)
	c.Assert(entries[0].ID, qt.Equals, id)
}
