package structure_test

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/shredb/shredb/condition"
	"github.com/shredb/shredb/engine"
	"github.com/shredb/shredb/engine/sqliteengine"
	"github.com/shredb/shredb/field"
	"github.com/shredb/shredb/structure"
)

func newStructure(c *qt.C) (*structure.Structure, engine.Engine) {
	eng, err := sqliteengine.Open(":memory:")
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { eng.Close() })

	s := structure.New(eng)
	ctx := context.Background()
	c.Assert(eng.Begin(ctx), qt.IsNil)
	c.Assert(s.CreateSupportTables(ctx), qt.IsNil)
	c.Assert(eng.Commit(ctx), qt.IsNil)
	return s, eng
}

func TestAddValueRecordAndGetFieldValueRoundTrip(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s, eng := newStructure(c)

	path := field.Path{field.Key("name")}
	f := field.NewValue(path, field.Str("Bowie"))

	c.Assert(eng.Begin(ctx), qt.IsNil)
	c.Assert(s.AssureFieldTable(ctx, f), qt.IsNil)
	c.Assert(s.AddValueRecord(ctx, "obj1", f), qt.IsNil)
	c.Assert(s.IncreaseRefcount(ctx, "obj1", f), qt.IsNil)
	c.Assert(eng.Commit(ctx), qt.IsNil)

	got, err := s.GetFieldValue(ctx, "obj1", field.NewPath(path).WithType(field.TypeStr))
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.HasLen, 1)
	c.Assert(got[0].Value.Equal(field.Str("Bowie")), qt.IsTrue)

	types, err := s.GetValueTypes(ctx, "obj1", path)
	c.Assert(err, qt.IsNil)
	c.Assert(types, qt.DeepEquals, []field.Type{field.TypeStr})
}

func TestRefcountLifecycleDropsTableWhenEmpty(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s, eng := newStructure(c)

	path := field.Path{field.Key("tags"), field.Index(0)}
	f := field.NewValue(path, field.Str("rock"))

	c.Assert(eng.Begin(ctx), qt.IsNil)
	c.Assert(s.AssureFieldTable(ctx, f), qt.IsNil)
	c.Assert(s.AddValueRecord(ctx, "obj1", f), qt.IsNil)
	c.Assert(s.IncreaseRefcount(ctx, "obj1", f), qt.IsNil)
	c.Assert(eng.Commit(ctx), qt.IsNil)

	exists, err := eng.TableExists(ctx, f.NameStr())
	c.Assert(err, qt.IsNil)
	c.Assert(exists, qt.IsTrue)

	c.Assert(eng.Begin(ctx), qt.IsNil)
	c.Assert(s.DeleteValues(ctx, "obj1", field.NewPath(path), nil), qt.IsNil)
	c.Assert(eng.Commit(ctx), qt.IsNil)

	exists, err = eng.TableExists(ctx, f.NameStr())
	c.Assert(err, qt.IsNil)
	c.Assert(exists, qt.IsFalse)

	has, err := s.ObjectExists(ctx, "obj1")
	c.Assert(err, qt.IsNil)
	c.Assert(has, qt.IsFalse)
}

func TestGetFieldsListReturnsDescendantsWithPrefixGrafted(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s, eng := newStructure(c)

	title := field.NewValue(field.Path{field.Key("tracks"), field.Index(0), field.Key("title")}, field.Str("Rock"))
	c.Assert(eng.Begin(ctx), qt.IsNil)
	c.Assert(s.AssureFieldTable(ctx, title), qt.IsNil)
	c.Assert(s.AddValueRecord(ctx, "obj1", title), qt.IsNil)
	c.Assert(s.IncreaseRefcount(ctx, "obj1", title), qt.IsNil)
	c.Assert(eng.Commit(ctx), qt.IsNil)

	prefix := field.Path{field.Key("tracks"), field.Index(0)}
	got, err := s.GetFieldsList(ctx, "obj1", &prefix, false)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.HasLen, 1)
	c.Assert(got[0].Path, qt.DeepEquals, field.Path{field.Key("tracks"), field.Index(0), field.Key("title")})
	c.Assert(got[0].Type, qt.Equals, field.TypeStr)
}

func TestRenumberListShiftsDescendantIndices(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s, eng := newStructure(c)

	mk := func(i int) field.Field {
		return field.NewValue(field.Path{field.Key("tracks"), field.Index(i), field.Key("title")}, field.Str("t"))
	}

	c.Assert(eng.Begin(ctx), qt.IsNil)
	for i := 0; i < 3; i++ {
		f := mk(i)
		c.Assert(s.AssureFieldTable(ctx, f), qt.IsNil)
		c.Assert(s.AddValueRecord(ctx, "obj1", f), qt.IsNil)
		c.Assert(s.IncreaseRefcount(ctx, "obj1", f), qt.IsNil)
	}
	c.Assert(eng.Commit(ctx), qt.IsNil)

	c.Assert(eng.Begin(ctx), qt.IsNil)
	target := field.Path{field.Key("tracks"), field.Index(1)}
	c.Assert(s.RenumberList(ctx, "obj1", target, 1), qt.IsNil)
	c.Assert(eng.Commit(ctx), qt.IsNil)

	mask := field.NewPath(field.Path{field.Key("tracks"), field.Wildcard(), field.Key("title")}).WithType(field.TypeStr)
	rows, err := s.GetFieldValue(ctx, "obj1", mask)
	c.Assert(err, qt.IsNil)

	indices := map[int]bool{}
	for _, r := range rows {
		idx := r.Path[1]
		c.Assert(idx.Kind, qt.Equals, field.KindInt)
		indices[idx.Int] = true
	}
	// index 0 untouched, indices 1 and 2 shifted to 2 and 3, index 1 opened up.
	c.Assert(indices, qt.DeepEquals, map[int]bool{0: true, 2: true, 3: true})
}

func TestBuildSqlQueryNullForMissingTable(t *testing.T) {
	c := qt.New(t)
	s, _ := newStructure(c)

	f := field.NewPath(field.Path{field.Key("missing")})
	leaf, err := condition.NewLeaf(f, condition.Eq, field.Str("x"))
	c.Assert(err, qt.IsNil)

	q, err := s.BuildSqlQuery(leaf, map[string]bool{})
	c.Assert(err, qt.IsNil)
	c.Assert(q.IsNull, qt.IsTrue)
}

func TestBuildSqlQueryNoConditionSelectsAll(t *testing.T) {
	c := qt.New(t)
	s, _ := newStructure(c)

	q, err := s.BuildSqlQuery(nil, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(q.IsNull, qt.IsFalse)
	c.Assert(q.Tables, qt.DeepEquals, []string{structure.IDTable})
}
