package field_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/shredb/shredb/field"
)

func TestFieldColumnValuesAndCondition(t *testing.T) {
	c := qt.New(t)

	f := field.NewValue(
		field.Path{field.Key("tracks"), field.Index(2), field.Key("tags"), field.Index(0)},
		field.Str("rock"),
	)

	c.Assert(f.ColumnCount(), qt.Equals, 2)
	vals, err := f.ColumnValues()
	c.Assert(err, qt.IsNil)
	c.Assert(vals, qt.DeepEquals, []int64{2, 0})

	cond, args := f.ColumnCondition()
	c.Assert(cond, qt.Equals, " AND c0=? AND c1=?")
	c.Assert(args, qt.DeepEquals, []any{int64(2), int64(0)})
}

func TestFieldColumnConditionSkipsWildcards(t *testing.T) {
	c := qt.New(t)

	f := field.NewPath(field.Path{field.Key("tracks"), field.Wildcard(), field.Key("title")})
	cond, args := f.ColumnCondition()
	c.Assert(cond, qt.Equals, "")
	c.Assert(args, qt.HasLen, 0)
}

func TestFieldColumnValuesErrorsOnWildcard(t *testing.T) {
	c := qt.New(t)

	f := field.NewPath(field.Path{field.Key("tracks"), field.Wildcard()})
	_, err := f.ColumnValues()
	c.Assert(err, qt.ErrorMatches, `.*wildcard.*`)
}

func TestFieldDeterminedName(t *testing.T) {
	c := qt.New(t)

	mask := field.NewPath(field.Path{field.Key("tracks"), field.Wildcard(), field.Key("title")})
	got := mask.DeterminedName([]int64{5})
	c.Assert(got, qt.DeepEquals, field.Path{field.Key("tracks"), field.Index(5), field.Key("title")})
}

func TestFieldNameStrPanicsWithoutType(t *testing.T) {
	c := qt.New(t)

	f := field.NewPath(field.Path{field.Key("a")})
	c.Assert(func() { f.NameStr() }, qt.PanicMatches, `.*no type.*`)
}

func TestFieldEffectiveType(t *testing.T) {
	c := qt.New(t)

	withValue := field.NewValue(field.Path{field.Key("a")}, field.Int(1))
	tt, ok := withValue.EffectiveType()
	c.Assert(ok, qt.IsTrue)
	c.Assert(tt, qt.Equals, field.TypeInt)

	bare := field.NewPath(field.Path{field.Key("a")})
	_, ok = bare.EffectiveType()
	c.Assert(ok, qt.IsFalse)

	typedOnly := bare.WithType(field.TypeStr)
	tt, ok = typedOnly.EffectiveType()
	c.Assert(ok, qt.IsTrue)
	c.Assert(tt, qt.Equals, field.TypeStr)
}

func TestFieldLastIndexColumn(t *testing.T) {
	c := qt.New(t)

	f := field.NewValue(field.Path{field.Key("tracks"), field.Index(4)}, field.Str("x"))
	name, val, ok := f.LastIndexColumn()
	c.Assert(ok, qt.IsTrue)
	c.Assert(name, qt.Equals, "c0")
	c.Assert(val, qt.Equals, int64(4))

	scalar := field.NewValue(field.Path{field.Key("a")}, field.Str("x"))
	_, _, ok = scalar.LastIndexColumn()
	c.Assert(ok, qt.IsFalse)
}
