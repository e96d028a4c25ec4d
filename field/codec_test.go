package field_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/shredb/shredb/field"
)

func TestFlattenBuildRoundTrip(t *testing.T) {
	c := qt.New(t)

	doc := map[string]any{
		"name": "Bowie",
		"tags": []any{"rock", "glam"},
		"meta": map[string]any{},
		"empty": []any{},
		"nested": map[string]any{
			"year": int64(1972),
		},
	}

	fields, err := field.Flatten(doc)
	c.Assert(err, qt.IsNil)
	c.Assert(len(fields) > 0, qt.IsTrue)

	rebuilt := field.Build(fields)
	c.Assert(rebuilt, qt.DeepEquals, doc)
}

func TestFlattenEmitsSentinelBeforeChildren(t *testing.T) {
	c := qt.New(t)

	doc := map[string]any{"a": []any{"x"}}
	fields, err := field.Flatten(doc)
	c.Assert(err, qt.IsNil)

	// root sentinel, "a" sentinel, then the leaf.
	c.Assert(len(fields), qt.Equals, 3)
	c.Assert(fields[0].Path, qt.DeepEquals, field.Path(nil))
	c.Assert(fields[0].Value.Type, qt.Equals, field.TypeEmptyMap)
	c.Assert(fields[1].Path, qt.DeepEquals, field.Path{field.Key("a")})
	c.Assert(fields[1].Value.Type, qt.Equals, field.TypeEmptyList)
	c.Assert(fields[2].Path, qt.DeepEquals, field.Path{field.Key("a"), field.Index(0)})
}

func TestBuildConcreteChildWinsOverSentinel(t *testing.T) {
	c := qt.New(t)

	// Sentinel for "a" arrives after its concrete child in this list, and a
	// correct Build must still keep the child.
	fields := []field.Field{
		field.NewValue(field.Path{field.Key("a"), field.Key("b")}, field.Str("v")),
		field.NewValue(field.Path{field.Key("a")}, field.EmptyMap()),
	}

	got := field.Build(fields)
	c.Assert(got, qt.DeepEquals, map[string]any{"a": map[string]any{"b": "v"}})
}

func TestBuildEmptyFieldsIsNil(t *testing.T) {
	c := qt.New(t)
	c.Assert(field.Build(nil), qt.IsNil)
}

func TestBuildDenseListFromOutOfOrderFields(t *testing.T) {
	c := qt.New(t)

	fields := []field.Field{
		field.NewValue(field.Path{field.Index(2)}, field.Str("c")),
		field.NewValue(field.Path{field.Index(0)}, field.Str("a")),
		field.NewValue(field.Path{field.Index(1)}, field.Str("b")),
	}

	got := field.Build(fields)
	c.Assert(got, qt.DeepEquals, []any{"a", "b", "c"})
}
