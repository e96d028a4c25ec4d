package field_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/shredb/shredb/field"
)

func TestPathMatches(t *testing.T) {
	c := qt.New(t)

	name := field.Path{field.Key("tracks"), field.Index(3), field.Key("title")}

	cases := []struct {
		mask field.Path
		want bool
	}{
		{field.Path{field.Key("tracks"), field.Wildcard(), field.Key("title")}, true},
		{field.Path{field.Key("tracks"), field.Index(3), field.Key("title")}, true},
		{field.Path{field.Key("tracks"), field.Index(4), field.Key("title")}, false},
		{field.Path{field.Key("tracks"), field.Wildcard(), field.Key("artist")}, false},
		{field.Path{field.Key("tracks")}, false}, // different length
	}

	for _, tc := range cases {
		c.Assert(field.Matches(name, tc.mask), qt.Equals, tc.want, qt.Commentf("mask=%s", tc.mask))
	}
}

func TestPathDetermined(t *testing.T) {
	c := qt.New(t)
	c.Assert(field.Path{field.Key("a"), field.Index(1)}.Determined(), qt.IsTrue)
	c.Assert(field.Path{field.Key("a"), field.Wildcard()}.Determined(), qt.IsFalse)
}

func TestPathHasPrefix(t *testing.T) {
	c := qt.New(t)
	p := field.Path{field.Key("a"), field.Key("b"), field.Index(0)}
	c.Assert(p.HasPrefix(field.Path{field.Key("a"), field.Key("b")}), qt.IsTrue)
	c.Assert(p.HasPrefix(field.Path{field.Key("a"), field.Key("c")}), qt.IsFalse)
	c.Assert(p.HasPrefix(field.Path{}), qt.IsTrue)
	c.Assert(field.Path{}.HasPrefix(p), qt.IsFalse)
}

func TestPathAppendDoesNotMutateReceiver(t *testing.T) {
	c := qt.New(t)
	base := field.Path{field.Key("a")}
	extended := base.Append(field.Key("b"))
	c.Assert(base, qt.DeepEquals, field.Path{field.Key("a")})
	c.Assert(extended, qt.DeepEquals, field.Path{field.Key("a"), field.Key("b")})
}
