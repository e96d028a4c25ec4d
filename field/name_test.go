package field_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/shredb/shredb/field"
)

func TestNameStrNoTypeRoundTrip(t *testing.T) {
	c := qt.New(t)

	cases := []field.Path{
		nil,
		{field.Key("a")},
		{field.Key("a"), field.Index(3), field.Key("b")},
		{field.Key("a..b"), field.Key("c")},    // segment containing the old ".." separator
		{field.Key("3:weird"), field.Key("x")}, // segment that looks like a length prefix
		{field.Key("")},                        // empty string key
		{field.Wildcard(), field.Key("y")},
	}

	for _, p := range cases {
		s := field.NameStrNoType(p)
		got, err := field.DecodeNameStrNoType(s)
		c.Assert(err, qt.IsNil)
		// Decoding folds concrete ints to wildcards, so compare against p
		// with every int position replaced by a wildcard.
		want := p.Clone()
		for i, e := range want {
			if e.Kind == field.KindInt {
				want[i] = field.Wildcard()
			}
		}
		c.Assert(got, qt.DeepEquals, want, qt.Commentf("encoded=%q", s))
	}
}

func TestNameStrNoTypeInjective(t *testing.T) {
	c := qt.New(t)

	// Two different paths that would collide under a naive "join with .."
	// scheme must still encode to different strings.
	a := field.Path{field.Key("ab"), field.Key("cd")}
	b := field.Path{field.Key("ab..cd")}

	c.Assert(field.NameStrNoType(a), qt.Not(qt.Equals), field.NameStrNoType(b))
}

func TestNameStrRoundTrip(t *testing.T) {
	c := qt.New(t)

	p := field.Path{field.Key("tracks"), field.Index(2), field.Key("title")}
	s := field.NameStr(p, field.TypeStr)

	gotPath, gotType, err := field.DecodeNameStr(s)
	c.Assert(err, qt.IsNil)
	c.Assert(gotType, qt.Equals, field.TypeStr)
	c.Assert(gotPath, qt.DeepEquals, field.Path{field.Key("tracks"), field.Wildcard(), field.Key("title")})
}

func TestIsFieldTableName(t *testing.T) {
	c := qt.New(t)

	s := field.NameStr(field.Path{field.Key("a")}, field.TypeInt)
	c.Assert(field.IsFieldTableName(s), qt.IsTrue)
	c.Assert(field.IsFieldTableName("id_table"), qt.IsFalse)
	c.Assert(field.IsFieldTableName("not-a-valid-name"), qt.IsFalse)
}

func TestNameStrNoTypeNFCNormalizes(t *testing.T) {
	c := qt.New(t)

	// A string with a combining acute accent (U+0301) and its precomposed
	// form must encode to the same name string.
	decomposed := field.Path{field.Key("café")}
	precomposed := field.Path{field.Key("café")}

	c.Assert(field.NameStrNoType(decomposed), qt.Equals, field.NameStrNoType(precomposed))
}
