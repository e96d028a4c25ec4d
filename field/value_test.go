package field_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/shredb/shredb/field"
)

func TestTypeStringAndParseRoundTrip(t *testing.T) {
	c := qt.New(t)

	for tt := field.TypeNull; tt <= field.TypeEmptyList; tt++ {
		got, err := field.ParseType(tt.String())
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, tt)
	}

	_, err := field.ParseType("bogus")
	c.Assert(err, qt.ErrorMatches, `.*unknown type tag.*`)
}

func TestIsContainerSentinel(t *testing.T) {
	c := qt.New(t)
	c.Assert(field.EmptyMap().Type.IsContainerSentinel(), qt.IsTrue)
	c.Assert(field.EmptyList().Type.IsContainerSentinel(), qt.IsTrue)
	c.Assert(field.Str("x").Type.IsContainerSentinel(), qt.IsFalse)
}

func TestValueEqual(t *testing.T) {
	c := qt.New(t)
	c.Assert(field.Str("a").Equal(field.Str("a")), qt.IsTrue)
	c.Assert(field.Str("a").Equal(field.Str("b")), qt.IsFalse)
	c.Assert(field.Int(1).Equal(field.Str("1")), qt.IsFalse)
	c.Assert(field.Null().Equal(field.Null()), qt.IsTrue)
}

func TestFromGoRaw(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		in   any
		want field.Value
	}{
		{nil, field.Null()},
		{"x", field.Str("x")},
		{int(7), field.Int(7)},
		{int64(7), field.Int(7)},
		{3.5, field.Float(3.5)},
		{[]byte("bin"), field.Bytes([]byte("bin"))},
	}
	for _, tc := range cases {
		v, err := field.FromGo(tc.in)
		c.Assert(err, qt.IsNil)
		c.Assert(v.Equal(tc.want), qt.IsTrue)
	}

	_, err := field.FromGo(true)
	c.Assert(err, qt.ErrorMatches, `.*unsupported scalar type.*`)
}
