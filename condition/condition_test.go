package condition_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/shredb/shredb/condition"
	"github.com/shredb/shredb/field"
)

func leaf(c *qt.C, name string, cmp condition.Comparator, lit field.Value) *condition.Condition {
	l, err := condition.NewLeaf(field.NewPath(field.Path{field.Key(name)}), cmp, lit)
	c.Assert(err, qt.IsNil)
	return l
}

func TestPropagateInversionPushesToLeaves(t *testing.T) {
	c := qt.New(t)

	// NOT (phone == '1111') over a single leaf: invert just moves to the leaf.
	phone := leaf(c, "phone", condition.Eq, field.Str("1111"))
	tree := condition.Not(phone)

	got := condition.PropagateInversion(tree)
	c.Assert(got.Leaf, qt.IsTrue)
	c.Assert(got.Invert, qt.IsTrue)
}

func TestPropagateInversionDeMorganAnd(t *testing.T) {
	c := qt.New(t)

	a := leaf(c, "a", condition.Eq, field.Int(1))
	b := leaf(c, "b", condition.Eq, field.Int(2))
	and, err := condition.NewInterior(a, condition.And, b)
	c.Assert(err, qt.IsNil)

	tree := condition.Not(and)
	got := condition.PropagateInversion(tree)

	c.Assert(got.Leaf, qt.IsFalse)
	c.Assert(got.Invert, qt.IsFalse)
	c.Assert(got.Operator, qt.Equals, condition.Or)
	c.Assert(got.Left.Invert, qt.IsTrue)
	c.Assert(got.Right.Invert, qt.IsTrue)
}

func TestPropagateInversionDeMorganOr(t *testing.T) {
	c := qt.New(t)

	a := leaf(c, "a", condition.Eq, field.Int(1))
	b := leaf(c, "b", condition.Eq, field.Int(2))
	or, err := condition.NewInterior(a, condition.Or, b)
	c.Assert(err, qt.IsNil)

	tree := condition.Not(or)
	got := condition.PropagateInversion(tree)

	c.Assert(got.Operator, qt.Equals, condition.And)
	c.Assert(got.Left.Invert, qt.IsTrue)
	c.Assert(got.Right.Invert, qt.IsTrue)
}

func TestPropagateInversionIdempotent(t *testing.T) {
	c := qt.New(t)

	a := leaf(c, "a", condition.Eq, field.Int(1))
	b := leaf(c, "b", condition.Eq, field.Int(2))
	nested, err := condition.NewInterior(a, condition.And, b)
	c.Assert(err, qt.IsNil)
	outer := condition.Not(nested)

	once := condition.PropagateInversion(outer)
	onceStr := once.String()

	twice := condition.PropagateInversion(once)
	c.Assert(twice.String(), qt.Equals, onceStr)
}

func TestPropagateInversionNilIsNil(t *testing.T) {
	c := qt.New(t)
	c.Assert(condition.PropagateInversion(nil), qt.IsNil)
}

func TestNewLeafRejectsWildcardField(t *testing.T) {
	c := qt.New(t)

	f := field.NewPath(field.Path{field.Key("tracks"), field.Wildcard()})
	_, err := condition.NewLeaf(f, condition.Eq, field.Str("x"))
	c.Assert(err, qt.ErrorMatches, ".*determined path.*")
}
