// Package condition implements the search-condition tree and its
// NOT-propagation normalizer (spec.md §4.4): a boolean expression over field
// predicates, combined with AND/OR, with an invert flag at every node.
package condition

import (
	"fmt"

	"github.com/shredb/shredb/ddberr"
	"github.com/shredb/shredb/field"
)

// Comparator is a leaf-level predicate operator.
type Comparator int

const (
	Eq Comparator = iota
	Regexp
	Lt
	Gt
	Lte
	Gte
)

var comparatorStrings = [...]string{"==", "=~", "<", ">", "<=", ">="}

func (c Comparator) String() string {
	if int(c) < 0 || int(c) >= len(comparatorStrings) {
		return fmt.Sprintf("Comparator(%d)", int(c))
	}
	return comparatorStrings[c]
}

// Operator combines two interior conditions.
type Operator int

const (
	And Operator = iota
	Or
)

func (o Operator) String() string {
	if o == And {
		return "AND"
	}
	return "OR"
}

// Condition is one node of a search-condition tree: a leaf is
// (Field, Comparator, Literal, Invert); an interior node is
// (Left, Operator, Right, Invert).
type Condition struct {
	Leaf bool

	// Leaf fields.
	Field      field.Field
	Comparator Comparator
	Literal    field.Value

	// Interior fields.
	Left     *Condition
	Operator Operator
	Right    *Condition

	Invert bool
}

// NewLeaf builds a leaf condition: f must be a determined path (no
// wildcards are allowed directly on the compared field, though its path
// may still address elements inside a list via concrete indices).
func NewLeaf(f field.Field, cmp Comparator, literal field.Value) (*Condition, error) {
	if !f.Determined() {
		return nil, ddberr.NewFormat("search leaf field %s must be a determined path", f.Path)
	}
	if !f.HasType {
		// The per-field table to search is determined by the literal's
		// type: comparing against a string literal searches the str
		// table for this path, regardless of what other types the path
		// may also hold for other objects.
		f = f.WithType(literal.Type)
	}
	return &Condition{Leaf: true, Field: f, Comparator: cmp, Literal: literal}, nil
}

// NewInterior builds an interior condition combining left and right with op.
func NewInterior(left *Condition, op Operator, right *Condition) (*Condition, error) {
	if left == nil || right == nil {
		return nil, ddberr.NewFormat("interior condition requires two non-nil operands")
	}
	return &Condition{Leaf: false, Left: left, Operator: op, Right: right}, nil
}

// Not returns c with its top-level invert flag toggled, leaving c itself
// unmodified (it returns a shallow copy).
func Not(c *Condition) *Condition {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Invert = !cp.Invert
	return &cp
}

func (c *Condition) String() string {
	if c == nil {
		return "<null>"
	}
	bang := ""
	if c.Invert {
		bang = "!"
	}
	if c.Leaf {
		return fmt.Sprintf("(%s %s%s %+v)", c.Field.Path, bang, c.Comparator, c.Literal.Raw())
	}
	return fmt.Sprintf("(%s %s%s %s)", c.Left, bang, c.Operator, c.Right)
}

// PropagateInversion pushes invert=true down to the leaves of the tree via
// De Morgan's laws, so the query compiler never has to handle an inverted
// interior node: when an interior node is inverted, its operator flips
// (AND<->OR), its own invert clears, and both children's invert flags
// toggle. The tree is mutated in place; a nil condition (the "match
// everything" / no-condition case) is returned unchanged.
//
// PropagateInversion is idempotent: running it twice produces the same
// tree as running it once, since after the first pass no interior node is
// ever inverted again.
func PropagateInversion(c *Condition) *Condition {
	if c == nil {
		return nil
	}
	if !c.Leaf {
		if c.Invert {
			c.Invert = false
			c.Left.Invert = !c.Left.Invert
			c.Right.Invert = !c.Right.Invert
			if c.Operator == And {
				c.Operator = Or
			} else {
				c.Operator = And
			}
		}
		PropagateInversion(c.Left)
		PropagateInversion(c.Right)
	}
	return c
}
