package field

import "fmt"

// Field is the storage unit described by spec.md §3: a (path, type, value)
// triple. Depending on how it was constructed, a Field may be:
//   - a bare path (a mask or a target for read/delete/insert),
//   - a path with a known type but no value (produced while enumerating
//     fields from the specification table), or
//   - a path with a concrete value (produced while shredding a document,
//     or while reading one back).
type Field struct {
	Path     Path
	Value    Value
	HasValue bool
	Type     Type
	HasType  bool
}

// NewPath builds a bare path field, used as a mask or a read/delete target.
func NewPath(p Path) Field {
	return Field{Path: p}
}

// NewValue builds a field carrying a concrete value; its type is the
// value's own type tag.
func NewValue(p Path, v Value) Field {
	return Field{Path: p, Value: v, HasValue: true, Type: v.Type, HasType: true}
}

// WithType returns a copy of f with its type tag set, independent of
// whether it also carries a value.
func (f Field) WithType(t Type) Field {
	f.Type = t
	f.HasType = true
	return f
}

// WithPath returns a copy of f with a different path.
func (f Field) WithPath(p Path) Field {
	f.Path = p
	return f
}

// EffectiveType returns the field's type tag: the value's tag if a value
// is present, otherwise the explicitly-set type.
func (f Field) EffectiveType() (Type, bool) {
	if f.HasValue {
		return f.Value.Type, true
	}
	return f.Type, f.HasType
}

// Determined reports whether the field's path contains no wildcards.
func (f Field) Determined() bool { return f.Path.Determined() }

// NameStrNoType returns the untyped name string for the field's path.
func (f Field) NameStrNoType() string { return NameStrNoType(f.Path) }

// NameStr returns the typed name string (physical table name) for the
// field. It panics if the field carries no type, since the caller is
// expected to have checked EffectiveType first; this mirrors the
// "field should have definite type" preconditions in spec.md §4.2.
func (f Field) NameStr() string {
	t, ok := f.EffectiveType()
	if !ok {
		panic("field: NameStr called on a field with no type")
	}
	return NameStr(f.Path, t)
}

// indexPositions returns the positions in the path that are int/wildcard
// segments, in order; these are the positions backed by index columns
// c0, c1, ... in the per-field table.
func (f Field) indexPositions() []int {
	var pos []int
	for i, e := range f.Path {
		if e.Kind != KindString {
			pos = append(pos, i)
		}
	}
	return pos
}

// ColumnCount returns the number of index columns (c0, c1, ...) the
// field's per-field table needs.
func (f Field) ColumnCount() int { return len(f.indexPositions()) }

// ColumnValues returns the concrete index-column values to store when
// writing this field. It requires the path to be fully determined.
func (f Field) ColumnValues() ([]int64, error) {
	pos := f.indexPositions()
	vals := make([]int64, len(pos))
	for i, p := range pos {
		e := f.Path[p]
		if e.Kind != KindInt {
			return nil, fmt.Errorf("field: cannot write column value for wildcard at position %d in %s", p, f.Path)
		}
		vals[i] = int64(e.Int)
	}
	return vals, nil
}

// ColumnCondition builds the SQL fragment (using "cN" column names and "?"
// placeholders) that constrains the index columns to the field's concrete
// indices, leaving wildcard positions unconstrained. It returns the
// fragment (starting with " AND ...", empty if no columns are
// constrained) and the bound values in order.
func (f Field) ColumnCondition() (string, []any) {
	pos := f.indexPositions()
	cond := ""
	var vals []any
	for i, p := range pos {
		e := f.Path[p]
		if e.Kind == KindWildcard {
			continue
		}
		cond += fmt.Sprintf(" AND c%d=?", i)
		vals = append(vals, int64(e.Int))
	}
	return cond, vals
}

// LastIndexColumn returns the column name and bound value for the final
// index column in the path, used by list operations (renumbering, max
// index) which always act on the last integer/wildcard segment. ok is
// false if the path has no index columns at all; value is 0 when that last
// segment is a wildcard.
func (f Field) LastIndexColumn() (name string, value int64, ok bool) {
	pos := f.indexPositions()
	if len(pos) == 0 {
		return "", 0, false
	}
	last := pos[len(pos)-1]
	e := f.Path[last]
	if e.Kind != KindInt {
		return fmt.Sprintf("c%d", len(pos)-1), 0, true
	}
	return fmt.Sprintf("c%d", len(pos)-1), int64(e.Int), true
}

// ColumnNames returns the "c0, c1, ..." column names for the field's
// per-field table (one per int/wildcard position in the path).
func (f Field) ColumnNames() []string {
	n := f.ColumnCount()
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("c%d", i)
	}
	return names
}

// DeterminedName substitutes concrete index values (read back from a
// per-field table's cN columns, in column order) into the field's path,
// producing a fully-determined path suitable for returning to the caller.
func (f Field) DeterminedName(colValues []int64) Path {
	pos := f.indexPositions()
	out := f.Path.Clone()
	for i, p := range pos {
		if i >= len(colValues) {
			break
		}
		out[p] = Index(int(colValues[i]))
	}
	return out
}

func (f Field) String() string {
	if f.HasValue {
		return fmt.Sprintf("Field(%s, type=%s, value=%+v)", f.Path, f.Value.Type, f.Value.Raw())
	}
	if f.HasType {
		return fmt.Sprintf("Field(%s, type=%s)", f.Path, f.Type)
	}
	return fmt.Sprintf("Field(%s)", f.Path)
}
