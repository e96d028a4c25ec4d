// Package logic implements the Logic Layer (spec.md §4.3): the request
// processor that decomposes modify/insert/delete/read/search/dump/repair
// requests into Structure Layer calls, handling conflict resolution, list
// renumbering and density maintenance along the way.
package logic

import (
	"context"

	"github.com/shredb/shredb/condition"
	"github.com/shredb/shredb/ddberr"
	"github.com/shredb/shredb/engine"
	"github.com/shredb/shredb/field"
	"github.com/shredb/shredb/structure"
)

// Layer is the Logic Layer, bound to a single engine.Engine (and the
// Structure Layer built on top of it).
type Layer struct {
	eng engine.Engine
	st  *structure.Structure
}

// New builds a Logic Layer over eng.
func New(eng engine.Engine) *Layer {
	return &Layer{eng: eng, st: structure.New(eng)}
}

// Structure exposes the underlying Structure Layer, for callers (the
// facade's repair/create-schema bootstrapping) that need it directly.
func (l *Layer) Structure() *structure.Structure { return l.st }

// setFieldValue writes a single concrete, valued field: assureFieldTable +
// addValueRecord + increaseRefcount.
func (l *Layer) setFieldValue(ctx context.Context, id string, f field.Field) error {
	if err := l.st.AssureFieldTable(ctx, f); err != nil {
		return err
	}
	if err := l.st.AddValueRecord(ctx, id, f); err != nil {
		return err
	}
	return l.st.IncreaseRefcount(ctx, id, f)
}

// deleteSubtree removes every value stored at path and under it.
func (l *Layer) deleteSubtree(ctx context.Context, id string, path field.Path) error {
	descendants, err := l.st.GetFieldsList(ctx, id, &path, true)
	if err != nil {
		return err
	}
	for _, d := range descendants {
		if err := l.st.DeleteValues(ctx, id, d, nil); err != nil {
			return err
		}
	}
	return nil
}

// fillWithNones pads the list at listPath with explicit null scalars for
// every currently-missing index up to (but not including) upTo, per
// spec.md §4.3.3.
func (l *Layer) fillWithNones(ctx context.Context, id string, listPath field.Path, upTo int) error {
	mask := field.NewPath(listPath.Append(field.Wildcard()))
	maxIdx, err := l.st.GetMaxListIndex(ctx, id, mask)
	if err != nil {
		return err
	}
	start := 0
	if maxIdx != nil {
		start = int(*maxIdx) + 1
	}
	for k := start; k < upTo; k++ {
		f := field.NewValue(listPath.Append(field.Index(k)), field.Null())
		if err := l.setFieldValue(ctx, id, f); err != nil {
			return err
		}
	}
	return nil
}

// ProcessCreateRequest shreds doc into a brand-new object with a
// freshly-allocated id.
func (l *Layer) ProcessCreateRequest(ctx context.Context, doc any) (string, error) {
	fields, err := field.Flatten(doc)
	if err != nil {
		return "", ddberr.NewFormat("create: %v", err)
	}
	return l.ProcessCreateFieldsRequest(ctx, fields)
}

// ProcessCreateFieldsRequest creates a brand-new object directly from
// fields, bypassing field.Flatten, for callers that already hold a
// field.Field list rather than a document (spec.md §4.3.1).
func (l *Layer) ProcessCreateFieldsRequest(ctx context.Context, fields []field.Field) (string, error) {
	id, err := l.eng.NewID(ctx)
	if err != nil {
		return "", err
	}
	if err := l.modify(ctx, id, nil, fields, false); err != nil {
		return "", err
	}
	return id, nil
}

// ProcessModifyRequest overwrites the subtree rooted at path (the whole
// object, if path is empty) with doc, per spec.md §4.3.1.
func (l *Layer) ProcessModifyRequest(ctx context.Context, id string, path field.Path, doc any, removeConflicts bool) error {
	fields, err := field.Flatten(doc)
	if err != nil {
		return ddberr.NewFormat("modify: %v", err)
	}
	return l.modify(ctx, id, path, fields, removeConflicts)
}

// ProcessModifyFieldsRequest overwrites the subtree rooted at path
// directly from fields, bypassing field.Flatten, for callers that
// already hold a field.Field list rather than a document.
func (l *Layer) ProcessModifyFieldsRequest(ctx context.Context, id string, path field.Path, fields []field.Field, removeConflicts bool) error {
	return l.modify(ctx, id, path, fields, removeConflicts)
}

// modify is the Logic Layer's internal modify algorithm (spec.md §4.3.1):
// fields carry paths relative to path.
func (l *Layer) modify(ctx context.Context, id string, path field.Path, fields []field.Field, removeConflicts bool) error {
	has, err := l.st.ObjectHasField(ctx, id, field.NewPath(path))
	if err != nil {
		return err
	}
	if has {
		if err := l.deleteSubtree(ctx, id, path); err != nil {
			return err
		}
	} else if err := l.walkAndPrepare(ctx, id, path, removeConflicts); err != nil {
		return err
	}

	for _, f := range lastWriteWins(fields) {
		target := field.NewValue(path.Concat(f.Path), f.Value)
		if err := l.setFieldValue(ctx, id, target); err != nil {
			return err
		}
	}
	return nil
}

// lastWriteWins collapses fields down to one entry per distinct path,
// keeping the value of the last occurrence of each path. Without this,
// writing the same path twice in one fields list (e.g. a ModifyRequest
// naming ['tracks'] three times) would insert one physical row per
// occurrence instead of overwriting in place, leaving the read-back
// value dependent on undefined row order.
func lastWriteWins(fields []field.Field) []field.Field {
	lastAt := make(map[string]int, len(fields))
	order := make([]string, 0, len(fields))
	for i, f := range fields {
		key := f.Path.String()
		if _, seen := lastAt[key]; !seen {
			order = append(order, key)
		}
		lastAt[key] = i
	}
	out := make([]field.Field, len(order))
	for i, key := range order {
		out[i] = fields[lastAt[key]]
	}
	return out
}

// walkAndPrepare walks path's prefixes left to right, establishing the
// container sentinel and padding required at each step, and resolving
// type conflicts along the way (spec.md §4.3.1 steps 2-3).
func (l *Layer) walkAndPrepare(ctx context.Context, id string, path field.Path, removeConflicts bool) error {
	for i := 0; i < len(path); i++ {
		prefix := path[:i]
		next := path[i]

		wantList := next.Kind != field.KindString
		wantType := field.TypeEmptyMap
		if wantList {
			wantType = field.TypeEmptyList
		}

		existing, err := l.st.GetValueTypes(ctx, id, prefix)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			val := field.EmptyMap()
			if wantList {
				val = field.EmptyList()
			}
			if err := l.setFieldValue(ctx, id, field.NewValue(prefix, val)); err != nil {
				return err
			}
		} else {
			conflict := false
			for _, t := range existing {
				if t != wantType {
					conflict = true
				}
			}
			if conflict {
				if !removeConflicts {
					return ddberr.NewStructure("conflicting type stored at %s", prefix)
				}
				if err := l.deleteSubtree(ctx, id, prefix); err != nil {
					return err
				}
				val := field.EmptyMap()
				if wantList {
					val = field.EmptyList()
				}
				if err := l.setFieldValue(ctx, id, field.NewValue(prefix, val)); err != nil {
					return err
				}
			}
		}

		if next.Kind == field.KindInt {
			if err := l.fillWithNones(ctx, id, prefix, next.Int); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessInsertRequest inserts len(items) new list elements at path
// (whose last segment is a concrete index or a wildcard meaning append),
// per spec.md §4.3.2.
func (l *Layer) ProcessInsertRequest(ctx context.Context, id string, path field.Path, items []any, removeConflicts bool) error {
	groups := make([][]field.Field, len(items))
	for i, it := range items {
		fs, err := field.Flatten(it)
		if err != nil {
			return ddberr.NewFormat("insert: %v", err)
		}
		groups[i] = fs
	}
	return l.insert(ctx, id, path, groups, removeConflicts)
}

func (l *Layer) insert(ctx context.Context, id string, path field.Path, groups [][]field.Field, removeConflicts bool) error {
	if len(path) == 0 {
		return ddberr.NewFormat("insert: path must address a list element or append position")
	}
	last := path[len(path)-1]
	parent := path[:len(path)-1]

	parentTypes, err := l.st.GetValueTypes(ctx, id, parent)
	if err != nil {
		return err
	}
	hasList := false
	for _, t := range parentTypes {
		if t == field.TypeEmptyList {
			hasList = true
		}
	}
	if !hasList {
		if len(parentTypes) == 0 || removeConflicts {
			if err := l.modify(ctx, id, parent, []field.Field{field.NewValue(nil, field.EmptyList())}, removeConflicts); err != nil {
				return err
			}
		} else {
			return ddberr.NewStructure("cannot insert to non-list at %s", parent)
		}
	}

	if last.Kind == field.KindInt {
		if err := l.fillWithNones(ctx, id, parent, last.Int); err != nil {
			return err
		}
	}

	mask := field.NewPath(parent.Append(field.Wildcard()))
	maxIdx, err := l.st.GetMaxListIndex(ctx, id, mask)
	if err != nil {
		return err
	}

	var startNum int
	switch {
	case maxIdx == nil:
		startNum = 0
	case last.Kind == field.KindWildcard:
		startNum = int(*maxIdx) + 1
	default:
		shift := int64(len(groups))
		target := parent.Append(field.Index(last.Int))
		if err := l.st.RenumberList(ctx, id, target, shift); err != nil {
			return err
		}
		startNum = last.Int
	}

	for i, group := range groups {
		idx := startNum + i
		for _, f := range group {
			target := field.NewValue(parent.Append(field.Index(idx)).Concat(f.Path), f.Value)
			if err := l.setFieldValue(ctx, id, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessDeleteRequest deletes the whole object (paths == nil) or each
// named path, per spec.md §4.3.4.
func (l *Layer) ProcessDeleteRequest(ctx context.Context, id string, paths []field.Path) error {
	if paths == nil {
		fields, err := l.st.GetFieldsList(ctx, id, nil, false)
		if err != nil {
			return err
		}
		for _, f := range fields {
			if err := l.st.DeleteValues(ctx, id, f, nil); err != nil {
				return err
			}
		}
		return l.st.DeleteSpecification(ctx, id)
	}

	for _, p := range paths {
		if len(p) == 0 {
			return ddberr.NewFormat("delete: empty path only valid as a whole-object delete")
		}
		last := p[len(p)-1]
		if last.Kind == field.KindInt {
			if err := l.renumberAfterDelete(ctx, id, p); err != nil {
				return err
			}
		} else if err := l.deleteSubtree(ctx, id, p); err != nil {
			return err
		}
	}
	return nil
}

// renumberAfterDelete deletes the list element at p, then shifts every
// later index in the same list down by one to keep indices dense.
func (l *Layer) renumberAfterDelete(ctx context.Context, id string, p field.Path) error {
	if err := l.deleteSubtree(ctx, id, p); err != nil {
		return err
	}
	parent := p[:len(p)-1]
	idx := p[len(p)-1].Int
	target := parent.Append(field.Index(idx + 1))
	return l.st.RenumberList(ctx, id, target, -1)
}

// ProcessReadRequest reconstructs the document stored at path (or the
// whole object, if path is empty), restricted to masks if given, per
// spec.md §4.3.5. masks are absolute paths; only those that are
// descendants of (or equal to) path are considered.
func (l *Layer) ProcessReadRequest(ctx context.Context, id string, path field.Path, masks []field.Path) (any, error) {
	exists, err := l.st.ObjectExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ddberr.NewLogic("object %s does not exist", id)
	}

	var effective []field.Path
	if len(masks) > 0 {
		for _, m := range masks {
			if m.HasPrefix(path) {
				effective = append(effective, m)
			}
		}
		if len(effective) == 0 {
			return nil, ddberr.NewLogic("no mask is a descendant of %s", path)
		}
	} else {
		effective = []field.Path{path}
	}

	var flat []field.Field
	for _, m := range effective {
		candidates, err := l.st.GetFieldsList(ctx, id, &m, true)
		if err != nil {
			return nil, err
		}
		for _, cand := range candidates {
			types := []field.Type{cand.Type}
			if !cand.HasType {
				if types, err = l.st.GetValueTypes(ctx, id, cand.Path); err != nil {
					return nil, err
				}
			}
			for _, t := range types {
				rows, err := l.st.GetFieldValue(ctx, id, cand.WithType(t))
				if err != nil {
					return nil, err
				}
				for _, r := range rows {
					rel := r.Path[len(path):]
					flat = append(flat, field.NewValue(rel, r.Value))
				}
			}
		}
	}

	if len(flat) == 0 {
		return nil, ddberr.NewLogic("nothing stored at %s for %s", path, id)
	}
	return field.Build(flat), nil
}

// ProcessObjectExistsRequest reports whether id has any data stored.
func (l *Layer) ProcessObjectExistsRequest(ctx context.Context, id string) (bool, error) {
	return l.st.ObjectExists(ctx, id)
}

// ProcessSearchRequest compiles and executes cond (already NOT-propagated
// is not required of the caller; ProcessSearchRequest propagates it
// itself) across every stored object, returning the matching ids, per
// spec.md §4.3.6. A nil cond returns every object id.
func (l *Layer) ProcessSearchRequest(ctx context.Context, cond *condition.Condition) ([]string, error) {
	normalized := condition.PropagateInversion(cond)

	tableNames := collectLeafTables(normalized)
	existing, err := l.eng.SelectExistingTables(ctx, tableNames)
	if err != nil {
		return nil, err
	}
	existingSet := make(map[string]bool, len(existing))
	for _, t := range existing {
		existingSet[t] = true
	}

	q, err := l.st.BuildSqlQuery(normalized, existingSet)
	if err != nil {
		return nil, err
	}
	if q.IsNull {
		return nil, nil
	}

	rows, err := l.eng.Execute(ctx, q.Query, q.Tables, q.Values)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func collectLeafTables(c *condition.Condition) []string {
	if c == nil {
		return nil
	}
	if c.Leaf {
		t, ok := c.Field.EffectiveType()
		if !ok {
			return nil
		}
		return []string{field.NameStr(c.Field.Path, t)}
	}
	return append(collectLeafTables(c.Left), collectLeafTables(c.Right)...)
}

// DumpEntry is one (id, document) pair returned by ProcessDumpRequest.
type DumpEntry struct {
	ID  string
	Doc any
}

// ProcessDumpRequest reads every stored object in full, per spec.md
// §4.3.7.
func (l *Layer) ProcessDumpRequest(ctx context.Context) ([]DumpEntry, error) {
	ids, err := l.ProcessSearchRequest(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]DumpEntry, 0, len(ids))
	for _, id := range ids {
		doc, err := l.ProcessReadRequest(ctx, id, nil, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, DumpEntry{ID: id, Doc: doc})
	}
	return out, nil
}

// ProcessRepairRequest rebuilds the specification table from the per-field
// tables, per spec.md §4.3.8.
func (l *Layer) ProcessRepairRequest(ctx context.Context) error {
	return l.st.RepairSupportTables(ctx)
}
