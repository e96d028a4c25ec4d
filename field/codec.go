package field

import "sort"

// Flatten performs the depth-first shredding described in spec.md §4.1: an
// interior map or list emits its empty-container sentinel before its
// children are visited, so that empty containers survive a Build
// round-trip; scalars emit a single leaf field.
//
// doc is a document tree built from nil, string, int64, float64, []byte,
// map[string]any and []any — the same closed value domain as Value.
func Flatten(doc any) ([]Field, error) {
	var out []Field
	if err := flattenNode(doc, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenNode(node any, prefix Path, out *[]Field) error {
	switch v := node.(type) {
	case map[string]any:
		*out = append(*out, NewValue(prefix, EmptyMap()))
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys) // deterministic output; spec.md notes iteration order is irrelevant for correctness
		for _, k := range keys {
			if err := flattenNode(v[k], prefix.Append(Key(k)), out); err != nil {
				return err
			}
		}
	case []any:
		*out = append(*out, NewValue(prefix, EmptyList()))
		for i, elem := range v {
			if err := flattenNode(elem, prefix.Append(Index(i)), out); err != nil {
				return err
			}
		}
	default:
		val, err := FromGo(v)
		if err != nil {
			return err
		}
		*out = append(*out, NewValue(prefix, val))
	}
	return nil
}

// Build is the inverse of Flatten: it reassembles a document tree from a
// (possibly unordered) list of fields, all sharing a common base path that
// has already been stripped. Empty-container sentinels seed a map or list
// at their prefix; a concrete child always wins over a sentinel, in either
// arrival order, but never the reverse ("sentinels may be overwritten but
// never overwrite").
func Build(fields []Field) any {
	if len(fields) == 0 {
		return nil
	}
	var root any
	for _, f := range fields {
		saveTo(&root, f.Path, goValueFor(f))
	}
	return root
}

func goValueFor(f Field) any {
	switch f.Value.Type {
	case TypeEmptyMap:
		return map[string]any{}
	case TypeEmptyList:
		return []any{}
	default:
		return f.Value.Raw()
	}
}

func isEmptyContainerValue(v any) bool {
	switch x := v.(type) {
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	default:
		return false
	}
}

// saveTo writes value at the slot addressed by path, relative to *slot,
// auto-vivifying maps/lists along the way. It never overwrites a slot that
// already holds a concrete (non-empty-container) value with an
// empty-container sentinel.
func saveTo(slot *any, path Path, value any) {
	if len(path) == 0 {
		if !isEmptyContainerValue(value) || *slot == nil {
			*slot = value
		}
		return
	}

	head, rest := path[0], path[1:]

	switch head.Kind {
	case KindString:
		m, _ := (*slot).(map[string]any)
		if m == nil {
			m = map[string]any{}
		}
		child := m[head.Str]
		saveTo(&child, rest, value)
		m[head.Str] = child
		*slot = m
	default: // KindInt; Build never sees a wildcard, paths are fully determined
		l, _ := (*slot).([]any)
		for len(l) < head.Int+1 {
			l = append(l, nil)
		}
		child := l[head.Int]
		saveTo(&child, rest, value)
		l[head.Int] = child
		*slot = l
	}
}
