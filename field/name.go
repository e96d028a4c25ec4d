package field

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NameStrNoType and NameStr encode a Path into the physical table-naming
// scheme from spec.md §3: string keys in place, integer indices (and
// wildcards) folded to a single placeholder, and a type-tag suffix for the
// typed variant. The per-field table name equals NameStr; two paths that
// differ only in integer indices share a table.
//
// spec.md leaves the exact joining scheme as an implementation detail and
// flags (§9, Open Questions) that the encoding must be an injection from
// (name_str_no_type, type) pairs. The straightforward "join segments with
// '..'" scheme described there is not actually injective (a single string
// segment containing ".." is indistinguishable from two segments split at
// it), so this implementation instead length-prefixes every string segment
// (`<len>:<bytes>`, netstring-style) and reserves the single byte '*' for
// int/wildcard segments — '*' can never start a valid length prefix, so the
// decoder never misreads segment boundaries, and the scheme round-trips
// through DecodeNameStrNoType/DecodeNameStr exactly as repairSupportTables
// requires.

const wildcardMarker = '*'
const typeSep = '|'

// NameStrNoType returns the untyped name string for path.
func NameStrNoType(p Path) string {
	var b strings.Builder
	for _, e := range p {
		switch e.Kind {
		case KindString:
			key := norm.NFC.String(e.Str)
			b.WriteString(strconv.Itoa(len(key)))
			b.WriteByte(':')
			b.WriteString(key)
		default: // KindInt, KindWildcard
			b.WriteByte(wildcardMarker)
		}
	}
	return b.String()
}

// NameStr returns the typed name string (table name) for path and tag.
func NameStr(p Path, tag Type) string {
	return NameStrNoType(p) + string(typeSep) + tag.String()
}

// DecodeNameStrNoType parses a name_str_no_type back into a Path. Integer
// positions are decoded as wildcards, since the untyped encoding does not
// distinguish a concrete index from a wildcard — callers fill in concrete
// indices separately from a per-field table's index columns.
func DecodeNameStrNoType(s string) (Path, error) {
	var p Path
	i := 0
	for i < len(s) {
		if s[i] == wildcardMarker {
			p = append(p, Wildcard())
			i++
			continue
		}
		j := i
		for j < len(s) && s[j] != ':' {
			if s[j] < '0' || s[j] > '9' {
				return nil, fmt.Errorf("field: malformed name string %q at byte %d", s, i)
			}
			j++
		}
		if j == len(s) {
			return nil, fmt.Errorf("field: malformed name string %q: missing ':' after length", s)
		}
		n, err := strconv.Atoi(s[i:j])
		if err != nil {
			return nil, fmt.Errorf("field: malformed length in name string %q: %w", s, err)
		}
		start := j + 1
		end := start + n
		if end > len(s) {
			return nil, fmt.Errorf("field: malformed name string %q: truncated segment", s)
		}
		p = append(p, Key(s[start:end]))
		i = end
	}
	return p, nil
}

// DecodeNameStr splits a name_str (table name) back into its path (with
// wildcards at every integer position) and its type tag.
func DecodeNameStr(s string) (Path, Type, error) {
	idx := strings.LastIndexByte(s, typeSep)
	if idx < 0 {
		return nil, 0, fmt.Errorf("field: name string %q has no type suffix", s)
	}
	p, err := DecodeNameStrNoType(s[:idx])
	if err != nil {
		return nil, 0, err
	}
	tag, err := ParseType(s[idx+1:])
	if err != nil {
		return nil, 0, err
	}
	return p, tag, nil
}

// IsFieldTableName reports whether name looks like a per-field table name
// (as opposed to the specification table or some unrelated table), i.e.
// whether it parses as a valid NameStr.
func IsFieldTableName(name string) bool {
	_, _, err := DecodeNameStr(name)
	return err == nil
}
