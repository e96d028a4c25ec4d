package field

import (
	"bytes"
	"fmt"
)

// Type is the scalar type tag carried by every stored value. Each tag maps
// to a distinct physical column type and a distinct per-field table.
type Type int

const (
	// TypeNull is an explicit stored null scalar (a "none").
	TypeNull Type = iota
	// TypeStr is a text scalar.
	TypeStr
	// TypeInt is an integer scalar.
	TypeInt
	// TypeFloat is a floating-point scalar.
	TypeFloat
	// TypeBytes is a binary scalar.
	TypeBytes
	// TypeEmptyMap is the empty-map container sentinel.
	TypeEmptyMap
	// TypeEmptyList is the empty-list container sentinel.
	TypeEmptyList
)

// tagStrings are the suffixes used in name_str; they double as the values
// stored in id_table.type, so changing them is a storage format change.
var tagStrings = [...]string{"null", "str", "int", "float", "bytes", "emap", "elist"}

func (t Type) String() string {
	if int(t) < 0 || int(t) >= len(tagStrings) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return tagStrings[t]
}

// ParseType inverts Type.String, used when reconstructing a field from a
// stored type column or from a table's name_str suffix.
func ParseType(s string) (Type, error) {
	for i, ts := range tagStrings {
		if ts == s {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("field: unknown type tag %q", s)
}

// IsContainerSentinel reports whether the type denotes an empty-map or
// empty-list marker rather than a scalar.
func (t Type) IsContainerSentinel() bool {
	return t == TypeEmptyMap || t == TypeEmptyList
}

// Value is a tagged scalar/sentinel value. Only the field matching Type is
// meaningful.
type Value struct {
	Type  Type
	Str   string
	Int   int64
	Float float64
	Bytes []byte
}

// Null returns the null scalar value.
func Null() Value { return Value{Type: TypeNull} }

// Str returns a text scalar value.
func Str(s string) Value { return Value{Type: TypeStr, Str: s} }

// Int returns an integer scalar value.
func Int(i int64) Value { return Value{Type: TypeInt, Int: i} }

// Float returns a floating-point scalar value.
func Float(f float64) Value { return Value{Type: TypeFloat, Float: f} }

// Bytes returns a binary scalar value.
func Bytes(b []byte) Value { return Value{Type: TypeBytes, Bytes: b} }

// EmptyMap returns the empty-map container sentinel.
func EmptyMap() Value { return Value{Type: TypeEmptyMap} }

// EmptyList returns the empty-list container sentinel.
func EmptyList() Value { return Value{Type: TypeEmptyList} }

// Equal reports whether two values carry the same type tag and payload.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeStr:
		return v.Str == o.Str
	case TypeInt:
		return v.Int == o.Int
	case TypeFloat:
		return v.Float == o.Float
	case TypeBytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	default:
		return true
	}
}

// Raw returns the single payload as an `any`, suitable for binding to a SQL
// placeholder or for round-tripping into a document tree.
func (v Value) Raw() any {
	switch v.Type {
	case TypeStr:
		return v.Str
	case TypeInt:
		return v.Int
	case TypeFloat:
		return v.Float
	case TypeBytes:
		return v.Bytes
	default:
		return nil
	}
}

// FromGo converts a Go document scalar (nil, string, int64/int/float64,
// []byte) into a Value. It never returns a container sentinel; callers
// shredding maps/lists handle those explicitly.
func FromGo(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case string:
		return Str(x), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float64:
		return Float(x), nil
	case []byte:
		return Bytes(x), nil
	default:
		return Value{}, fmt.Errorf("field: unsupported scalar type %T", v)
	}
}
